package pipeline

import (
	"path"
	"strings"
)

// DeriveTargetPath returns the manifest-style path of the translation of
// rel. A trailing "_original" or "_<sourceLang>" on the file name is replaced
// by "_<targetLang>"; otherwise the suffix is appended before the extension.
func DeriveTargetPath(rel, sourceLang, targetLang string) string {
	dir, base := path.Split(rel)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		name, ext = base, ""
	}

	switch {
	case strings.HasSuffix(name, "_original"):
		name = strings.TrimSuffix(name, "_original")
	case strings.HasSuffix(name, "_"+sourceLang):
		name = strings.TrimSuffix(name, "_"+sourceLang)
	}
	return path.Join(dir, name+"_"+targetLang+ext)
}

func pairLabel(sourceLang, targetLang string) string {
	return sourceLang + "->" + targetLang
}
