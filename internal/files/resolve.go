package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve joins a slash-separated manifest path onto root and rejects paths
// that are absolute or climb out of root.
func Resolve(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("path is empty")
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" {
		return "", fmt.Errorf("path must be relative to the project root: %s", rel)
	}
	clean := filepath.Clean(native)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes the project root: %s", rel)
	}
	return filepath.Join(root, clean), nil
}

// ReadIfExists returns the file contents, or ok=false when the file does not
// exist. Other read failures are returned as errors.
func ReadIfExists(path string) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
