package pipeline

import (
	"fmt"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/cache"
	"github.com/oukeidos/tdocs/internal/files"
	"github.com/oukeidos/tdocs/internal/manifest"
	"github.com/oukeidos/tdocs/internal/segment"
)

// CacheState describes how a pair's cache entry relates to its source.
type CacheState string

const (
	CacheUpToDate CacheState = "up-to-date"
	CacheStale    CacheState = "stale"
	CacheMissing  CacheState = "missing"
	CacheSkipped  CacheState = "skipped"
)

// PairStatus is one line of a status listing.
type PairStatus struct {
	Source     string
	Target     string
	SourceLang string
	TargetLang string
	Cache      CacheState
	// Reason explains skipped pairs.
	Reason string
	// Segments counts source segments. Pending counts those a run would send
	// to the translator one at a time; it is zero for missing entries and
	// entries without stored segments, which are translated as a whole
	// document.
	Segments int
	Pending  int
}

// Inspect lists every manifest pair with its cache state. It reads the
// manifest, the cache and the sources but never writes or translates.
func Inspect(cfg Config) ([]PairStatus, error) {
	cfg, _ = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Config(fmt.Sprintf("invalid configuration: %v", err), err)
	}
	rows, found, err := manifest.Load(cfg.ManifestPath)
	if err != nil || !found {
		return nil, err
	}
	store, err := cache.Load(cfg.CachePath)
	if err != nil {
		return nil, err
	}

	var out []PairStatus
	for _, row := range rows {
		skip := func(reason string) {
			out = append(out, PairStatus{Source: row.Path, SourceLang: row.SourceLang, Cache: CacheSkipped, Reason: reason})
		}
		if err := row.Validate(); err != nil {
			skip(err.Error())
			continue
		}
		if !cfg.AllowedLanguages.Contains(row.SourceLang) {
			skip(fmt.Sprintf("source language %q is not allowed", row.SourceLang))
			continue
		}
		abs, err := files.Resolve(cfg.Root, row.Path)
		if err != nil {
			skip(err.Error())
			continue
		}
		data, ok, err := files.ReadIfExists(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", row.Path, err)
		}
		if !ok {
			skip("source file not found")
			continue
		}
		content := string(data)
		hash := segment.Hash(content)
		segments := segment.Split(content)

		for _, targetLang := range row.TargetLangs {
			st := PairStatus{
				Source:     row.Path,
				Target:     DeriveTargetPath(row.Path, row.SourceLang, targetLang),
				SourceLang: row.SourceLang,
				TargetLang: targetLang,
				Segments:   len(segments),
			}
			switch {
			case !cfg.AllowedLanguages.Contains(targetLang):
				st.Cache, st.Reason = CacheSkipped, fmt.Sprintf("target language %q is not allowed", targetLang)
			case targetLang == row.SourceLang:
				st.Cache, st.Reason = CacheSkipped, "same language"
			default:
				entry, cached := store.Get(cache.Key(row.Path, row.SourceLang, targetLang))
				switch {
				case !cached:
					st.Cache = CacheMissing
				case entry.SourceHash == hash:
					st.Cache = CacheUpToDate
				default:
					st.Cache = CacheStale
					if len(entry.Segments) > 0 {
						st.Pending = len(newPlan(segments, entry.Segments).pending)
					}
				}
			}
			out = append(out, st)
		}
	}
	return out, nil
}
