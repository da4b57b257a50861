package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/oukeidos/tdocs/internal/invoker"
	"github.com/oukeidos/tdocs/internal/language"
)

// Config holds everything a run needs. It is built once by the caller; the
// pipeline never reads the environment.
type Config struct {
	// Root is the project directory manifest paths are relative to.
	Root string
	// ManifestPath and CachePath are used as given.
	ManifestPath string
	CachePath    string

	AllowedLanguages language.Set
	DryRun           bool
	Concurrency      int

	// Now stamps cache entries. Defaults to time.Now.
	Now func() time.Time
}

const (
	MinConcurrency = 1
	MaxConcurrency = invoker.MaxConcurrency
)

func ClampConcurrency(value int) (int, bool) {
	if value < MinConcurrency {
		return MinConcurrency, true
	}
	if value > MaxConcurrency {
		return MaxConcurrency, true
	}
	return value, false
}

// Normalize applies defaults and safe bounds and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if clamped, changed := ClampConcurrency(c.Concurrency); changed {
		if c.Concurrency != 0 {
			notes = append(notes, fmt.Sprintf("concurrency clamped from %d to %d (max %d)", c.Concurrency, clamped, MaxConcurrency))
		}
		c.Concurrency = clamped
	}
	if c.Root == "" {
		c.Root = "."
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, notes
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ManifestPath) == "" {
		return fmt.Errorf("manifest path is required")
	}
	if strings.TrimSpace(c.CachePath) == "" {
		return fmt.Errorf("cache path is required")
	}
	if len(c.AllowedLanguages) == 0 {
		return fmt.Errorf("at least one allowed language is required")
	}
	return nil
}
