// Package cache persists per-document segment translations keyed by source
// path and language pair.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/files"
	"github.com/oukeidos/tdocs/internal/schemas"
)

var validate = validator.New()

// StoredSegment is a segment translation recorded at translation time.
type StoredSegment struct {
	Hash        string `json:"hash" validate:"required,len=64,hexadecimal"`
	Translation string `json:"translation"`
}

// Entry is the cache record of one source document and language pair.
type Entry struct {
	Source       string          `json:"source" validate:"required"`
	Target       string          `json:"target" validate:"required"`
	SourceLang   string          `json:"sourceLang" validate:"required"`
	TargetLang   string          `json:"targetLang" validate:"required"`
	SourceHash   string          `json:"sourceHash" validate:"required,len=64,hexadecimal"`
	TranslatedAt time.Time       `json:"translatedAt" validate:"required"`
	Segments     []StoredSegment `json:"segments,omitempty" validate:"dive"`
}

// Key returns the store key of a document and language pair.
func Key(path, sourceLang, targetLang string) string {
	return fmt.Sprintf("%s::%s->%s", path, sourceLang, targetLang)
}

// Key returns the store key the entry belongs under.
func (e Entry) Key() string {
	return Key(e.Source, e.SourceLang, e.TargetLang)
}

// Store is the in-memory cache. It is read once and written back in full.
type Store struct {
	path    string
	entries map[string]Entry
	dirty   bool
}

// New returns an empty store that saves to path.
func New(path string) *Store {
	return &Store{path: path, entries: make(map[string]Entry)}
}

// Load reads the store at path. A missing file yields an empty store. Content
// that does not match the store schema is a configuration error.
func Load(path string) (*Store, error) {
	s := New(path)
	data, ok, err := files.ReadIfExists(path)
	if err != nil {
		return nil, apperrors.Config(fmt.Sprintf("failed to read cache store %s", path), err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	if err := schemas.ValidateCacheStore(data); err != nil {
		return nil, apperrors.Config(fmt.Sprintf("invalid cache store %s: %v", path, err), err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, apperrors.Config(fmt.Sprintf("invalid cache store %s: %v", path, err), err)
	}
	for key, entry := range s.entries {
		if err := validate.Struct(entry); err != nil {
			return nil, apperrors.Config(fmt.Sprintf("invalid cache entry %q in %s: %v", key, path, err), err)
		}
		if entry.Key() != key {
			err := errors.New("key does not match entry fields")
			return nil, apperrors.Config(fmt.Sprintf("invalid cache entry %q in %s: expected key %q", key, path, entry.Key()), err)
		}
	}
	return s, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string { return s.path }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Dirty reports whether Put was called since the store was loaded or saved.
func (s *Store) Dirty() bool { return s.dirty }

// Get returns the entry stored under key.
func (s *Store) Get(key string) (Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Put replaces the entry for its key and marks the store dirty.
func (s *Store) Put(e Entry) {
	s.entries[e.Key()] = e
	s.dirty = true
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Marshal renders the store as two-space indented JSON with a trailing
// newline. Keys are sorted.
func (s *Store) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the store atomically and clears the dirty flag.
func (s *Store) Save() error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode cache store: %w", err)
	}
	if err := files.AtomicWrite(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache store %s: %w", s.path, err)
	}
	s.dirty = false
	return nil
}
