package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/segment"
)

func sampleEntry() Entry {
	return Entry{
		Source:       "docs/a_original.md",
		Target:       "docs/a_ja.md",
		SourceLang:   "en",
		TargetLang:   "ja",
		SourceHash:   segment.Hash("Hello\n\nWorld"),
		TranslatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Segments: []StoredSegment{
			{Hash: segment.Hash("Hello"), Translation: "こんにちは"},
			{Hash: segment.Hash("World"), Translation: "世界"},
		},
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "docs/a_original.md::en->ja", Key("docs/a_original.md", "en", "ja"))
	assert.Equal(t, "docs/a_original.md::en->ja", sampleEntry().Key())
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), ".translations.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Dirty())
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".translations.json")
	s := New(path)
	s.Put(sampleEntry())
	assert.True(t, s.Dirty())
	require.NoError(t, s.Save())
	assert.False(t, s.Dirty())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n  \"docs/a_original.md::en->ja\": {\n    \"source\""))
	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Contains(t, text, `"sourceLang": "en"`)
	assert.Contains(t, text, `"translatedAt": "2024-05-01T10:00:00Z"`)
	assert.Contains(t, text, "こんにちは")

	loaded, err := Load(path)
	require.NoError(t, err)
	got, ok := loaded.Get(Key("docs/a_original.md", "en", "ja"))
	require.True(t, ok)
	assert.Equal(t, sampleEntry(), got)

	again, err := loaded.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestLoad_AcceptsIsoMilliseconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	h := segment.Hash("x")
	doc := `{"a.md::en->ja": {"source": "a.md", "target": "a_ja.md", "sourceLang": "en", "targetLang": "ja", "sourceHash": "` + h + `", "translatedAt": "2024-05-01T10:00:00.123Z"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	s, err := Load(path)
	require.NoError(t, err)
	e, ok := s.Get("a.md::en->ja")
	require.True(t, ok)
	assert.Empty(t, e.Segments)
	assert.Equal(t, 123*time.Millisecond, time.Duration(e.TranslatedAt.Nanosecond()))
}

func TestLoad_RejectsMalformed(t *testing.T) {
	h := segment.Hash("x")
	tests := map[string]string{
		"not json":     `{"a": `,
		"array":        `[1, 2]`,
		"wrong type":   `{"a.md::en->ja": {"source": 1}}`,
		"key mismatch": `{"b.md::en->ja": {"source": "a.md", "target": "a_ja.md", "sourceLang": "en", "targetLang": "ja", "sourceHash": "` + h + `", "translatedAt": "2024-05-01T10:00:00Z"}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache.json")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0600))
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindConfig), "got %v", err)
		})
	}
}

func TestKeys_Sorted(t *testing.T) {
	s := New("unused")
	b := sampleEntry()
	b.TargetLang = "fr"
	s.Put(b)
	s.Put(sampleEntry())
	assert.Equal(t, []string{"docs/a_original.md::en->fr", "docs/a_original.md::en->ja"}, s.Keys())
}
