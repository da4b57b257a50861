package schemas

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hashA = strings.Repeat("a", 64)

func TestValidateCacheStore_Valid(t *testing.T) {
	doc := `{
  "docs/a_original.md::en->ja": {
    "source": "docs/a_original.md",
    "target": "docs/a_ja.md",
    "sourceLang": "en",
    "targetLang": "ja",
    "sourceHash": "` + hashA + `",
    "translatedAt": "2024-05-01T10:00:00.000Z",
    "segments": [{"hash": "` + hashA + `", "translation": "こんにちは"}]
  }
}`
	require.NoError(t, ValidateCacheStore([]byte(doc)))
	require.NoError(t, ValidateCacheStore([]byte(`{}`)))
}

func TestValidateCacheStore_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"array root", `[]`, "(root)"},
		{"missing field", `{"k": {"source": "a", "target": "b", "sourceLang": "en", "targetLang": "ja", "translatedAt": "2024-05-01T10:00:00Z"}}`, "k"},
		{"bad hash", `{"k": {"source": "a", "target": "b", "sourceLang": "en", "targetLang": "ja", "sourceHash": "xyz", "translatedAt": "2024-05-01T10:00:00Z"}}`, "k.sourceHash"},
		{"segments not array", `{"k": {"source": "a", "target": "b", "sourceLang": "en", "targetLang": "ja", "sourceHash": "` + hashA + `", "translatedAt": "2024-05-01T10:00:00Z", "segments": {}}}`, "k.segments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCacheStore([]byte(tt.doc))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			fields := make([]string, 0, len(ve.Errors))
			for _, fe := range ve.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateCacheStore_NotJSON(t *testing.T) {
	err := ValidateCacheStore([]byte(`{"k": `))
	var le *LoadError
	require.True(t, errors.As(err, &le), "expected LoadError, got %v", err)
}
