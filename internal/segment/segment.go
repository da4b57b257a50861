// Package segment splits documents into blank-line delimited segments and
// reassembles translated segments into a document.
package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/oukeidos/tdocs/internal/apperrors"
)

var blankRun = regexp.MustCompile(`\n{2,}`)

// Segment is a contiguous block of non-blank content and the whitespace that
// followed it in the document.
type Segment struct {
	Body      string
	Separator string
}

// Blank reports whether the segment has nothing to translate.
func (s Segment) Blank() bool {
	return strings.TrimSpace(s.Body) == ""
}

// Hash returns the cache identity of the segment body.
func (s Segment) Hash() string {
	return Hash(s.Body)
}

// Result is the translation chosen for one segment position.
type Result struct {
	Hash        string
	Translation string
	Separator   string
}

// Normalize converts CRLF line endings to LF. The result never contains
// "\r\n", so Normalize is idempotent.
func Normalize(s string) string {
	for strings.Contains(s, "\r\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	return s
}

// Hash returns the lowercase hex SHA-256 digest of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Split partitions content at runs of two or more newlines. Each run is kept
// as the separator of the segment before it, together with any trailing
// whitespace of that segment's body, so that joining Body+Separator over all
// segments reproduces the normalized content exactly. An empty document has
// no segments.
func Split(content string) []Segment {
	normalized := Normalize(content)
	if normalized == "" {
		return nil
	}

	var segments []Segment
	start := 0
	for _, loc := range blankRun.FindAllStringIndex(normalized, -1) {
		segments = append(segments, newSegment(normalized[start:loc[0]], normalized[loc[0]:loc[1]]))
		start = loc[1]
	}
	if tail := normalized[start:]; tail != "" || len(segments) == 0 {
		segments = append(segments, newSegment(tail, ""))
	}
	return segments
}

func newSegment(body, sep string) Segment {
	trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
	return Segment{Body: trimmed, Separator: body[len(trimmed):] + sep}
}

// Complete checks that every slot holds a result. A hole is an internal
// consistency failure.
func Complete(slots []*Result) ([]Result, error) {
	out := make([]Result, len(slots))
	for i, r := range slots {
		if r == nil {
			return nil, apperrors.Consistency(fmt.Sprintf("missing translated segment at index %d", i))
		}
		out[i] = *r
	}
	return out, nil
}

// Reconstruct joins translations and separators in segment order.
func Reconstruct(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(strings.TrimRightFunc(Normalize(r.Translation), unicode.IsSpace))
		b.WriteString(r.Separator)
	}
	return b.String()
}

// EnsureTrailingNewline appends "\n" unless s already ends with one. An empty
// string is left empty.
func EnsureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
