// Package sanitize cleans raw translator output before it is stored or
// written to a document.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/oukeidos/tdocs/internal/segment"
)

// ErrorReply is the answer a translator is told to give when it cannot comply.
const ErrorReply = "ERROR"

var (
	openingFence = regexp.MustCompile("^```[\\w-]*$")
	disclaimer   = regexp.MustCompile(`(?i)^(ok\.(\s|$)|i\s+apologize|my\s+apologies|i\s+cannot|please\s+manually)`)
	paragraphGap = regexp.MustCompile(`\n{2,}`)
)

// Text normalizes line endings, unwraps a response that is a single fenced
// code block, drops disclaimer lines and removes repeated paragraphs. The
// steps are repeated until the output no longer changes, so Text is
// idempotent. The result may be empty.
func Text(raw string) string {
	return fixedPoint(raw, true)
}

// Document applies the same cleanup as Text except paragraph deduplication.
// It is used on whole-document responses, where removing a repeated
// paragraph would break positional alignment with the source.
func Document(raw string) string {
	return fixedPoint(raw, false)
}

// Unusable reports whether sanitized output must be treated as a failed
// translation.
func Unusable(s string) bool {
	return s == "" || s == ErrorReply
}

func fixedPoint(s string, dedupe bool) string {
	for {
		next := pass(s, dedupe)
		if next == s {
			return next
		}
		s = next
	}
}

func pass(raw string, dedupe bool) string {
	text := strings.TrimSpace(segment.Normalize(raw))
	if text == "" {
		return ""
	}
	text = unwrapFence(text)
	text = strings.TrimSpace(dropDisclaimers(text))
	if text == "" || !dedupe {
		return text
	}
	return strings.TrimSpace(dedupeParagraphs(text))
}

// unwrapFence strips the markers of a fence that encloses the whole text.
// Text with a fence line anywhere inside is left alone.
func unwrapFence(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}
	last := len(lines) - 1
	if !openingFence.MatchString(lines[0]) || lines[last] != "```" {
		return text
	}
	inner := lines[1:last]
	for _, line := range inner {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			return text
		}
	}
	return strings.TrimSpace(strings.Join(inner, "\n"))
}

func dropDisclaimers(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && disclaimer.MatchString(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func dedupeParagraphs(text string) string {
	seen := make(map[string]bool)
	var kept []string
	for _, part := range paragraphGap.Split(text, -1) {
		key := strings.TrimSpace(part)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, part)
	}
	return strings.Join(kept, "\n\n")
}
