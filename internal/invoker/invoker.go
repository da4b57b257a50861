// Package invoker is the boundary to whatever performs the actual
// translation: an external command or a hosted model API.
package invoker

import (
	"context"
	"fmt"
	"strings"

	"github.com/oukeidos/tdocs/internal/language"
)

// Request is one translation call. SourcePath and TargetPath are labels for
// diagnostics and may carry a "(segment i/N)" annotation.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
	SourcePath string
	TargetPath string
}

// Translator turns a request into raw translated text. Implementations must
// fail rather than return blank output.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, req Request) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// SegmentLabel annotates a path label with a 1-based segment position.
func SegmentLabel(path string, index, total int) string {
	return fmt.Sprintf("%s (segment %d/%d)", path, index+1, total)
}

// Instructions returns the translator guidelines shared by every backend.
func Instructions(sourceLang, targetLang string) string {
	return strings.Join([]string{
		fmt.Sprintf("You are a professional technical translator. Convert the following %s Markdown content into %s.",
			language.DisplayName(sourceLang), language.DisplayName(targetLang)),
		"",
		"Guidelines:",
		"- Preserve Markdown structure, lists, tables, code blocks, inline formatting, and URLs.",
		"- Keep existing front matter or raw HTML untouched unless translation is required inside.",
		"- Do not add commentary, apologies, explanations, or diff markers.",
		"- Do not wrap the entire response in a code fence unless the source is already fully enclosed in a code fence with the same language tag.",
		"- Output the translation only. Do not reference tools, editing limitations, or the translation process.",
		"- Maintain existing spacing and blank lines where possible.",
		"",
		`If you cannot comply, respond with the single word "ERROR".`,
	}, "\n")
}

// SourceBlock wraps the text to translate with its label and delimiters.
func SourceBlock(req Request) string {
	return strings.Join([]string{
		"Source file: " + req.SourcePath,
		"",
		"----- BEGIN SOURCE -----",
		req.Text,
		"----- END SOURCE -----",
	}, "\n")
}

// BuildPrompt returns the full single-message prompt for a request.
func BuildPrompt(req Request) string {
	return Instructions(req.SourceLang, req.TargetLang) + "\n\n" + SourceBlock(req)
}

// Usage is the token accounting reported by hosted model backends.
type Usage struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Add accumulates o into u.
func (u *Usage) Add(o Usage) {
	u.Calls += o.Calls
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// UsageReporter is implemented by backends that track token usage.
type UsageReporter interface {
	Usage() Usage
}
