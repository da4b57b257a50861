package invoker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultTemplate runs the gemini CLI through a login shell so that
// GEMINI_TRANSLATION_MODEL can override the model.
var DefaultTemplate = []string{
	"bash",
	"-lc",
	`gemini text --model ${GEMINI_TRANSLATION_MODEL:-gemini-1.5-pro} --input-file "{PROMPT_FILE}" --output-file "{OUTPUT_FILE}"`,
}

// Placeholders recognised in command templates.
const (
	PlaceholderPromptFile = "{PROMPT_FILE}"
	PlaceholderOutputFile = "{OUTPUT_FILE}"
	PlaceholderSourceLang = "{SOURCE_LANG}"
	PlaceholderTargetLang = "{TARGET_LANG}"
	PlaceholderSourcePath = "{SOURCE_PATH}"
	PlaceholderTargetPath = "{TARGET_PATH}"
)

// Bindings are the values substituted into a command template.
type Bindings struct {
	PromptFile string
	OutputFile string
	SourceLang string
	TargetLang string
	SourcePath string
	TargetPath string
}

// ParseTemplate parses a command template given as a JSON array of strings.
// The first element is the program to run.
func ParseTemplate(spec string) ([]string, error) {
	var parts []string
	if err := json.Unmarshal([]byte(spec), &parts); err != nil {
		return nil, fmt.Errorf("command template must be a JSON array of strings: %w", err)
	}
	if err := ValidateTemplate(parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// ValidateTemplate checks that a template names a program and has somewhere
// to write the response.
func ValidateTemplate(parts []string) error {
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf("command template must name a program")
	}
	for _, p := range parts {
		if strings.Contains(p, PlaceholderOutputFile) {
			return nil
		}
	}
	return fmt.Errorf("command template must reference %s", PlaceholderOutputFile)
}

// RenderCommand substitutes bindings into every element of template and
// returns the argv to execute. It has no side effects.
func RenderCommand(template []string, b Bindings) []string {
	r := strings.NewReplacer(
		PlaceholderPromptFile, b.PromptFile,
		PlaceholderOutputFile, b.OutputFile,
		PlaceholderSourceLang, b.SourceLang,
		PlaceholderTargetLang, b.TargetLang,
		PlaceholderSourcePath, b.SourcePath,
		PlaceholderTargetPath, b.TargetPath,
	)
	argv := make([]string, len(template))
	for i, part := range template {
		argv[i] = r.Replace(part)
	}
	return argv
}
