package invoker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/files"
	"github.com/oukeidos/tdocs/internal/logger"
	"github.com/oukeidos/tdocs/internal/segment"
)

// maxCapturedOutput bounds how much of the command's stdout and stderr is
// kept for error reports.
const maxCapturedOutput = 4096

// Command translates by running an external program. The prompt is staged in
// a temporary file and the program writes its answer to another; both are
// removed before Translate returns.
type Command struct {
	template []string
	tempDir  string
	env      []string
}

// CommandOption configures a Command.
type CommandOption func(*Command)

// WithTempDir stages request and response files in dir instead of the
// system temporary directory.
func WithTempDir(dir string) CommandOption {
	return func(c *Command) { c.tempDir = dir }
}

// WithEnv appends KEY=VALUE pairs to the environment of the program.
func WithEnv(env ...string) CommandOption {
	return func(c *Command) { c.env = append(c.env, env...) }
}

// NewCommand validates template and returns a command backend.
func NewCommand(template []string, opts ...CommandOption) (*Command, error) {
	if err := ValidateTemplate(template); err != nil {
		return nil, apperrors.Config(fmt.Sprintf("invalid command template: %v", err), err)
	}
	c := &Command{template: append([]string(nil), template...)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Template returns a copy of the command template.
func (c *Command) Template() []string {
	return append([]string(nil), c.template...)
}

func (c *Command) Translate(ctx context.Context, req Request) (string, error) {
	dir := c.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	id := uuid.NewString()
	promptPath := filepath.Join(dir, "tdocs-"+id+".prompt")
	outputPath := filepath.Join(dir, "tdocs-"+id+".out")
	defer removeQuietly(promptPath)
	defer removeQuietly(outputPath)

	if err := os.WriteFile(promptPath, []byte(BuildPrompt(req)), 0o600); err != nil {
		return "", apperrors.Invoker(fmt.Sprintf("failed to stage prompt for %s", req.SourcePath), err)
	}

	argv := RenderCommand(c.template, Bindings{
		PromptFile: promptPath,
		OutputFile: outputPath,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		SourcePath: req.SourcePath,
		TargetPath: req.TargetPath,
	})

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), c.env...)
	captured := &tailBuffer{limit: maxCapturedOutput}
	cmd.Stdout = captured
	cmd.Stderr = captured

	logger.Debug("Running translation command", "program", argv[0], "source", req.SourcePath, "target_lang", req.TargetLang)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := fmt.Sprintf("translation command failed for %s (%s->%s): %v", req.SourcePath, req.SourceLang, req.TargetLang, err)
		if tail := strings.TrimSpace(captured.String()); tail != "" {
			msg += ": " + tail
		}
		return "", apperrors.Invoker(msg, err)
	}

	data, ok, err := files.ReadIfExists(outputPath)
	if err != nil {
		return "", apperrors.Invoker(fmt.Sprintf("failed to read translation output for %s", req.SourcePath), err)
	}
	if !ok {
		return "", apperrors.Invoker(fmt.Sprintf("translation command wrote no output for %s (%s->%s)", req.SourcePath, req.SourceLang, req.TargetLang), nil)
	}
	text := strings.TrimRightFunc(segment.Normalize(string(data)), unicode.IsSpace)
	if strings.TrimSpace(text) == "" {
		return "", apperrors.Invoker(fmt.Sprintf("translation command returned an empty result for %s (%s->%s)", req.SourcePath, req.SourceLang, req.TargetLang), nil)
	}
	return text, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to remove temporary file", "path", path, "error", err)
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
