package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/auth"
	"github.com/oukeidos/tdocs/internal/cleanup"
	"github.com/oukeidos/tdocs/internal/config"
	"github.com/oukeidos/tdocs/internal/files"
	"github.com/oukeidos/tdocs/internal/language"
	"github.com/oukeidos/tdocs/internal/logger"
	"github.com/oukeidos/tdocs/internal/pipeline"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
	saveKey      = auth.SaveKey
	deleteKey    = auth.DeleteKey
	lookupEnv    = os.LookupEnv
)

// globalOptions are the flags shared by translate and status.
type globalOptions struct {
	root        string
	manifest    string
	cache       string
	allowed     string
	logFilePath string
	debug       bool
	quiet       bool
}

func addGlobalFlags(f *pflag.FlagSet, opts *globalOptions) {
	f.StringVar(&opts.root, "root", ".", "Project root that manifest paths are relative to")
	f.StringVar(&opts.manifest, "manifest", "", "Manifest CSV path (default "+config.DefaultManifest+")")
	f.StringVar(&opts.cache, "cache", "", "Cache store path (default "+config.DefaultCache+")")
	f.StringVar(&opts.allowed, "allowed", "", "Comma separated allow-list of language tags (default en,ja)")
	f.StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.BoolVar(&opts.quiet, "quiet", false, "Only log warnings and errors")
}

// loadDotEnv loads .env from the project root, then from the working
// directory. Variables that are already set are never overridden, so the
// process environment wins over the root file, which wins over the local one.
// Missing files are fine.
func loadDotEnv(root string) error {
	for _, path := range []string{filepath.Join(root, ".env"), ".env"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return apperrors.Config(fmt.Sprintf("failed to load %s", path), err)
		}
	}
	return nil
}

func initLogging(opts *globalOptions) error {
	level := logger.LevelInfo
	switch {
	case opts.debug:
		level = logger.LevelDebug
	case opts.quiet:
		level = logger.LevelWarn
	}
	var logFileW io.Writer
	if opts.logFilePath != "" {
		if err := files.RejectSymlinkPath(opts.logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register(f.Close)
		logFileW = f
	}
	logger.Init(level, logFileW)
	return nil
}

// loadSettings resolves settings from defaults, .tdocs.yaml, the environment
// and the flags that were set, in that order.
func loadSettings(flags *pflag.FlagSet, opts *globalOptions) (config.Settings, error) {
	s, found, err := config.Load(opts.root)
	if err != nil {
		return s, err
	}
	if found {
		logger.Debug("Loaded project settings", "path", filepath.Join(opts.root, config.FileName))
	}
	if err := s.ApplyEnv(lookupEnv); err != nil {
		return s, err
	}
	if flags.Changed("manifest") {
		s.Manifest = opts.manifest
	}
	if flags.Changed("cache") {
		s.Cache = opts.cache
	}
	if flags.Changed("allowed") {
		s.AllowedLanguages = language.SplitList(opts.allowed)
	}
	return s, nil
}

func pipelineConfig(opts *globalOptions, s config.Settings) pipeline.Config {
	return pipeline.Config{
		Root:             opts.root,
		ManifestPath:     config.ResolvePath(opts.root, s.Manifest),
		CachePath:        config.ResolvePath(opts.root, s.Cache),
		AllowedLanguages: s.AllowedSet(),
		Concurrency:      s.Concurrency,
	}
}

// resolveAPIKey finds the key of a hosted backend: keychain, then the
// environment when allowed, then an interactive prompt.
func resolveAPIKey(backend string, allowEnv bool) (string, string, error) {
	if key, source := getKey(backend, false); key != "" {
		return key, source, nil
	}
	if allowEnv {
		if key, ok := getEnvKey(backend); ok {
			return key, auth.SourceEnv, nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", apperrors.Config("no API key available (non-interactive shell); run 'tdocs env setup' or use --allow-env", nil)
	}
	key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", auth.Label(backend)))
	if err != nil {
		return "", "", fmt.Errorf("error reading API key: %w", err)
	}
	if key = strings.TrimSpace(key); key != "" {
		return key, auth.SourcePrompt, nil
	}
	if allowEnv {
		return "", "", apperrors.Config("API key is required; not found in keychain or environment", nil)
	}
	return "", "", apperrors.Config("API key is required; not found in keychain (environment disabled by default; use --allow-env)", nil)
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
