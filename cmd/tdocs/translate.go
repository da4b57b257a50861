package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/config"
	"github.com/oukeidos/tdocs/internal/gemini"
	"github.com/oukeidos/tdocs/internal/invoker"
	"github.com/oukeidos/tdocs/internal/logger"
	"github.com/oukeidos/tdocs/internal/metadata"
	"github.com/oukeidos/tdocs/internal/openai"
	"github.com/oukeidos/tdocs/internal/pipeline"
)

const maxAttempts = 3

type translateOptions struct {
	dryRun      bool
	backend     string
	command     string
	model       string
	concurrency int
	allowEnv    bool
}

func newTranslateCmd(global *globalOptions) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate new and changed documents listed in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, global, opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be translated without calling the translator or writing files")
	f.StringVar(&opts.backend, "backend", "", "Translator backend: command, gemini or openai (default command)")
	f.StringVar(&opts.command, "command", "", "Command template as a JSON array of strings")
	f.StringVar(&opts.model, "model", "", "Model name for the gemini and openai backends")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Number of concurrent translator calls (1-20)")
	f.BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API keys from environment variables")
	return cmd
}

func translateSettings(cmd *cobra.Command, global *globalOptions, opts *translateOptions) (config.Settings, error) {
	s, err := loadSettings(cmd.Flags(), global)
	if err != nil {
		return s, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		s.Invoker.Backend = opts.backend
	}
	if flags.Changed("command") {
		tmpl, err := invoker.ParseTemplate(opts.command)
		if err != nil {
			return s, apperrors.Config(fmt.Sprintf("invalid --command: %v", err), err)
		}
		s.Invoker.Command = tmpl
	}
	if flags.Changed("model") {
		s.Invoker.Model = opts.model
	}
	if flags.Changed("concurrency") {
		s.Concurrency = opts.concurrency
	}
	return s, s.Validate()
}

func runTranslate(cmd *cobra.Command, global *globalOptions, opts *translateOptions) error {
	if err := initLogging(global); err != nil {
		return err
	}
	s, err := translateSettings(cmd, global, opts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	cfg := pipelineConfig(global, s)
	cfg.DryRun = opts.dryRun

	var tr invoker.Translator = invoker.TranslatorFunc(func(context.Context, invoker.Request) (string, error) {
		return "", apperrors.Consistency("translator called during a dry run")
	})
	var usage invoker.UsageReporter
	if !opts.dryRun {
		backend, closeFn, err := newTranslator(ctx, s, opts.allowEnv)
		if err != nil {
			return err
		}
		defer closeFn()
		tr = backend
		usage, _ = backend.(invoker.UsageReporter)
		if s.Invoker.Backend != config.BackendCommand {
			tr = invoker.WithRetry(backend, maxAttempts)
		}
	}

	start := time.Now()
	_, err = pipeline.Run(ctx, cfg, tr)
	if usage != nil {
		logUsage(s, usage.Usage(), time.Since(start))
	}
	if err != nil && ctx.Err() != nil {
		logger.Warn("Translation canceled; cache not updated")
	}
	return err
}

// newTranslator builds the configured backend. The returned close function
// releases backend resources.
func newTranslator(ctx context.Context, s config.Settings, allowEnv bool) (invoker.Translator, func(), error) {
	noop := func() {}
	switch s.Invoker.Backend {
	case config.BackendGemini, config.BackendOpenAI:
		key, source, err := resolveAPIKey(s.Invoker.Backend, allowEnv)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("Using API Key", "service", s.Invoker.Backend, "source", source)
		if s.Invoker.Backend == config.BackendOpenAI {
			return openai.NewClient(key, s.Invoker.Model), noop, nil
		}
		client, err := gemini.NewClient(ctx, key, s.Invoker.Model)
		if err != nil {
			return nil, noop, err
		}
		return client, func() { _ = client.Close() }, nil
	default:
		var copts []invoker.CommandOption
		if s.Invoker.TempDir != "" {
			copts = append(copts, invoker.WithTempDir(s.Invoker.TempDir))
		}
		c, err := invoker.NewCommand(s.Invoker.Command, copts...)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	}
}

func logUsage(s config.Settings, u invoker.Usage, elapsed time.Duration) {
	model := s.Invoker.Model
	if model == "" {
		model = gemini.DefaultModel
		if s.Invoker.Backend == config.BackendOpenAI {
			model = openai.DefaultModel
		}
	}
	logger.Info("Usage",
		"backend", s.Invoker.Backend,
		"model", model,
		"calls", u.Calls,
		"input", u.InputTokens,
		"output", u.OutputTokens,
		"cost_usd", fmt.Sprintf("%.5f", metadata.EstimateCost(s.Invoker.Backend, model, u)),
		"elapsed", elapsed.Round(time.Millisecond),
	)
}
