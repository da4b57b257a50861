package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/cleanup"
	"github.com/oukeidos/tdocs/internal/version"
)

func execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", apperrors.PublicMessage(err))
	}
	if cleanupErr := cleanup.RunAll(); cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
		if err == nil {
			err = cleanupErr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "tdocs",
		Short: "Incremental document translation with a segment cache",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(opts.root)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				_ = cmd.Usage()
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(rootUsageTemplate)
	addGlobalFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(
		newTranslateCmd(opts),
		newStatusCmd(opts),
		newLanguagesCmd(),
		newEnvCmd(),
		newVersionCmd(),
	)

	cmd.InitDefaultCompletionCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "completion" {
			sub.SetUsageTemplate(subcommandUsageTemplate)
			break
		}
	}
	return cmd
}
