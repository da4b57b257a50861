package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tdocs/internal/auth"
	"github.com/oukeidos/tdocs/internal/prompt"
)

type envOptions struct {
	service string
	yes     bool
}

var confirmer = prompt.DefaultConfirmer

func newEnvCmd() *cobra.Command {
	opts := envOptions{}
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage API keys in OS Keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.service, "service", "gemini", "Service to manage (gemini or openai)")

	cmd.AddCommand(
		newEnvSetupCmd(&opts),
		newEnvDeleteCmd(&opts),
		newEnvStatusCmd(&opts),
	)
	return cmd
}

func newEnvSetupCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Save API key to keychain (prompt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSetup(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvDeleteCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete key from keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvDelete(cmd, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Delete without asking")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvStatusCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show key status (default if no action given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func envService(opts *envOptions) (string, error) {
	svc := strings.ToLower(strings.TrimSpace(opts.service))
	if svc != "gemini" && svc != "openai" {
		return "", fmt.Errorf("invalid service. Must be 'gemini' or 'openai'")
	}
	return svc, nil
}

func runEnvSetup(cmd *cobra.Command, opts *envOptions) error {
	svc, err := envService(opts)
	if err != nil {
		return err
	}
	key, err := promptForKey(fmt.Sprintf("%s API Key: ", auth.Label(svc)))
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("API key is required for setup")
	}
	if err := saveKey(svc, key); err != nil {
		return fmt.Errorf("error saving key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key to keychain.\n", svc)
	return nil
}

func runEnvDelete(cmd *cobra.Command, opts *envOptions) error {
	svc, err := envService(opts)
	if err != nil {
		return err
	}
	ok, err := confirmer().Confirm(fmt.Sprintf("Delete %s API key from keychain?", auth.Label(svc)), opts.yes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
		return nil
	}
	if err := deleteKey(svc); err != nil {
		return fmt.Errorf("error deleting key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s API key from keychain.\n", svc)
	return nil
}

func runEnvStatus(cmd *cobra.Command, opts *envOptions) error {
	svc, err := envService(opts)
	if err != nil {
		return err
	}
	if getStatus(svc) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Found (source=Keychain)\n", svc)
		return nil
	}
	if envKey, ok := getEnvKey(svc); ok && envKey != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Found (source=Environment Variable; disabled by default, use --allow-env)\n", svc)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Not Found (keychain empty, %s not set)\n", svc, auth.EnvVar(svc))
	return nil
}
