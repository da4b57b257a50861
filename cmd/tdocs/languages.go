package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tdocs/internal/language"
)

func newLanguagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List language tags with known display names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Known Languages:")
			for _, l := range language.GetSupportedLanguages() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-35s [%s]\n", l.Name, l.ID)
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
