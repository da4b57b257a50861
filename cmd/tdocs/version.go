package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tdocs/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
