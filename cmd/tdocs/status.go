package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tdocs/internal/pipeline"
)

func newStatusCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List manifest pairs and their cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, global)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func runStatus(cmd *cobra.Command, global *globalOptions) error {
	if err := initLogging(global); err != nil {
		return err
	}
	s, err := loadSettings(cmd.Flags(), global)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	statuses, err := pipeline.Inspect(pipelineConfig(global, s))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(statuses) == 0 {
		fmt.Fprintln(out, "No translation targets found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPAIR\tTARGET\tSTATE\tSEGMENTS\tPENDING")
	for _, st := range statuses {
		if st.Cache == pipeline.CacheSkipped {
			fmt.Fprintf(w, "%s\t%s\t-\t%s (%s)\t-\t-\n", st.Source, pairColumn(st), st.Cache, st.Reason)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", st.Source, pairColumn(st), st.Target, st.Cache, st.Segments, pendingColumn(st))
	}
	return w.Flush()
}

func pairColumn(st pipeline.PairStatus) string {
	if st.TargetLang == "" {
		return st.SourceLang + "->?"
	}
	return st.SourceLang + "->" + st.TargetLang
}

func pendingColumn(st pipeline.PairStatus) string {
	switch st.Cache {
	case pipeline.CacheMissing:
		return "all"
	case pipeline.CacheStale:
		return fmt.Sprint(st.Pending)
	}
	return "0"
}
