package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

var rebuildSummaries bool

var summariesCmd = &cobra.Command{
	Use:     "summaries",
	Short:   "Build or show the community summaries of the graph",
	Long:    "Shows the cached community summaries. When the graph has none, or with --rebuild, they are generated and written back to the graph file.",
	GroupID: "graph",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		llm, err := newAIClient()
		if err != nil {
			return fmt.Errorf("creating AI client: %w", err)
		}
		st, id, err := openGraph(llm)
		if err != nil {
			return err
		}

		cached := len(st.Summaries()) > 0
		if rebuildSummaries {
			st.ResetSummaries()
			cached = false
		}
		summaries, err := st.GetCommunitySummaries(cmd.Context())
		if err != nil {
			return fmt.Errorf("building summaries: %w", err)
		}
		if !cached {
			if err := saveGraph(st, id); err != nil {
				return fmt.Errorf("saving %s: %w", graphPath, err)
			}
		}

		if jsonOutput {
			return printJSON(cmd, summaries)
		}
		for _, cluster := range slices.Sorted(maps.Keys(summaries)) {
			fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n", cluster, summaries[cluster])
		}
		return nil
	},
}

func init() {
	summariesCmd.Flags().BoolVar(&rebuildSummaries, "rebuild", false, "discard cached summaries and generate them again")
}
