package main

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/stockrag/internal/setup"
	"github.com/OFFIS-RIT/stockrag/pkg/query"

	"github.com/spf13/cobra"
)

var (
	queryTopK  int
	queryTrace bool
)

var queryCmd = &cobra.Command{
	Use:     "query <question>",
	Short:   "Answer a question from the community summaries",
	GroupID: "graph",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		llm, err := newAIClient()
		if err != nil {
			return fmt.Errorf("creating AI client: %w", err)
		}
		st, id, err := openGraph(llm)
		if err != nil {
			return err
		}
		summaries, err := st.GetCommunitySummaries(cmd.Context())
		if err != nil {
			return fmt.Errorf("building summaries: %w", err)
		}

		opts := setup.GraphOptions()
		trace := query.NewQueryTrace()
		client := query.NewGlobalQueryClient(
			llm,
			id,
			query.WithModel(opts.Model),
			query.WithTopK(queryTopK),
			query.WithParallel(opts.ParallelAiRequests),
			query.WithTracer(trace),
		)
		ans, err := client.QueryGlobal(cmd.Context(), summaries, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("answering: %w", err)
		}

		if jsonOutput {
			out := map[string]any{"answer": ans}
			if queryTrace {
				out["trace"] = trace.Snapshot()
			}
			return printJSON(cmd, out)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ans.Answer)
		if queryTrace {
			snap := trace.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "\ncommunities considered %v, used %v, %d map calls in %dms\n",
				snap.ConsideredCommunities, snap.UsedCommunities, snap.MapCalls, snap.MapDurationMs)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "only map over the k communities most similar to the question")
	queryCmd.Flags().BoolVar(&queryTrace, "trace", false, "print which communities were used")
}
