package main

import (
	"fmt"

	"github.com/OFFIS-RIT/stockrag/pkg/graph"

	"github.com/spf13/cobra"
)

var dotOutput bool

var filterCmd = &cobra.Command{
	Use:     "filter [name]",
	Short:   "Show the relations between nodes whose name contains name",
	GroupID: "graph",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}

		st, id, err := openGraph(nil)
		if err != nil {
			return err
		}
		sub, records := st.Visualize(name)

		out := cmd.OutOrStdout()
		switch {
		case dotOutput:
			data, err := graph.MarshalDOT(sub, id)
			if err != nil {
				return fmt.Errorf("rendering DOT: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case jsonOutput:
			return printJSON(cmd, records)
		default:
			for _, r := range records {
				fmt.Fprintf(out, "%s -[%s]-> %s: %s\n", r.Source, r.Relationship, r.Target, r.Description)
			}
			fmt.Fprintf(out, "%d nodes, %d relations\n", sub.NodeCount(), len(records))
		}
		return nil
	},
}

func init() {
	filterCmd.Flags().BoolVar(&dotOutput, "dot", false, "render the subgraph as Graphviz DOT")
}
