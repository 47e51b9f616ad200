package main

import (
	"fmt"

	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/store/neo4j"

	"github.com/spf13/cobra"
)

var importNeo4jCmd = &cobra.Command{
	Use:     "import-neo4j",
	Short:   "Merge the entities and relationships of a Neo4j database into the graph",
	Long:    "Connects with NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD and NEO4J_DATABASE.",
	GroupID: "io",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, id, err := openGraph(nil)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		importer, err := neo4j.New(ctx, neo4j.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("connecting to neo4j: %w", err)
		}
		defer func() {
			if err := importer.Close(ctx); err != nil {
				logger.Warn("Failed to close neo4j driver", "err", err)
			}
		}()

		res, err := importer.Import(ctx, st)
		if err != nil {
			return err
		}
		st.ResetSummaries()
		if err := saveGraph(st, id); err != nil {
			return fmt.Errorf("saving %s: %w", graphPath, err)
		}

		if jsonOutput {
			return printJSON(cmd, res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d nodes and %d relations, skipped %d\n", res.Nodes, res.Relations, res.Skipped)
		return nil
	},
}
