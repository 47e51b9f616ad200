package main

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/stockrag/pkg/schema"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:     "schema",
	Short:   "Show entity types, relation types and mapping defects",
	GroupID: "graph",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defects := schema.Check()
		if jsonOutput {
			return printJSON(cmd, map[string]any{
				"entity_types":   schema.EntityTypes(),
				"relation_types": schema.RelationTypes(),
				"mapping":        schema.Mapping(),
				"defects":        defects,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Entity types:")
		for _, et := range schema.EntityTypes() {
			rels := schema.AllowedRelations(et)
			names := make([]string, len(rels))
			for i, r := range rels {
				names[i] = string(r)
			}
			fmt.Fprintf(out, "  %-28s %-24s %s\n", et, schema.Gloss(string(et)), strings.Join(names, ", "))
		}
		fmt.Fprintln(out, "Relation types:")
		for _, rt := range schema.RelationTypes() {
			fmt.Fprintf(out, "  %-28s %s\n", rt, schema.Gloss(string(rt)))
		}
		if len(defects) > 0 {
			fmt.Fprintln(out, "Defects:")
			for _, d := range defects {
				fmt.Fprintf(out, "  %s\n", d)
			}
		}
		return nil
	},
}
