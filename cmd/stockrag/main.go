package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/OFFIS-RIT/stockrag/internal/setup"
	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"

	"github.com/spf13/cobra"
)

var (
	graphPath  string
	jsonOutput bool

	// newAIClient is replaced in tests.
	newAIClient = setup.AIClient
)

var rootCmd = &cobra.Command{
	Use:           "stockrag <command>",
	Short:         "Work with a stock market knowledge graph stored in a JSON file",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.LoadEnv()
		setup.Logger("cli")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&graphPath, "graph", "g", "graph.json", "path of the graph snapshot file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "graph", Title: "Graph Commands:"},
		&cobra.Group{ID: "io", Title: "Import Commands:"},
	)
	rootCmd.AddCommand(schemaCmd, summariesCmd, filterCmd, queryCmd, extractCmd, importNeo4jCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// graphID names the graph after its file when the snapshot carries no id.
func graphID(snap common.Snapshot) string {
	if snap.GraphID != "" {
		return snap.GraphID
	}
	return strings.TrimSuffix(filepath.Base(graphPath), filepath.Ext(graphPath))
}

// openGraph reads the graph file into a store. A missing file yields an
// empty graph. llm may be nil for commands that do not generate text.
func openGraph(llm ai.GraphAIClient) (*graph.Store, string, error) {
	st := graph.NewStore(llm, setup.GraphOptions())

	f, err := os.Open(graphPath)
	if errors.Is(err, fs.ErrNotExist) {
		return st, graphID(common.Snapshot{}), nil
	}
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	snap, err := graph.ReadSnapshot(f)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", graphPath, err)
	}
	st.Restore(snap)
	return st, graphID(snap), nil
}

// saveGraph writes st to the graph file through a temporary file.
func saveGraph(st *graph.Store, id string) error {
	tmp := graphPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := graph.WriteSnapshot(f, st.Snapshot(id)); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, graphPath)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
