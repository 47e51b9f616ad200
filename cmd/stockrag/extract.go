package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/stockrag/internal/setup"
	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/loader"
	ioloader "github.com/OFFIS-RIT/stockrag/pkg/loader/io"
	"github.com/OFFIS-RIT/stockrag/pkg/loader/web"

	"github.com/spf13/cobra"
)

var extractStrict bool

var extractCmd = &cobra.Command{
	Use:     "extract <file|url>...",
	Short:   "Extract triplets from local files or web pages into the graph",
	GroupID: "io",
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

		encoder, maxTokens := setup.UnitSettings()
		files := sourceFiles(args, maxTokens)
		ex := graph.NewExtractor(graph.NewExtractorParams{
			Client:     llm,
			Encoder:    encoder,
			Parallel:   util.GetEnvInt("AI_PARALLEL_REQ", 4),
			MaxRetries: util.GetEnvInt("AI_MAX_RETRIES", 3),
			Strict:     extractStrict,
		})

		res, err := st.Ingest(cmd.Context(), ex, util.GetEnvInt("WORKER_PARALLEL_FILES", 2), files...)
		if err != nil {
			return err
		}
		// New facts make cached summaries stale.
		st.ResetSummaries()
		if err := saveGraph(st, id); err != nil {
			return fmt.Errorf("saving %s: %w", graphPath, err)
		}

		if jsonOutput {
			return printJSON(cmd, res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d units: %d triplets added, %d rejected\n",
			res.Files, res.Units, res.Accepted, res.Rejected)
		return nil
	},
}

// sourceFiles turns arguments into graph files. http(s) arguments are
// fetched as web pages, everything else is read from disk.
func sourceFiles(args []string, maxTokens int) []loader.GraphFile {
	local := ioloader.NewIOGraphFileLoader()
	remote := web.NewWebGraphLoader(nil)

	files := make([]loader.GraphFile, 0, len(args))
	for _, arg := range args {
		params := loader.NewGraphFileParams{ID: arg, Name: filepath.Base(arg), FilePath: arg, MaxTokens: maxTokens}
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			params.Name = arg
			params.Loader = remote
			files = append(files, loader.NewGraphWebFile(params))
			continue
		}
		params.Loader = local
		files = append(files, loader.NewGraphDocumentFile(params))
	}
	return files
}

func init() {
	extractCmd.Flags().BoolVar(&extractStrict, "strict", false, "drop triplets that violate the schema")
}
