// Package setup builds the shared dependencies of the server, worker and
// CLI binaries from the environment.
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	oai "github.com/OFFIS-RIT/stockrag/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/stockrag/pkg/ai/openai"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/logger/console"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Logger initializes the global logger with a console backend. LOG_FORMAT=json
// switches to JSON lines.
func Logger(prefix string) {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		JSON:   util.GetEnvString("LOG_FORMAT", "text") == "json",
		Prefix: prefix,
	}))
}

// AIClient creates the client selected by AI_ADAPTER.
func AIClient() (ai.GraphAIClient, error) {
	summaryModel := util.GetEnvString("AI_CHAT_SUMMARY_MODEL", graph.DefaultModel)
	parallel := int64(util.GetEnvInt("AI_PARALLEL_REQ", 4))
	timeout := util.GetEnvMinutes("AI_TIMEOUT_MIN", 5)

	switch adapter := util.GetEnvString("AI_ADAPTER", "openai"); adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			SummaryModel:    summaryModel,
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingDim:    util.GetEnvInt("AI_EMBED_DIM", 0),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: parallel,
			Timeout:               timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Ollama client: %w", err)
		}
		return client, nil
	case "openai":
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			SummaryModel:    summaryModel,
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingDim:    util.GetEnvInt("AI_EMBED_DIM", 0),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: parallel,
			Timeout:               timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", adapter)
	}
}

// GraphOptions reads the community build settings.
func GraphOptions() graph.Options {
	return graph.Options{
		MaxClusterSize:     util.GetEnvInt("GRAPH_MAX_CLUSTER_SIZE", 0),
		Seed:               uint64(util.GetEnvInt("GRAPH_CLUSTER_SEED", 0)),
		Resolution:         util.GetEnvNumeric("GRAPH_RESOLUTION", 0),
		Model:              util.GetEnvString("AI_CHAT_SUMMARY_MODEL", graph.DefaultModel),
		ParallelAiRequests: util.GetEnvInt("GRAPH_PARALLEL_SUMMARIES", 1),
	}
}

// UnitSettings returns the token encoder and unit size used for extraction.
func UnitSettings() (string, int) {
	return util.GetEnvString("GRAPH_TOKEN_ENCODER", graph.DefaultEncoder),
		util.GetEnvInt("GRAPH_UNIT_MAX_TOKENS", graph.DefaultMaxTokens)
}

// Pool connects to DATABASE_URL with the pgvector types registered on every
// connection.
func Pool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return pool, nil
}
