package routes

import (
	"net/http"

	serverutil "github.com/OFFIS-RIT/stockrag/internal/server/util"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/query"

	"github.com/labstack/echo/v4"
)

// QueryGraphStreamHandler answers like QueryGraphHandler but streams the
// trace events of the map step as server-sent events, followed by one
// "answer" or "error" event.
func QueryGraphStreamHandler(c echo.Context) error {
	type queryStreamBody struct {
		GraphID  string `param:"id" validate:"required,max=64"`
		Question string `json:"question" validate:"required"`
		TopK     int    `json:"top_k" validate:"min=0"`
	}

	data := new(queryStreamBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	ctx := c.Request().Context()
	a := app(c)
	summaries, err := ensureSummaries(ctx, a, data.GraphID)
	if err != nil {
		return failure(c, err)
	}

	serverutil.StartSSE(c)
	tracer := serverutil.NewSSETracer(c)
	client := query.NewGlobalQueryClient(
		a.AiClient,
		data.GraphID,
		query.WithModel(a.Graph.Model),
		query.WithTopK(data.TopK),
		query.WithParallel(a.Graph.ParallelAiRequests),
		query.WithRanker(a.Storage),
		query.WithTracer(tracer),
	)
	ans, err := client.QueryGlobal(ctx, summaries, data.Question)
	if err != nil {
		logger.Error("[API] Streamed query failed", "graph", data.GraphID, "err", err)
		return tracer.Event("error", messageResponse{Message: "Query failed"})
	}
	return tracer.Event("answer", ans)
}
