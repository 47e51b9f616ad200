package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stockrag/pkg/query"

	"github.com/labstack/echo/v4"
)

// QueryGraphHandler answers a question over the community summaries of a
// graph. Summaries are built first when the graph has none.
func QueryGraphHandler(c echo.Context) error {
	type queryBody struct {
		GraphID  string `param:"id" validate:"required,max=64"`
		Question string `json:"question" validate:"required"`
		TopK     int    `json:"top_k" validate:"min=0"`
		Trace    bool   `json:"trace"`
	}

	type queryResponse struct {
		Message string                    `json:"message,omitempty"`
		Answer  *query.Answer             `json:"answer,omitempty"`
		Trace   *query.QueryTraceSnapshot `json:"trace,omitempty"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	a := app(c)
	summaries, err := ensureSummaries(ctx, a, data.GraphID)
	if err != nil {
		return failure(c, err)
	}

	trace := query.NewQueryTrace()
	client := query.NewGlobalQueryClient(
		a.AiClient,
		data.GraphID,
		query.WithModel(a.Graph.Model),
		query.WithTopK(data.TopK),
		query.WithParallel(a.Graph.ParallelAiRequests),
		query.WithRanker(a.Storage),
		query.WithTracer(trace),
	)
	ans, err := client.QueryGlobal(ctx, summaries, data.Question)
	if err != nil {
		return failure(c, err)
	}

	resp := queryResponse{Answer: ans}
	if data.Trace {
		snap := trace.Snapshot()
		resp.Trace = &snap
	}
	return c.JSON(http.StatusOK, resp)
}
