package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/stockrag/internal/queue"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// RebuildCommunitiesHandler queues a forced rebuild of the community
// summaries of a graph.
func RebuildCommunitiesHandler(c echo.Context) error {
	type rebuildResponse struct {
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}

	id, err := bindGraph(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, rebuildResponse{Message: "Invalid request params"})
	}

	ctx := c.Request().Context()
	a := app(c)
	if _, err := a.Storage.GetGraph(ctx, id); err != nil {
		return failure(c, err)
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return failure(c, err)
	}
	msg, err := json.Marshal(queue.CommunityMsg{GraphID: id, CorrelationID: correlationID, Force: true})
	if err != nil {
		return failure(c, err)
	}
	if err := queue.PublishFIFO(a.Queue, queue.CommunityQueue, msg); err != nil {
		return failure(c, err)
	}

	logger.Info("[API] Community rebuild queued", "graph", id, "correlation_id", correlationID)
	return c.JSON(http.StatusAccepted, rebuildResponse{
		Message:       "Community rebuild queued",
		CorrelationID: correlationID,
	})
}
