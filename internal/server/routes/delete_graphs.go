package routes

import (
	"context"
	"net/http"

	"github.com/OFFIS-RIT/stockrag/internal/storage"
	"github.com/OFFIS-RIT/stockrag/pkg/leaselock"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DeleteGraphHandler removes a graph with its summaries and every stored
// object below its prefix. The graph lease is held so that no extraction
// writes into the graph while it is removed.
func DeleteGraphHandler(c echo.Context) error {
	id, err := bindGraph(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	ctx := c.Request().Context()
	a := app(c)
	err = a.Locks.WithLease(ctx, leaselock.GraphKey(id), leaseOptions(a), func(ctx context.Context) error {
		return a.Storage.DeleteGraph(ctx, id)
	})
	if err != nil {
		return failure(c, err)
	}

	if err := a.Bucket.DeleteFolder(ctx, storage.GraphPrefix(id)+"/"); err != nil {
		// The graph rows are gone, leftover objects are only logged.
		logger.Error("[API] Failed to delete graph objects", "graph", id, "err", err)
	}

	logger.Info("[API] Graph deleted", "graph", id)
	return c.JSON(http.StatusOK, messageResponse{Message: "Graph deleted"})
}
