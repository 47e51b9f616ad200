package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/stockrag/internal/server/middleware"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/leaselock"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/store"

	"github.com/labstack/echo/v4"
)

type graphParams struct {
	GraphID string `param:"id" validate:"required,max=64"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func app(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

// bindGraph binds and validates the :id path parameter.
func bindGraph(c echo.Context) (string, error) {
	params := new(graphParams)
	if err := c.Bind(params); err != nil {
		return "", err
	}
	if err := c.Validate(params); err != nil {
		return "", err
	}
	return params.GraphID, nil
}

// failure maps err to a JSON error response.
func failure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrGraphNotFound):
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Graph not found"})
	case errors.Is(err, leaselock.ErrBusy):
		return c.JSON(http.StatusConflict, messageResponse{Message: "Graph is busy"})
	case errors.Is(err, context.Canceled):
		return c.JSON(http.StatusRequestTimeout, messageResponse{Message: "Request cancelled"})
	}
	logger.Error("[API] Request failed", "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
}

func leaseOptions(a *middleware.App) leaselock.Options {
	return leaselock.Options{TTL: a.LeaseTTL, Wait: true}
}

func loadStore(ctx context.Context, a *middleware.App, graphID string) (*graph.Store, error) {
	return store.LoadStore(ctx, a.Storage, graphID, a.AiClient, a.Graph)
}

// ensureSummaries returns the stored summaries of a graph, building and
// persisting them first when none are stored. Concurrent callers wait for the
// build holding the lease and then read its result.
func ensureSummaries(ctx context.Context, a *middleware.App, graphID string) (map[int]string, error) {
	summaries, err := a.Storage.LoadSummaries(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if len(summaries) > 0 {
		return summaries, nil
	}

	err = a.Locks.WithLease(ctx, leaselock.CommunityBuildKey(graphID), leaseOptions(a), func(ctx context.Context) error {
		st, err := loadStore(ctx, a, graphID)
		if err != nil {
			return err
		}
		built, err := st.GetCommunitySummaries(ctx)
		if err != nil {
			return err
		}
		summaries = built
		if len(st.Summaries()) == 0 {
			return nil
		}
		return store.PersistSummaries(ctx, a.Storage, graphID, st, a.AiClient)
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
