package routes

import (
	"net/http"
	"time"

	"github.com/OFFIS-RIT/stockrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateSnapshotHandler writes the graph and its stored summaries to the
// bucket and returns a short lived download link.
func CreateSnapshotHandler(c echo.Context) error {
	type snapshotResponse struct {
		Message string `json:"message"`
		Key     string `json:"key,omitempty"`
		URL     string `json:"url,omitempty"`
	}

	id, err := bindGraph(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, snapshotResponse{Message: "Invalid request params"})
	}

	ctx := c.Request().Context()
	a := app(c)
	st, err := loadStore(ctx, a, id)
	if err != nil {
		return failure(c, err)
	}

	key, err := a.Bucket.PutSnapshot(ctx, st.Snapshot(id), time.Now())
	if err != nil {
		return failure(c, err)
	}
	url, err := a.Bucket.DownloadLink(ctx, key)
	if err != nil {
		return failure(c, err)
	}

	logger.Info("[API] Snapshot written", "graph", id, "key", key)
	return c.JSON(http.StatusCreated, snapshotResponse{
		Message: "Snapshot created",
		Key:     key,
		URL:     url,
	})
}
