package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetSnapshotsHandler lists the snapshots of a graph, newest first, each
// with a download link.
func GetSnapshotsHandler(c echo.Context) error {
	type snapshot struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}

	id, err := bindGraph(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	ctx := c.Request().Context()
	a := app(c)
	if _, err := a.Storage.GetGraph(ctx, id); err != nil {
		return failure(c, err)
	}

	keys, err := a.Bucket.ListSnapshots(ctx, id)
	if err != nil {
		return failure(c, err)
	}
	out := make([]snapshot, 0, len(keys))
	for _, k := range keys {
		url, err := a.Bucket.DownloadLink(ctx, k)
		if err != nil {
			return failure(c, err)
		}
		out = append(out, snapshot{Key: k, URL: url})
	}
	return c.JSON(http.StatusOK, out)
}
