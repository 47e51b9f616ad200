package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetCommunitiesHandler returns the community summaries of a graph. Missing
// summaries are built on the first request and persisted.
func GetCommunitiesHandler(c echo.Context) error {
	type getCommunitiesResponse struct {
		GraphID   string         `json:"graph_id"`
		Summaries map[int]string `json:"summaries"`
	}

	id, err := bindGraph(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	summaries, err := ensureSummaries(c.Request().Context(), app(c), id)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, getCommunitiesResponse{
		GraphID:   id,
		Summaries: summaries,
	})
}
