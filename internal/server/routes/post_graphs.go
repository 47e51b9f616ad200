package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/store"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateGraphHandler creates an empty graph. The id is generated when the
// body does not carry one.
func CreateGraphHandler(c echo.Context) error {
	type createGraphBody struct {
		ID   string `json:"id" validate:"omitempty,max=64"`
		Name string `json:"name" validate:"required,max=255"`
	}

	type createGraphResponse struct {
		Message string       `json:"message"`
		Graph   *store.Graph `json:"graph,omitempty"`
	}

	data := new(createGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGraphResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGraphResponse{
			Message: "Invalid request body",
		})
	}

	if data.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			logger.Error("Failed to generate graph id", "err", err)
			return c.JSON(http.StatusInternalServerError, createGraphResponse{
				Message: "Internal server error",
			})
		}
		data.ID = id
	}

	ctx := c.Request().Context()
	a := app(c)
	if err := a.Storage.CreateGraph(ctx, data.ID, data.Name); err != nil {
		return failure(c, err)
	}
	g, err := a.Storage.GetGraph(ctx, data.ID)
	if err != nil {
		return failure(c, err)
	}

	logger.Info("[API] Graph created", "graph", g.ID)
	return c.JSON(http.StatusCreated, createGraphResponse{
		Message: "Graph created",
		Graph:   &g,
	})
}
