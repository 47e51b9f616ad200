package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func GetGraphHandler(c echo.Context) error {
	id, err := bindGraph(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	g, err := app(c).Storage.GetGraph(c.Request().Context(), id)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, g)
}
