package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

const mimeGraphviz = "text/vnd.graphviz"

// FilterGraphHandler returns the subgraph whose node names contain the name
// query parameter. With format=dot the subgraph is rendered as Graphviz.
func FilterGraphHandler(c echo.Context) error {
	type filterParams struct {
		GraphID string `param:"id" validate:"required,max=64"`
		Name    string `query:"name"`
		Format  string `query:"format" validate:"omitempty,oneof=json dot"`
	}

	type filterResponse struct {
		Nodes     []string                `json:"nodes"`
		Relations []common.RelationRecord `json:"relations"`
	}

	params := new(filterParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	st, err := loadStore(c.Request().Context(), app(c), params.GraphID)
	if err != nil {
		return failure(c, err)
	}
	sub, records := st.Visualize(params.Name)

	if params.Format == "dot" {
		out, err := graph.MarshalDOT(sub, params.GraphID)
		if err != nil {
			logger.Error("[API] Failed to render graph", "graph", params.GraphID, "err", err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
		}
		return c.Blob(http.StatusOK, mimeGraphviz, out)
	}

	if records == nil {
		records = []common.RelationRecord{}
	}
	return c.JSON(http.StatusOK, filterResponse{
		Nodes:     sub.NodeNames(),
		Relations: records,
	})
}
