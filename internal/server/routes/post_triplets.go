package routes

import (
	"context"
	"net/http"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/leaselock"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AddTripletsHandler merges client supplied triplets into a graph. Triplets
// with missing fields are rejected, schema violations only in strict mode.
func AddTripletsHandler(c echo.Context) error {
	type addTripletsBody struct {
		GraphID  string           `param:"id" validate:"required,max=64"`
		Triplets []common.Triplet `json:"triplets" validate:"required,min=1"`
		Strict   bool             `json:"strict"`
	}

	type addTripletsResponse struct {
		Message  string                  `json:"message"`
		Accepted int                     `json:"accepted"`
		Rejected []graph.RejectedTriplet `json:"rejected"`
	}

	data := new(addTripletsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, addTripletsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, addTripletsResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	a := app(c)

	extractor := graph.NewExtractor(graph.NewExtractorParams{Strict: data.Strict})
	accepted, rejected := extractor.Screen(data.Triplets)
	if rejected == nil {
		rejected = []graph.RejectedTriplet{}
	}

	if len(accepted) > 0 {
		err := a.Locks.WithLease(ctx, leaselock.GraphKey(data.GraphID), leaseOptions(a), func(ctx context.Context) error {
			st, err := loadStore(ctx, a, data.GraphID)
			if err != nil {
				return err
			}
			st.AddTriplets(accepted)
			return a.Storage.SaveGraph(ctx, data.GraphID, st.Nodes(), st.Relations())
		})
		if err != nil {
			return failure(c, err)
		}
	} else if _, err := a.Storage.GetGraph(ctx, data.GraphID); err != nil {
		return failure(c, err)
	}

	logger.Info("[API] Triplets added", "graph", data.GraphID, "accepted", len(accepted), "rejected", len(rejected))
	return c.JSON(http.StatusOK, addTripletsResponse{
		Message:  "Triplets added",
		Accepted: len(accepted),
		Rejected: rejected,
	})
}
