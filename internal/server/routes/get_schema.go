package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stockrag/pkg/schema"

	"github.com/labstack/echo/v4"
)

// GetSchemaHandler returns the entity and relation types, the mapping of
// permitted relations per entity type and the defects found in the mapping.
func GetSchemaHandler(c echo.Context) error {
	type schemaResponse struct {
		EntityTypes   []schema.EntityType                         `json:"entity_types"`
		RelationTypes []schema.RelationType                       `json:"relation_types"`
		Mapping       map[schema.EntityType][]schema.RelationType `json:"mapping"`
		Glosses       map[string]string                           `json:"glosses"`
		Defects       []schema.Defect                             `json:"defects"`
	}

	resp := schemaResponse{
		EntityTypes:   schema.EntityTypes(),
		RelationTypes: schema.RelationTypes(),
		Mapping:       schema.Mapping(),
		Glosses:       make(map[string]string),
		Defects:       schema.Check(),
	}
	for _, et := range resp.EntityTypes {
		resp.Glosses[string(et)] = schema.Gloss(string(et))
	}
	for _, rt := range resp.RelationTypes {
		resp.Glosses[string(rt)] = schema.Gloss(string(rt))
	}
	if resp.Defects == nil {
		resp.Defects = []schema.Defect{}
	}
	return c.JSON(http.StatusOK, resp)
}
