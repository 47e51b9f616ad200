package server

import (
	"net/http"

	"github.com/OFFIS-RIT/stockrag/internal/server/middleware"
	"github.com/OFFIS-RIT/stockrag/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.GET("/schema", routes.GetSchemaHandler)

	// Graph routes
	apiRoutes.POST("/graphs", routes.CreateGraphHandler, middleware.RequirePermission(middleware.PermGraphCreate))
	apiRoutes.GET("/graphs/:id", routes.GetGraphHandler, middleware.RequirePermission(middleware.PermGraphRead))
	apiRoutes.DELETE("/graphs/:id", routes.DeleteGraphHandler, middleware.RequirePermission(middleware.PermGraphDelete))

	// Graph content routes
	apiRoutes.POST("/graphs/:id/triplets", routes.AddTripletsHandler, middleware.RequirePermission(middleware.PermGraphWrite))
	apiRoutes.POST("/graphs/:id/documents", routes.AddDocumentsHandler, middleware.RequirePermission(middleware.PermGraphWrite))
	apiRoutes.GET("/graphs/:id/filter", routes.FilterGraphHandler, middleware.RequirePermission(middleware.PermGraphRead))

	// Community routes
	apiRoutes.GET("/graphs/:id/communities", routes.GetCommunitiesHandler, middleware.RequirePermission(middleware.PermGraphRead))
	apiRoutes.POST("/graphs/:id/communities/rebuild", routes.RebuildCommunitiesHandler, middleware.RequirePermission(middleware.PermGraphWrite))

	// Query routes
	apiRoutes.POST("/graphs/:id/query", routes.QueryGraphHandler, middleware.RequirePermission(middleware.PermGraphQuery))
	apiRoutes.POST("/graphs/:id/query/stream", routes.QueryGraphStreamHandler, middleware.RequirePermission(middleware.PermGraphQuery))

	// Snapshot routes
	apiRoutes.GET("/graphs/:id/snapshots", routes.GetSnapshotsHandler, middleware.RequirePermission(middleware.PermGraphRead))
	apiRoutes.POST("/graphs/:id/snapshot", routes.CreateSnapshotHandler, middleware.RequirePermission(middleware.PermGraphRead))
}
