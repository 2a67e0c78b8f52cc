package server

import (
	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Job routes
	apiRoutes.POST("/jobs", routes.CreateMergeJobHandler, middleware.RequirePermission(middleware.PermissionCreate))
	apiRoutes.GET("/jobs/:id", routes.GetJobHandler, middleware.RequirePermission(middleware.PermissionView))

	// Knowledge base routes
	apiRoutes.GET("/kbs", routes.GetKnowledgeBasesHandler, middleware.RequirePermission(middleware.PermissionView))
	apiRoutes.GET("/kbs/:kb/jobs", routes.GetKnowledgeBaseJobsHandler, middleware.RequirePermission(middleware.PermissionView))
	apiRoutes.GET("/kbs/:kb/stats", routes.GetKnowledgeBaseStatsHandler, middleware.RequirePermission(middleware.PermissionView))
	apiRoutes.GET("/kbs/:kb/concepts/:ui", routes.GetConceptHandler, middleware.RequirePermission(middleware.PermissionView))
	apiRoutes.POST("/kbs/:kb/export", routes.ExportKnowledgeBaseHandler, middleware.RequirePermission(middleware.PermissionExport))
	apiRoutes.DELETE("/kbs/:kb", routes.DeleteKnowledgeBaseHandler, middleware.RequirePermission(middleware.PermissionDelete))

	// Schema routes
	apiRoutes.GET("/schema", routes.GetSchemaHandler)
	apiRoutes.POST("/lint", routes.LintHandler)
}
