package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// LintHandler checks an uploaded concept file against the schema and
// returns the warnings.
func LintHandler(c echo.Context) error {
	type lintResponse struct {
		Message string            `json:"message,omitempty"`
		Report  *graph.LintReport `json:"report,omitempty"`
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, lintResponse{Message: "A file is required"})
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, lintResponse{Message: "Invalid request body"})
	}
	defer src.Close()

	app := c.(*middleware.AppContext).App
	schema := app.Schema
	if schema == nil {
		schema = graph.VocabularySchema{Vocabulary: app.Vocab}
	}

	report, err := graph.Lint(c.Request().Context(), src, file.Filename, schema)
	if err != nil {
		logger.Warn("[Server] Failed to lint file", "file", file.Filename, "err", err)
		return c.JSON(http.StatusUnprocessableEntity, lintResponse{Message: err.Error()})
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}
	return c.JSON(http.StatusOK, lintResponse{Report: report})
}
