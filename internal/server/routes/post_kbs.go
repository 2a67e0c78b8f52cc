package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/idisk/backend/internal/queue"
	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// ExportKnowledgeBaseHandler queues an export of a stored knowledge base.
func ExportKnowledgeBaseHandler(c echo.Context) error {
	type exportParams struct {
		KnowledgeBase string   `param:"kb" validate:"required"`
		Exports       []string `json:"exports" validate:"required,min=1,dive,oneof=jsonl rrf neo4j"`
	}

	data := new(exportParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request body"})
	}

	correlationID, err := queue.NewCorrelationID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}
	msg := queue.ExportJobMsg{
		CorrelationID: correlationID,
		KnowledgeBase: data.KnowledgeBase,
		Exports:       data.Exports,
	}

	app := c.(*middleware.AppContext).App
	if err := enqueue(c.Request().Context(), app, queue.ExportQueue, correlationID, data.KnowledgeBase, "export", msg); err != nil {
		logger.Error("[Server] Failed to queue export job", "kb", data.KnowledgeBase, "err", err)
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusAccepted, jobResponse{Message: "Export job queued", CorrelationID: correlationID})
}
