package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/idisk/backend/internal/queue"
	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// DeleteKnowledgeBaseHandler queues the removal of a knowledge base and
// its outputs. The worker waits for running jobs of the same knowledge
// base.
func DeleteKnowledgeBaseHandler(c echo.Context) error {
	type deleteParams struct {
		KnowledgeBase string `param:"kb" validate:"required"`
	}

	data := new(deleteParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request params"})
	}

	correlationID, err := queue.NewCorrelationID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}
	msg := queue.DeleteJobMsg{CorrelationID: correlationID, KnowledgeBase: data.KnowledgeBase}

	app := c.(*middleware.AppContext).App
	if err := enqueue(c.Request().Context(), app, queue.DeleteQueue, correlationID, data.KnowledgeBase, "delete", msg); err != nil {
		logger.Error("[Server] Failed to queue delete job", "kb", data.KnowledgeBase, "err", err)
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusAccepted, jobResponse{Message: "Delete job queued", CorrelationID: correlationID})
}
