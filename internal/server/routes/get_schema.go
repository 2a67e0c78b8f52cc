package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// GetSchemaHandler serves the JSON Schema of a concept record.
func GetSchemaHandler(c echo.Context) error {
	schema, err := jsonl.Schema()
	if err != nil {
		logger.Error("[Server] Failed to build schema", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSONBlob(http.StatusOK, schema)
}
