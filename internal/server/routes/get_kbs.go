package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store"
	pgstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/pgx"
)

func conceptStorage(app *middleware.App) *pgstore.ConceptDBStorage {
	return pgstore.NewConceptDBStorageWithConnection(app.DBConn, pgstore.WithVocabulary(app.Vocab))
}

func GetKnowledgeBasesHandler(c echo.Context) error {
	type getKnowledgeBasesResponse struct {
		Message        string                `json:"message,omitempty"`
		KnowledgeBases []store.KnowledgeBase `json:"kbs"`
	}

	app := c.(*middleware.AppContext).App
	kbs, err := conceptStorage(app).ListKnowledgeBases(c.Request().Context())
	if err != nil {
		logger.Error("[Server] Failed to list knowledge bases", "err", err)
		return c.JSON(http.StatusInternalServerError, getKnowledgeBasesResponse{Message: "Internal server error"})
	}
	if kbs == nil {
		kbs = []store.KnowledgeBase{}
	}
	return c.JSON(http.StatusOK, getKnowledgeBasesResponse{KnowledgeBases: kbs})
}

// GetConceptHandler returns one concept as a JSON lines record.
func GetConceptHandler(c echo.Context) error {
	type getConceptParams struct {
		KnowledgeBase string `param:"kb" validate:"required"`
		UI            string `param:"ui" validate:"required"`
	}
	type getConceptResponse struct {
		Message string        `json:"message,omitempty"`
		Concept *jsonl.Record `json:"concept,omitempty"`
	}

	data := new(getConceptParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getConceptResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, getConceptResponse{Message: "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	concept, err := conceptStorage(app).GetConcept(c.Request().Context(), data.KnowledgeBase, data.UI)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getConceptResponse{Message: "Concept not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to get concept", "kb", data.KnowledgeBase, "ui", data.UI, "err", err)
		return c.JSON(http.StatusInternalServerError, getConceptResponse{Message: "Internal server error"})
	}

	rec := jsonl.FromConcept(concept)
	return c.JSON(http.StatusOK, getConceptResponse{Concept: &rec})
}

// GetKnowledgeBaseStatsHandler counts concepts, atoms by source and
// attribute and relationship names of a stored knowledge base.
func GetKnowledgeBaseStatsHandler(c echo.Context) error {
	type getStatsParams struct {
		KnowledgeBase string `param:"kb" validate:"required"`
	}
	type getStatsResponse struct {
		Message string        `json:"message,omitempty"`
		Stats   *graph.Counts `json:"stats,omitempty"`
	}

	data := new(getStatsParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getStatsResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, getStatsResponse{Message: "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	concepts, err := conceptStorage(app).LoadConcepts(c.Request().Context(), data.KnowledgeBase, common.NewIDAllocator())
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getStatsResponse{Message: "Knowledge base not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load knowledge base", "kb", data.KnowledgeBase, "err", err)
		return c.JSON(http.StatusInternalServerError, getStatsResponse{Message: "Internal server error"})
	}

	counts := graph.Count(concepts)
	return c.JSON(http.StatusOK, getStatsResponse{Stats: &counts})
}
