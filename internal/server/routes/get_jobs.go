package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/idisk/backend/internal/queue"
	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/internal/storage"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store"
	pgstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/pgx"
)

type jobOutput struct {
	Key  string `json:"key"`
	Link string `json:"link,omitempty"`
}

// GetJobHandler returns the state of a job and, once it completed, links
// to its outputs.
func GetJobHandler(c echo.Context) error {
	type getJobParams struct {
		ID string `param:"id" validate:"required"`
	}
	type getJobResponse struct {
		Message string       `json:"message,omitempty"`
		Job     *pgstore.Job `json:"job,omitempty"`
		Outputs []jobOutput  `json:"outputs,omitempty"`
	}

	data := new(getJobParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getJobResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, getJobResponse{Message: "Invalid request params"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	job, err := pgstore.NewJobStore(app.DBConn).GetJob(ctx, data.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getJobResponse{Message: "Job not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to get job", "correlation_id", data.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getJobResponse{Message: "Internal server error"})
	}

	resp := getJobResponse{Job: job}
	if job.Status == pgstore.JobCompleted {
		keys, err := storage.ListFilesWithPrefix(ctx, app.S3, queue.ResultPrefix(job.KnowledgeBase, job.CorrelationID))
		if err != nil {
			logger.Warn("[Server] Failed to list job outputs", "correlation_id", job.CorrelationID, "err", err)
		}
		for _, key := range keys {
			out := jobOutput{Key: key}
			if link, err := storage.GenerateDownloadLink(ctx, app.S3, key); err == nil {
				out.Link = link
			}
			resp.Outputs = append(resp.Outputs, out)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func GetKnowledgeBaseJobsHandler(c echo.Context) error {
	type getJobsParams struct {
		KnowledgeBase string `param:"kb" validate:"required"`
		Limit         int    `query:"limit" validate:"omitempty,min=1,max=500"`
	}
	type getJobsResponse struct {
		Message string        `json:"message,omitempty"`
		Jobs    []pgstore.Job `json:"jobs"`
	}

	data := new(getJobsParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getJobsResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, getJobsResponse{Message: "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	jobs, err := pgstore.NewJobStore(app.DBConn).ListJobs(c.Request().Context(), data.KnowledgeBase, data.Limit)
	if err != nil {
		logger.Error("[Server] Failed to list jobs", "kb", data.KnowledgeBase, "err", err)
		return c.JSON(http.StatusInternalServerError, getJobsResponse{Message: "Internal server error"})
	}
	if jobs == nil {
		jobs = []pgstore.Job{}
	}
	return c.JSON(http.StatusOK, getJobsResponse{Jobs: jobs})
}
