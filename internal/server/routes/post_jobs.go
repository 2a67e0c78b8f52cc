package routes

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/idisk/backend/internal/queue"
	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/internal/storage"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// uploadKey names the object of an uploaded file below prefix. Browsers
// send base names only, tag keeps equal names of one job apart.
func uploadKey(prefix, tag, filename string) string {
	return path.Join(prefix, tag+"_"+path.Base(filename))
}

// conceptKeys tags concept files with their form position, which is also
// their load order.
func conceptKeys(prefix string, files []*multipart.FileHeader) []string {
	keys := make([]string, len(files))
	for i, file := range files {
		keys[i] = uploadKey(prefix, fmt.Sprintf("%03d", i), file.Filename)
	}
	return keys
}

// CreateMergeJobHandler uploads concept files, and optionally a
// connections file and an annotations file, and queues a merge job.
func CreateMergeJobHandler(c echo.Context) error {
	type createMergeJobBody struct {
		KnowledgeBase string   `form:"kb" validate:"required,max=128,excludesall=/\\,ne=.,ne=.."`
		Operation     string   `form:"operation" validate:"required,oneof=union intersection difference"`
		FilterBasic   bool     `form:"filter_basic"`
		RemoveSource  string   `form:"remove_source"`
		IgnoreTypes   []string `form:"ignore_types"`
		Exports       []string `form:"exports" validate:"dive,oneof=jsonl rrf neo4j"`
	}

	data := new(createMergeJobBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request body"})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "Invalid request body"})
	}
	conceptFiles := form.File["concept_files"]
	if len(conceptFiles) == 0 {
		return c.JSON(http.StatusBadRequest, jobResponse{Message: "At least one concept file is required"})
	}

	correlationID, err := queue.NewCorrelationID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	uploadPrefix := path.Join("uploads", correlationID)

	upload := func(file *multipart.FileHeader, key string) error {
		src, err := file.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		return storage.PutFile(ctx, app.S3, key, src)
	}

	msg := queue.MergeJobMsg{
		CorrelationID: correlationID,
		KnowledgeBase: data.KnowledgeBase,
		Operation:     data.Operation,
		FilterBasic:   data.FilterBasic,
		RemoveSource:  data.RemoveSource,
		IgnoreTypes:   data.IgnoreTypes,
		Exports:       data.Exports,
	}
	msg.ConceptFiles = conceptKeys(uploadPrefix, conceptFiles)
	for i, file := range conceptFiles {
		if err := upload(file, msg.ConceptFiles[i]); err != nil {
			logger.Error("[Server] Failed to upload concept file", "file", file.Filename, "err", err)
			return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
		}
	}
	for field, target := range map[string]*string{
		"connections_file": &msg.ConnectionsFile,
		"annotations_file": &msg.AnnotationsFile,
	} {
		files := form.File[field]
		if len(files) == 0 {
			continue
		}
		key := uploadKey(uploadPrefix, strings.TrimSuffix(field, "_file"), files[0].Filename)
		if err := upload(files[0], key); err != nil {
			logger.Error("[Server] Failed to upload file", "field", field, "err", err)
			return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
		}
		*target = key
	}

	if err := enqueue(ctx, app, queue.MergeQueue, correlationID, msg.KnowledgeBase, msg.Operation, msg); err != nil {
		logger.Error("[Server] Failed to queue merge job", "correlation_id", correlationID, "err", err)
		return c.JSON(http.StatusInternalServerError, jobResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, jobResponse{
		Message:       "Merge job queued",
		CorrelationID: correlationID,
	})
}
