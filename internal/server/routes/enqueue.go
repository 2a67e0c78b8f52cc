package routes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/idisk/backend/internal/queue"
	"github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	pgstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/pgx"
)

// enqueue records a pending job and publishes msg to queueName.
func enqueue(ctx context.Context, app *middleware.App, queueName, correlationID, kb, operation string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := pgstore.NewJobStore(app.DBConn).CreateJob(ctx, correlationID, kb, operation); err != nil {
		return err
	}
	if err := queue.PublishFIFO(app.Queue, queueName, body); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

type jobResponse struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
