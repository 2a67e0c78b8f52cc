package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks one queued build of a knowledge base.
type Job struct {
	CorrelationID string    `json:"correlation_id"`
	KnowledgeBase string    `json:"kb"`
	Operation     string    `json:"operation"`
	Status        JobStatus `json:"status"`
	Concepts      int       `json:"concepts"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type JobStore struct {
	conn pgxIConn
}

func NewJobStore(conn pgxIConn) *JobStore {
	return &JobStore{conn: conn}
}

func (s *JobStore) CreateJob(ctx context.Context, correlationID, kb, operation string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO jobs (correlation_id, kb, operation, status)
		VALUES ($1, $2, $3, $4)`, correlationID, kb, operation, JobPending)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", correlationID, err)
	}
	return nil
}

// ClaimJob moves a pending or failed job to running. It reports false
// when the job is already running or completed.
func (s *JobStore) ClaimJob(ctx context.Context, correlationID string) (bool, error) {
	tag, err := s.conn.Exec(ctx, `
		UPDATE jobs SET status = $2, error = '', updated_at = now()
		WHERE correlation_id = $1 AND status IN ($3, $4)`,
		correlationID, JobRunning, JobPending, JobFailed)
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", correlationID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *JobStore) CompleteJob(ctx context.Context, correlationID string, concepts int) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE jobs SET status = $2, concepts = $3, updated_at = now()
		WHERE correlation_id = $1`, correlationID, JobCompleted, concepts)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", correlationID, err)
	}
	return nil
}

func (s *JobStore) FailJob(ctx context.Context, correlationID string, cause error) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE jobs SET status = $2, error = $3, updated_at = now()
		WHERE correlation_id = $1`, correlationID, JobFailed, util.SanitizePostgresText(cause.Error()))
	if err != nil {
		return fmt.Errorf("failed to mark job %s as failed: %w", correlationID, err)
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, correlationID string) (*Job, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT correlation_id, kb, operation, status, concepts, error, created_at, updated_at
		FROM jobs WHERE correlation_id = $1`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", correlationID, err)
	}
	job, err := pgxv5.CollectExactlyOneRow(rows, pgxv5.RowToAddrOfStructByPos[Job])
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", correlationID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job %s: %w", correlationID, err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs of kb, newest first.
func (s *JobStore) ListJobs(ctx context.Context, kb string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	jobs, err := collect[Job](ctx, s.conn, `
		SELECT correlation_id, kb, operation, status, concepts, error, created_at, updated_at
		FROM jobs WHERE kb = $1 ORDER BY created_at DESC LIMIT $2`, kb, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs of %s: %w", kb, err)
	}
	return jobs, nil
}
