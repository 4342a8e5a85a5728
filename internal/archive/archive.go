// Package archive persists terminal job records to Postgres so results
// outlive the primary store's retention window. The archive is optional;
// the service runs without it.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vikramraman/graphpredict/pkg/models"
)

var ErrNotFound = errors.New("archived job not found")

// Archive stores terminal job records in Postgres.
type Archive struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// New creates an Archive backed by the given pool.
func New(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

func (a *Archive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// ArchiveJob upserts a terminal job record. Workers and the cancel path may
// both write the same job; the last write wins, mirroring the primary store.
func (a *Archive) ArchiveJob(ctx context.Context, job *models.Job) error {
	predictions, err := json.Marshal(job.Predictions)
	if err != nil {
		return fmt.Errorf("encoding predictions for %s: %w", job.ID, err)
	}
	entities, err := json.Marshal(job.Entities)
	if err != nil {
		return fmt.Errorf("encoding entities for %s: %w", job.ID, err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO job_archive (
			job_id, status, prediction_type, priority, entities,
			predictions, result_count, error_message,
			created_at, started_at, completed_at, failed_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			predictions = EXCLUDED.predictions,
			result_count = EXCLUDED.result_count,
			error_message = EXCLUDED.error_message,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			failed_at = EXCLUDED.failed_at,
			cancelled_at = EXCLUDED.cancelled_at`,
		job.ID, job.Status, job.PredictionType, job.Priority, entities,
		predictions, job.ResultCount, nullable(job.Error),
		job.CreatedAt, job.StartedAt, job.CompletedAt, job.FailedAt, job.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("archiving job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob reads an archived job back into its record form.
func (a *Archive) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var (
		job          models.Job
		entities     []byte
		predictions  []byte
		errorMessage *string
	)

	err := a.pool.QueryRow(ctx, `
		SELECT job_id, status, prediction_type, priority, entities,
		       predictions, result_count, error_message,
		       created_at, started_at, completed_at, failed_at, cancelled_at
		FROM job_archive WHERE job_id = $1`, jobID,
	).Scan(
		&job.ID, &job.Status, &job.PredictionType, &job.Priority, &entities,
		&predictions, &job.ResultCount, &errorMessage,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.FailedAt, &job.CancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading archived job %s: %w", jobID, err)
	}

	if err := json.Unmarshal(entities, &job.Entities); err != nil {
		return nil, fmt.Errorf("decoding entities for %s: %w", jobID, err)
	}
	if len(predictions) > 0 {
		if err := json.Unmarshal(predictions, &job.Predictions); err != nil {
			return nil, fmt.Errorf("decoding predictions for %s: %w", jobID, err)
		}
	}
	if errorMessage != nil {
		job.Error = *errorMessage
	}

	return &job, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
