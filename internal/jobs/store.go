// Package jobs owns job persistence and the job lifecycle.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/vikramraman/graphpredict/pkg/models"
)

var (
	// ErrNotFound is returned when no job record exists for an ID.
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyTerminal is returned when cancelling a completed, failed,
	// or cancelled job.
	ErrAlreadyTerminal = errors.New("job already in a terminal state")
	// ErrNotCompleted is returned when results are requested before the
	// job has completed.
	ErrNotCompleted = errors.New("job not completed")
)

// Store is the job persistence interface. Callers always read-modify-write
// whole records; Put is atomic with respect to concurrent Gets of the same
// key. Implementations must be safe for concurrent use.
type Store interface {
	// Put upserts the full record, refreshing any expiry window.
	Put(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, jobID string) (*models.Job, bool, error)
	// ScanAll returns all live job records; used only for aggregate
	// queue reporting.
	ScanAll(ctx context.Context) ([]*models.Job, error)
	Ping(ctx context.Context) error
	// Name identifies the backend ("redis" or "memory") for /health.
	Name() string
}

// JobKey builds the storage key for a job record.
func JobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}
