package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vikramraman/graphpredict/internal/metrics"
	"github.com/vikramraman/graphpredict/pkg/models"
)

// PredictorFactory resolves a prediction type to a strategy.
type PredictorFactory func(predictionType string) models.Predictor

// Archiver receives terminal job records for retention beyond the primary
// store's expiry window. Implementations must tolerate repeated writes for
// the same job ID.
type Archiver interface {
	ArchiveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
}

// Manager owns the job state machine. It mediates all record access through
// the Store and spawns one worker goroutine per submitted job. Within a job
// the record writes are strictly ordered by the owning worker; cancellation
// is advisory only and an in-flight worker's terminal write wins the race.
type Manager struct {
	store        Store
	newPredictor PredictorFactory
	archive      Archiver // nil when no archive is configured

	// sem bounds in-flight workers when non-nil; jobs hold queued status
	// until a slot frees. Nil preserves unbounded worker-per-job.
	sem chan struct{}
}

// QueueStatus is the aggregate view over all live job records.
type QueueStatus struct {
	TotalJobs    int            `json:"total_jobs"`
	StatusCounts map[string]int `json:"status_counts"`
	QueuedJobs   []JobSummary   `json:"queued_jobs"`
}

// JobSummary is the per-job line item reported by QueueStatus.
type JobSummary struct {
	JobID          string    `json:"job_id"`
	PredictionType string    `json:"prediction_type"`
	EntityCount    int       `json:"entity_count"`
	Priority       string    `json:"priority"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewManager creates a Manager. maxConcurrent <= 0 means unbounded.
func NewManager(store Store, factory PredictorFactory, archive Archiver, maxConcurrent int) *Manager {
	m := &Manager{
		store:        store,
		newPredictor: factory,
		archive:      archive,
	}
	if maxConcurrent > 0 {
		m.sem = make(chan struct{}, maxConcurrent)
	}
	return m
}

// Submit creates a queued job record and dispatches a worker goroutine.
// It returns as soon as the record is durably written.
func (m *Manager) Submit(ctx context.Context, predictionType string, entities []models.Entity, priority string) (*models.Job, error) {
	job := &models.Job{
		ID:             models.NewJobID(),
		Status:         models.JobStatusQueued,
		PredictionType: predictionType,
		Entities:       entities,
		Priority:       priority,
		CreatedAt:      time.Now().UTC(),
	}

	if err := m.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job record: %w", err)
	}

	metrics.JobsSubmitted.WithLabelValues(predictionType).Inc()

	go m.runJob(job.Clone())

	return job, nil
}

// runJob drives one job through processing to a terminal state. Failures are
// contained: they terminate only this job and are recorded on its record.
func (m *Manager) runJob(job *models.Job) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in job worker", "error", r, "job_id", job.ID)
			m.markFailed(ctx, job, fmt.Sprintf("panic: %v", r))
		}
	}()

	if m.sem != nil {
		m.sem <- struct{}{}
		defer func() { <-m.sem }()
	}

	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	started := time.Now().UTC()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &started
	if err := m.store.Put(ctx, job); err != nil {
		slog.Error("failed to mark job processing", "job_id", job.ID, "error", err)
	}

	entityIDs := make([]string, len(job.Entities))
	for i, e := range job.Entities {
		entityIDs[i] = e.EntityID
	}

	predictor := m.newPredictor(job.PredictionType)
	results, err := predictor.Predict(ctx, entityIDs)
	if err != nil {
		m.markFailed(ctx, job, err.Error())
		metrics.JobDuration.Observe(time.Since(started).Seconds())
		return
	}

	completed := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &completed
	job.Predictions = results
	job.ResultCount = len(results)
	if err := m.store.Put(ctx, job); err != nil {
		slog.Error("failed to mark job completed", "job_id", job.ID, "error", err)
	}

	metrics.JobsCompleted.Inc()
	metrics.JobDuration.Observe(time.Since(started).Seconds())
	m.archiveTerminal(ctx, job)

	slog.Info("job completed",
		"job_id", job.ID,
		"prediction_type", job.PredictionType,
		"strategy", predictor.Name(),
		"entity_count", len(job.Entities),
		"result_count", job.ResultCount,
	)
}

func (m *Manager) markFailed(ctx context.Context, job *models.Job, msg string) {
	failed := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.FailedAt = &failed
	job.Error = msg
	if err := m.store.Put(ctx, job); err != nil {
		slog.Error("failed to mark job failed", "job_id", job.ID, "error", err)
	}

	metrics.JobsFailed.Inc()
	m.archiveTerminal(ctx, job)

	slog.Warn("job failed", "job_id", job.ID, "error", msg)
}

func (m *Manager) archiveTerminal(ctx context.Context, job *models.Job) {
	if m.archive == nil {
		return
	}
	if err := m.archive.ArchiveJob(ctx, job); err != nil {
		slog.Error("failed to archive job", "job_id", job.ID, "error", err)
	}
}

// Get returns the job record, falling back to the archive for records that
// have already expired from the primary store.
func (m *Manager) Get(ctx context.Context, jobID string) (*models.Job, error) {
	job, found, err := m.store.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("reading job record: %w", err)
	}
	if found {
		return job, nil
	}

	if m.archive != nil {
		archived, err := m.archive.GetJob(ctx, jobID)
		if err == nil {
			return archived, nil
		}
	}

	return nil, ErrNotFound
}

// Results returns the job record once completed. A known job that has not
// completed yet is a client error, distinct from an unknown job.
func (m *Manager) Results(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := m.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCompleted, job.Status)
	}
	return job, nil
}

// Cancel flips a non-terminal job to cancelled. The in-flight worker is not
// interrupted; if the job is already processing, the worker's terminal write
// will overwrite the cancelled status when it finishes.
func (m *Manager) Cancel(ctx context.Context, jobID string) (*models.Job, error) {
	job, found, err := m.store.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("reading job record: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	if job.Terminal() {
		return nil, fmt.Errorf("%w: status is %s", ErrAlreadyTerminal, job.Status)
	}

	cancelled := time.Now().UTC()
	job.Status = models.JobStatusCancelled
	job.CancelledAt = &cancelled
	if err := m.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("writing cancelled record: %w", err)
	}

	metrics.JobsCancelled.Inc()
	m.archiveTerminal(ctx, job)

	return job, nil
}

// QueueStatus aggregates all live records: counts per status plus summaries
// of jobs still waiting in the queue. O(N) over the job population.
func (m *Manager) QueueStatus(ctx context.Context) (*QueueStatus, error) {
	all, err := m.store.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning job records: %w", err)
	}

	qs := &QueueStatus{
		TotalJobs: len(all),
		StatusCounts: map[string]int{
			models.JobStatusQueued:     0,
			models.JobStatusProcessing: 0,
			models.JobStatusCompleted:  0,
			models.JobStatusFailed:     0,
			models.JobStatusCancelled:  0,
		},
		QueuedJobs: []JobSummary{},
	}

	for _, job := range all {
		qs.StatusCounts[job.Status]++
		if job.Status == models.JobStatusQueued {
			qs.QueuedJobs = append(qs.QueuedJobs, JobSummary{
				JobID:          job.ID,
				PredictionType: job.PredictionType,
				EntityCount:    len(job.Entities),
				Priority:       job.Priority,
				CreatedAt:      job.CreatedAt,
			})
		}
	}

	return qs, nil
}
