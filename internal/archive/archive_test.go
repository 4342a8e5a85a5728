package archive_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vikramraman/graphpredict/internal/archive"
	"github.com/vikramraman/graphpredict/pkg/models"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("graphpredict_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = archive.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func terminalJob(id, status string) *models.Job {
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	completed := created.Add(2 * time.Second)
	job := &models.Job{
		ID:             id,
		Status:         status,
		PredictionType: "ising",
		Entities: []models.Entity{
			{EntityID: "E-1"},
			{EntityID: "E-2", Extra: map[string]any{"sector": "energy"}},
		},
		Priority:  models.PriorityNormal,
		CreatedAt: created,
	}
	if status == models.JobStatusCompleted {
		job.CompletedAt = &completed
		job.Predictions = []models.PredictionResult{
			{EntityID: "E-1", Prediction: models.LabelWillFlip, Confidence: 0.82, Timestamp: completed},
			{EntityID: "E-2", Prediction: models.LabelStable, Confidence: 0.4, Timestamp: completed},
		}
		job.ResultCount = 2
	}
	return job
}

func TestArchiveJob_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	a := archive.New(pool)
	ctx := context.Background()

	job := terminalJob("JOB-abc123def456", models.JobStatusCompleted)
	require.NoError(t, a.ArchiveJob(ctx, job))

	got, err := a.GetJob(ctx, "JOB-abc123def456")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, "ising", got.PredictionType)
	assert.Len(t, got.Entities, 2)
	assert.Equal(t, "energy", got.Entities[1].Extra["sector"])
	require.Len(t, got.Predictions, 2)
	assert.Equal(t, models.LabelWillFlip, got.Predictions[0].Prediction)
	assert.InDelta(t, 0.82, got.Predictions[0].Confidence, 1e-9)
	assert.Equal(t, 2, got.ResultCount)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(*job.CompletedAt))
}

func TestArchiveJob_UpsertOverwrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	a := archive.New(pool)
	ctx := context.Background()

	cancelled := terminalJob("JOB-abc123def456", models.JobStatusCancelled)
	now := time.Now().UTC().Truncate(time.Millisecond)
	cancelled.CancelledAt = &now
	require.NoError(t, a.ArchiveJob(ctx, cancelled))

	// A racing worker finishing after cancellation overwrites the record.
	completed := terminalJob("JOB-abc123def456", models.JobStatusCompleted)
	require.NoError(t, a.ArchiveJob(ctx, completed))

	got, err := a.GetJob(ctx, "JOB-abc123def456")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 2, got.ResultCount)
}

func TestArchiveJob_FailedWithError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	a := archive.New(pool)
	ctx := context.Background()

	failed := time.Now().UTC().Truncate(time.Millisecond)
	job := terminalJob("JOB-abc123def456", models.JobStatusFailed)
	job.FailedAt = &failed
	job.Error = "graph store unreachable"
	require.NoError(t, a.ArchiveJob(ctx, job))

	got, err := a.GetJob(ctx, "JOB-abc123def456")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "graph store unreachable", got.Error)
	assert.Empty(t, got.Predictions)
}

func TestGetJob_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	a := archive.New(pool)

	_, err := a.GetJob(context.Background(), "JOB-nope")
	assert.ErrorIs(t, err, archive.ErrNotFound)
}
