package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vikramraman/graphpredict/internal/jobs"
	"github.com/vikramraman/graphpredict/pkg/models"
)

// --- stub JobService ---

type stubService struct {
	submitFn      func(ctx context.Context, predictionType string, entities []models.Entity, priority string) (*models.Job, error)
	getFn         func(ctx context.Context, jobID string) (*models.Job, error)
	resultsFn     func(ctx context.Context, jobID string) (*models.Job, error)
	cancelFn      func(ctx context.Context, jobID string) (*models.Job, error)
	queueStatusFn func(ctx context.Context) (*jobs.QueueStatus, error)
}

func (s *stubService) Submit(ctx context.Context, predictionType string, entities []models.Entity, priority string) (*models.Job, error) {
	return s.submitFn(ctx, predictionType, entities, priority)
}

func (s *stubService) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return s.getFn(ctx, jobID)
}

func (s *stubService) Results(ctx context.Context, jobID string) (*models.Job, error) {
	return s.resultsFn(ctx, jobID)
}

func (s *stubService) Cancel(ctx context.Context, jobID string) (*models.Job, error) {
	return s.cancelFn(ctx, jobID)
}

func (s *stubService) QueueStatus(ctx context.Context) (*jobs.QueueStatus, error) {
	return s.queueStatusFn(ctx)
}

// --- helpers ---

// routed mounts the handler on a throwaway chi router so URL params resolve.
func routed(method, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	return r
}

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return env.Error.Code
}

func completedJob(id string) *models.Job {
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	completed := created.Add(3 * time.Second)
	return &models.Job{
		ID:             id,
		Status:         models.JobStatusCompleted,
		PredictionType: "ising",
		Entities:       []models.Entity{{EntityID: "E-1"}, {EntityID: "E-2"}},
		Priority:       models.PriorityNormal,
		CreatedAt:      created,
		StartedAt:      &started,
		CompletedAt:    &completed,
		Predictions: []models.PredictionResult{
			{EntityID: "E-1", Prediction: models.LabelWillFlip, Confidence: 0.82, Timestamp: completed},
		},
		ResultCount: 1,
	}
}

// --- submit ---

func TestSubmitHandler_Accepted(t *testing.T) {
	var gotType, gotPriority string
	svc := &stubService{
		submitFn: func(_ context.Context, predictionType string, entities []models.Entity, priority string) (*models.Job, error) {
			gotType, gotPriority = predictionType, priority
			return &models.Job{
				ID:             "JOB-abc123def456",
				Status:         models.JobStatusQueued,
				PredictionType: predictionType,
				Entities:       entities,
				Priority:       priority,
				CreatedAt:      time.Now().UTC(),
			}, nil
		},
	}

	h := routed(http.MethodPost, "/api/v1/predict/batch/{predictionType}", NewSubmitHandler(svc))
	rec := httptest.NewRecorder()

	body := map[string]any{
		"entities": []map[string]any{
			{"entity_id": "E-1"},
			{"entity_id": "E-2", "sector": "energy"},
			{"entity_id": "E-3"},
		},
	}
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/predict/batch/ising", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotType != "ising" {
		t.Errorf("prediction type not forwarded: %q", gotType)
	}
	if gotPriority != models.PriorityNormal {
		t.Errorf("expected default priority, got %q", gotPriority)
	}

	data := decodeBody(t, rec)
	if data["success"] != true {
		t.Errorf("expected success=true")
	}
	if data["job_id"] != "JOB-abc123def456" {
		t.Errorf("unexpected job_id: %v", data["job_id"])
	}
	if data["status"] != "queued" {
		t.Errorf("unexpected status: %v", data["status"])
	}
	if data["entity_count"] != float64(3) {
		t.Errorf("unexpected entity_count: %v", data["entity_count"])
	}
	if data["check_status_url"] != "/api/v1/jobs/JOB-abc123def456" {
		t.Errorf("unexpected check_status_url: %v", data["check_status_url"])
	}
}

func TestSubmitHandler_EmptyEntities(t *testing.T) {
	svc := &stubService{}
	h := routed(http.MethodPost, "/api/v1/predict/batch/{predictionType}", NewSubmitHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/predict/batch/ising",
		map[string]any{"entities": []any{}}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("unexpected error code: %s", code)
	}
}

func TestSubmitHandler_InvalidJSON(t *testing.T) {
	svc := &stubService{}
	h := routed(http.MethodPost, "/api/v1/predict/batch/{predictionType}", NewSubmitHandler(svc))
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/predict/batch/ising",
		bytes.NewReader([]byte("{not json")))
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitHandler_InvalidPriority(t *testing.T) {
	svc := &stubService{}
	h := routed(http.MethodPost, "/api/v1/predict/batch/{predictionType}", NewSubmitHandler(svc))
	rec := httptest.NewRecorder()

	body := map[string]any{
		"entities": []map[string]any{{"entity_id": "E-1"}},
		"priority": "urgent",
	}
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/predict/batch/ising", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// --- status ---

func TestStatusHandler_CompletedFields(t *testing.T) {
	svc := &stubService{
		getFn: func(_ context.Context, jobID string) (*models.Job, error) {
			return completedJob(jobID), nil
		},
	}
	h := routed(http.MethodGet, "/api/v1/jobs/{jobID}", NewStatusHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/JOB-abc123", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)
	if data["status"] != "completed" {
		t.Errorf("unexpected status: %v", data["status"])
	}
	if data["result_count"] != float64(1) {
		t.Errorf("unexpected result_count: %v", data["result_count"])
	}
	if data["get_results_url"] != "/api/v1/jobs/JOB-abc123/results" {
		t.Errorf("unexpected get_results_url: %v", data["get_results_url"])
	}
	if _, ok := data["error"]; ok {
		t.Errorf("completed job must not carry an error field")
	}
}

func TestStatusHandler_ProcessingFields(t *testing.T) {
	started := time.Date(2025, 6, 1, 10, 0, 1, 0, time.UTC)
	svc := &stubService{
		getFn: func(_ context.Context, jobID string) (*models.Job, error) {
			return &models.Job{
				ID:             jobID,
				Status:         models.JobStatusProcessing,
				PredictionType: "ews",
				Entities:       []models.Entity{{EntityID: "E-1"}},
				Priority:       models.PriorityNormal,
				CreatedAt:      started.Add(-time.Second),
				StartedAt:      &started,
			}, nil
		},
	}
	h := routed(http.MethodGet, "/api/v1/jobs/{jobID}", NewStatusHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/JOB-abc123", nil))

	data := decodeBody(t, rec)
	if data["started_at"] != "2025-06-01T10:00:01Z" {
		t.Errorf("unexpected started_at: %v", data["started_at"])
	}
	if _, ok := data["result_count"]; ok {
		t.Errorf("processing job must not carry result_count")
	}
}

func TestStatusHandler_FailedFields(t *testing.T) {
	failed := time.Date(2025, 6, 1, 10, 0, 5, 0, time.UTC)
	svc := &stubService{
		getFn: func(_ context.Context, jobID string) (*models.Job, error) {
			return &models.Job{
				ID:             jobID,
				Status:         models.JobStatusFailed,
				PredictionType: "cascade",
				Entities:       []models.Entity{{EntityID: "E-1"}},
				Priority:       models.PriorityNormal,
				CreatedAt:      failed.Add(-5 * time.Second),
				FailedAt:       &failed,
				Error:          "graph store unreachable",
			}, nil
		},
	}
	h := routed(http.MethodGet, "/api/v1/jobs/{jobID}", NewStatusHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/JOB-abc123", nil))

	data := decodeBody(t, rec)
	if data["error"] != "graph store unreachable" {
		t.Errorf("unexpected error: %v", data["error"])
	}
	if data["failed_at"] != "2025-06-01T10:00:05Z" {
		t.Errorf("unexpected failed_at: %v", data["failed_at"])
	}
}

func TestStatusHandler_NotFound(t *testing.T) {
	svc := &stubService{
		getFn: func(_ context.Context, _ string) (*models.Job, error) {
			return nil, jobs.ErrNotFound
		},
	}
	h := routed(http.MethodGet, "/api/v1/jobs/{jobID}", NewStatusHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/JOB-unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "JOB_NOT_FOUND" {
		t.Errorf("unexpected error code: %s", code)
	}
}

// --- results ---

func TestResultsHandler_Completed(t *testing.T) {
	svc := &stubService{
		resultsFn: func(_ context.Context, jobID string) (*models.Job, error) {
			return completedJob(jobID), nil
		},
	}
	h := routed(http.MethodGet, "/api/v1/jobs/{jobID}/results", NewResultsHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/JOB-abc123/results", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)
	if data["result_count"] != float64(1) {
		t.Errorf("unexpected result_count: %v", data["result_count"])
	}
	if data["entity_count"] != float64(2) {
		t.Errorf("unexpected entity_count: %v", data["entity_count"])
	}
	preds, ok := data["predictions"].([]any)
	if !ok || len(preds) != 1 {
		t.Fatalf("unexpected predictions: %v", data["predictions"])
	}
	first := preds[0].(map[string]any)
	if first["prediction"] != models.LabelWillFlip {
		t.Errorf("unexpected prediction label: %v", first["prediction"])
	}
}

func TestResultsHandler_NotCompleted(t *testing.T) {
	svc := &stubService{
		resultsFn: func(_ context.Context, _ string) (*models.Job, error) {
			return nil, jobs.ErrNotCompleted
		},
	}
	h := routed(http.MethodGet, "/api/v1/jobs/{jobID}/results", NewResultsHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/JOB-abc123/results", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "JOB_NOT_COMPLETED" {
		t.Errorf("unexpected error code: %s", code)
	}
}

func TestResultsHandler_NotFound(t *testing.T) {
	svc := &stubService{
		resultsFn: func(_ context.Context, _ string) (*models.Job, error) {
			return nil, jobs.ErrNotFound
		},
	}
	h := routed(http.MethodGet, "/api/v1/jobs/{jobID}/results", NewResultsHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/JOB-unknown/results", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}
}

// --- cancel ---

func TestCancelHandler_Success(t *testing.T) {
	svc := &stubService{
		cancelFn: func(_ context.Context, jobID string) (*models.Job, error) {
			return &models.Job{ID: jobID, Status: models.JobStatusCancelled}, nil
		},
	}
	h := routed(http.MethodDelete, "/api/v1/jobs/{jobID}", NewCancelHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/JOB-abc123", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)
	if data["status"] != "cancelled" {
		t.Errorf("unexpected status: %v", data["status"])
	}
}

func TestCancelHandler_AlreadyTerminal(t *testing.T) {
	svc := &stubService{
		cancelFn: func(_ context.Context, _ string) (*models.Job, error) {
			return nil, jobs.ErrAlreadyTerminal
		},
	}
	h := routed(http.MethodDelete, "/api/v1/jobs/{jobID}", NewCancelHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/JOB-abc123", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "JOB_ALREADY_TERMINAL" {
		t.Errorf("unexpected error code: %s", code)
	}
}

func TestCancelHandler_NotFound(t *testing.T) {
	svc := &stubService{
		cancelFn: func(_ context.Context, _ string) (*models.Job, error) {
			return nil, jobs.ErrNotFound
		},
	}
	h := routed(http.MethodDelete, "/api/v1/jobs/{jobID}", NewCancelHandler(svc))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/JOB-unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// --- queue status ---

func TestQueueStatusHandler(t *testing.T) {
	svc := &stubService{
		queueStatusFn: func(_ context.Context) (*jobs.QueueStatus, error) {
			return &jobs.QueueStatus{
				TotalJobs: 3,
				StatusCounts: map[string]int{
					models.JobStatusQueued:     1,
					models.JobStatusProcessing: 1,
					models.JobStatusCompleted:  1,
					models.JobStatusFailed:     0,
					models.JobStatusCancelled:  0,
				},
				QueuedJobs: []jobs.JobSummary{
					{JobID: "JOB-aaaaaa", PredictionType: "ising", EntityCount: 2, Priority: models.PriorityNormal},
				},
			}, nil
		},
	}
	h := NewQueueStatusHandler(svc)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)
	if data["total_jobs"] != float64(3) {
		t.Errorf("unexpected total_jobs: %v", data["total_jobs"])
	}

	counts := data["status_counts"].(map[string]any)
	sum := 0.0
	for _, v := range counts {
		sum += v.(float64)
	}
	if sum != 3 {
		t.Errorf("status counts should sum to total_jobs, got %v", sum)
	}

	queued := data["queued_jobs"].([]any)
	if len(queued) != 1 {
		t.Fatalf("unexpected queued_jobs: %v", data["queued_jobs"])
	}
}

// --- health ---

type stubPinger struct{ err error }

func (p stubPinger) Ping(_ context.Context) error { return p.err }

func TestHealthHandler_AllOK(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, stubPinger{}, "redis")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)
	if data["status"] != "ok" {
		t.Errorf("unexpected status: %v", data["status"])
	}
	services := data["services"].(map[string]any)
	if services["graph_store"] != "ok" || services["cache"] != "ok" {
		t.Errorf("unexpected services: %v", services)
	}
}

func TestHealthHandler_FallbackStoreIsDegraded(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, stubPinger{}, "memory")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("health always answers 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)
	if data["status"] != "degraded" {
		t.Errorf("expected degraded status, got %v", data["status"])
	}
	services := data["services"].(map[string]any)
	if services["cache"] != "fallback" {
		t.Errorf("unexpected cache state: %v", services["cache"])
	}
}

func TestHealthHandler_GraphUnreachable(t *testing.T) {
	h := NewHealthHandler(stubPinger{err: context.DeadlineExceeded}, stubPinger{}, "redis")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	data := decodeBody(t, rec)
	if data["status"] != "degraded" {
		t.Errorf("expected degraded status, got %v", data["status"])
	}
	services := data["services"].(map[string]any)
	if services["graph_store"] != "unreachable" {
		t.Errorf("unexpected graph_store state: %v", services["graph_store"])
	}
}
