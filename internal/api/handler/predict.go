// Package handler implements the HTTP handlers for the batch prediction API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vikramraman/graphpredict/internal/api/response"
	"github.com/vikramraman/graphpredict/internal/jobs"
	"github.com/vikramraman/graphpredict/pkg/models"
)

// JobService defines the lifecycle operations the handlers depend on.
type JobService interface {
	Submit(ctx context.Context, predictionType string, entities []models.Entity, priority string) (*models.Job, error)
	Get(ctx context.Context, jobID string) (*models.Job, error)
	Results(ctx context.Context, jobID string) (*models.Job, error)
	Cancel(ctx context.Context, jobID string) (*models.Job, error)
	QueueStatus(ctx context.Context) (*jobs.QueueStatus, error)
}

// NewSubmitHandler returns the handler for
// POST /api/v1/predict/batch/{prediction_type}. Submission returns 202 as
// soon as the queued record is written; computation happens in a background
// worker.
func NewSubmitHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		predictionType := chi.URLParam(r, "predictionType")

		var req struct {
			Entities []models.Entity `json:"entities"`
			Priority string          `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
			return
		}

		if len(req.Entities) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "entities must not be empty")
			return
		}

		priority := req.Priority
		if priority == "" {
			priority = models.PriorityNormal
		}
		if !models.ValidPriority(priority) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"priority must be one of low, normal, high")
			return
		}

		job, err := svc.Submit(r.Context(), predictionType, req.Entities, priority)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create job")
			return
		}

		response.JSON(w, http.StatusAccepted, map[string]any{
			"success":          true,
			"job_id":           job.ID,
			"status":           job.Status,
			"entity_count":     len(job.Entities),
			"check_status_url": fmt.Sprintf("/api/v1/jobs/%s", job.ID),
		})
	}
}
