package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vikramraman/graphpredict/internal/api/response"
	"github.com/vikramraman/graphpredict/internal/jobs"
	"github.com/vikramraman/graphpredict/pkg/models"
)

// NewStatusHandler returns the handler for GET /api/v1/jobs/{job_id}.
// The summary carries extra fields depending on the job's status.
func NewStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		job, err := svc.Get(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND",
					fmt.Sprintf("No job with ID %s", jobID))
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to read job")
			return
		}

		body := map[string]any{
			"success":         true,
			"job_id":          job.ID,
			"status":          job.Status,
			"prediction_type": job.PredictionType,
			"entity_count":    len(job.Entities),
			"priority":        job.Priority,
			"created_at":      job.CreatedAt.UTC().Format(time.RFC3339),
		}

		switch job.Status {
		case models.JobStatusProcessing:
			if job.StartedAt != nil {
				body["started_at"] = job.StartedAt.UTC().Format(time.RFC3339)
			}
		case models.JobStatusCompleted:
			if job.CompletedAt != nil {
				body["completed_at"] = job.CompletedAt.UTC().Format(time.RFC3339)
			}
			body["result_count"] = job.ResultCount
			body["get_results_url"] = fmt.Sprintf("/api/v1/jobs/%s/results", job.ID)
		case models.JobStatusFailed:
			if job.FailedAt != nil {
				body["failed_at"] = job.FailedAt.UTC().Format(time.RFC3339)
			}
			body["error"] = job.Error
		case models.JobStatusCancelled:
			if job.CancelledAt != nil {
				body["cancelled_at"] = job.CancelledAt.UTC().Format(time.RFC3339)
			}
		}

		response.JSON(w, http.StatusOK, body)
	}
}

// NewResultsHandler returns the handler for GET /api/v1/jobs/{job_id}/results.
// Requesting results before the job completes is a client error, not a
// silent empty result.
func NewResultsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		job, err := svc.Results(r.Context(), jobID)
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND",
					fmt.Sprintf("No job with ID %s", jobID))
			case errors.Is(err, jobs.ErrNotCompleted):
				response.Error(w, http.StatusBadRequest, "JOB_NOT_COMPLETED",
					"Job has not completed yet; poll its status first")
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Failed to read job results")
			}
			return
		}

		var completedAt string
		if job.CompletedAt != nil {
			completedAt = job.CompletedAt.UTC().Format(time.RFC3339)
		}

		predictions := job.Predictions
		if predictions == nil {
			predictions = []models.PredictionResult{}
		}

		response.JSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"job_id":       job.ID,
			"predictions":  predictions,
			"entity_count": len(job.Entities),
			"result_count": job.ResultCount,
			"completed_at": completedAt,
		})
	}
}

// NewCancelHandler returns the handler for DELETE /api/v1/jobs/{job_id}.
// Cancellation is advisory: it flips the stored status but does not
// interrupt an in-flight worker.
func NewCancelHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		job, err := svc.Cancel(r.Context(), jobID)
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND",
					fmt.Sprintf("No job with ID %s", jobID))
			case errors.Is(err, jobs.ErrAlreadyTerminal):
				response.Error(w, http.StatusBadRequest, "JOB_ALREADY_TERMINAL",
					"Job is already in a terminal state")
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Failed to cancel job")
			}
			return
		}

		response.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"job_id":  job.ID,
			"status":  job.Status,
		})
	}
}
