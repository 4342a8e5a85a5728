package handler

import (
	"net/http"

	"github.com/vikramraman/graphpredict/internal/api/response"
)

// NewQueueStatusHandler returns the handler for GET /api/v1/queue/status,
// a read-only aggregation over all live job records.
func NewQueueStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.QueueStatus(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to read queue state")
			return
		}

		response.JSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"total_jobs":    qs.TotalJobs,
			"status_counts": qs.StatusCounts,
			"queued_jobs":   qs.QueuedJobs,
		})
	}
}
