package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/vikramraman/graphpredict/internal/api/response"
)

// Pinger reports reachability of an external dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns the handler for GET /health. Health always
// answers 200; degraded dependencies are reported in the body, including
// the in-process fallback job store.
func NewHealthHandler(graphStore Pinger, jobStore Pinger, jobStoreName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := map[string]string{
			"graph_store": "ok",
			"cache":       "ok",
		}

		if err := graphStore.Ping(r.Context()); err != nil {
			services["graph_store"] = "unreachable"
		}
		if jobStoreName != "redis" {
			services["cache"] = "fallback"
		} else if err := jobStore.Ping(r.Context()); err != nil {
			services["cache"] = "unreachable"
		}

		status := "ok"
		for _, s := range services {
			if s != "ok" {
				status = "degraded"
				break
			}
		}

		response.JSON(w, http.StatusOK, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services":  services,
		})
	}
}
