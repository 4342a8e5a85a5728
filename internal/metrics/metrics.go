// Package metrics registers Prometheus instrumentation for the job lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphpredict_jobs_submitted_total",
		Help: "Batch prediction jobs accepted for processing.",
	}, []string{"prediction_type"})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphpredict_jobs_completed_total",
		Help: "Jobs that reached the completed state.",
	})

	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphpredict_jobs_failed_total",
		Help: "Jobs that reached the failed state.",
	})

	JobsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphpredict_jobs_cancelled_total",
		Help: "Jobs cancelled before completion.",
	})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graphpredict_job_duration_seconds",
		Help:    "Wall time from worker start to terminal state.",
		Buckets: prometheus.DefBuckets,
	})

	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphpredict_workers_active",
		Help: "Workers currently executing a job.",
	})
)
