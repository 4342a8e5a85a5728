// Package models contains shared data models used across the GraphPredict codebase.
package models

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Job tracks one async batch-prediction request. The API returns a job_id on
// POST /api/v1/predict/batch/{prediction_type}; the client polls
// GET /api/v1/jobs/{job_id} until status is terminal.
type Job struct {
	ID             string             `json:"job_id"`
	Status         string             `json:"status"`
	PredictionType string             `json:"prediction_type"`
	Entities       []Entity           `json:"entities"`
	Priority       string             `json:"priority"`
	CreatedAt      time.Time          `json:"created_at"`
	StartedAt      *time.Time         `json:"started_at,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	FailedAt       *time.Time         `json:"failed_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	Predictions    []PredictionResult `json:"predictions,omitempty"`
	ResultCount    int                `json:"result_count"`
	Error          string             `json:"error,omitempty"`
}

// NewJobID generates an opaque job identifier with a human-debuggable prefix.
// Callers must not parse its internal structure.
func NewJobID() string {
	id := uuid.New()
	return fmt.Sprintf("JOB-%s", hex.EncodeToString(id[:6]))
}

// Terminal reports whether the job is in a terminal state. Terminal states
// never transition to any other state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Clone returns a deep copy of the job. The in-process store hands out clones
// so callers never share mutable state with stored records.
func (j *Job) Clone() *Job {
	c := *j
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.FailedAt = cloneTime(j.FailedAt)
	c.CancelledAt = cloneTime(j.CancelledAt)
	if j.Entities != nil {
		c.Entities = make([]Entity, len(j.Entities))
		for i, e := range j.Entities {
			c.Entities[i] = e.clone()
		}
	}
	if j.Predictions != nil {
		c.Predictions = make([]PredictionResult, len(j.Predictions))
		for i, p := range j.Predictions {
			c.Predictions[i] = p.clone()
		}
	}
	return &c
}

// ValidPriority reports whether p is a recognized priority level.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
