package models

import (
	"context"
	"time"
)

// Prediction labels emitted by the three strategies. Each strategy draws
// from a closed label set; confidence is always within [0, 1].
const (
	LabelWillFlip     = "will_flip"
	LabelWillActivate = "will_activate"
	LabelStable       = "stable"
	LabelWarning      = "warning"
	LabelCritical     = "critical"
)

// PredictionResult is one model verdict for one entity. Details carries
// model-specific raw fields (flip probability, activation ratio, variance
// and autocorrelation proxies) for diagnostic use; only Prediction and
// Confidence are part of the contract.
type PredictionResult struct {
	EntityID   string         `json:"entity_id"`
	Prediction string         `json:"prediction"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Details    map[string]any `json:"details,omitempty"`
}

func (p PredictionResult) clone() PredictionResult {
	c := p
	if p.Details != nil {
		c.Details = make(map[string]any, len(p.Details))
		for k, v := range p.Details {
			c.Details[k] = v
		}
	}
	return c
}

// Predictor is the core interface all prediction strategies implement.
// Never call a specific strategy directly; always inject this interface.
// Predict returns one result per entity the graph store actually matched;
// identifiers absent from the graph are silently dropped, not errors.
type Predictor interface {
	Predict(ctx context.Context, entityIDs []string) ([]PredictionResult, error)
	// Name returns the strategy identifier (e.g., "spin_alignment").
	Name() string
}
