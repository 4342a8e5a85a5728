// Package ews implements the early-warning-signal prediction strategy, a
// critical-slowing-down heuristic applicable to any node type. The variance
// and autocorrelation proxies are deliberately coarse degree-based stand-ins,
// not statistical estimates.
package ews

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vikramraman/graphpredict/internal/graph"
	"github.com/vikramraman/graphpredict/pkg/models"
)

const query = `MATCH (e) WHERE e.entity_id IN $entity_ids
OPTIONAL MATCH (e)-[r]-()
RETURN e.entity_id AS entity_id, count(r) AS degree`

// Strategy implements models.Predictor over relationship degree.
type Strategy struct {
	graph graph.Client
}

func NewStrategy(gc graph.Client) *Strategy {
	return &Strategy{graph: gc}
}

func (s *Strategy) Name() string { return "early_warning_signal" }

func (s *Strategy) Predict(ctx context.Context, entityIDs []string) ([]models.PredictionResult, error) {
	rows, err := s.graph.Query(ctx, query, map[string]any{"entity_ids": entityIDs})
	if err != nil {
		return nil, fmt.Errorf("querying degrees: %w", err)
	}

	results := make([]models.PredictionResult, 0, len(rows))
	for _, row := range rows {
		entityID, ok := row.Str("entity_id")
		if !ok {
			continue
		}

		degree, _ := row.Int("degree")

		varianceProxy := 0.0
		if degree > 0 {
			varianceProxy = 1 / math.Sqrt(float64(degree))
		}

		autocorrProxy := 0.5
		if degree > 10 {
			autocorrProxy = 0.8
		}

		ewsScore := varianceProxy + autocorrProxy

		state := models.LabelStable
		switch {
		case varianceProxy > 0.5 && autocorrProxy > 0.7:
			state = models.LabelCritical
		case varianceProxy > 0.3 || autocorrProxy > 0.6:
			state = models.LabelWarning
		}

		results = append(results, models.PredictionResult{
			EntityID:   entityID,
			Prediction: state,
			Confidence: math.Min(ewsScore, 1.0),
			Timestamp:  time.Now().UTC(),
			Details: map[string]any{
				"degree":                degree,
				"variance_proxy":        varianceProxy,
				"autocorrelation_proxy": autocorrProxy,
				"ews_score":             ewsScore,
			},
		})
	}

	return results, nil
}

var _ models.Predictor = (*Strategy)(nil)
