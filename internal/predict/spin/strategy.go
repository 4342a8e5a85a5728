// Package spin implements the spin-alignment prediction strategy: binary
// state flipping under an external field.
package spin

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vikramraman/graphpredict/internal/graph"
	"github.com/vikramraman/graphpredict/pkg/models"
)

// Fixed model constants. The flip probability for a matched entity is
// 1 / (1 + e^(-2 * spin * (field + interaction))).
const (
	fieldStrength = 0.5
	interaction   = 0.1
)

const flipThreshold = 0.7

const query = `MATCH (e) WHERE e.entity_id IN $entity_ids
RETURN e.entity_id AS entity_id, e.spin AS spin`

// Strategy implements models.Predictor using per-entity spin attributes.
type Strategy struct {
	graph graph.Client
}

func NewStrategy(gc graph.Client) *Strategy {
	return &Strategy{graph: gc}
}

func (s *Strategy) Name() string { return "spin_alignment" }

func (s *Strategy) Predict(ctx context.Context, entityIDs []string) ([]models.PredictionResult, error) {
	rows, err := s.graph.Query(ctx, query, map[string]any{"entity_ids": entityIDs})
	if err != nil {
		return nil, fmt.Errorf("querying spin states: %w", err)
	}

	results := make([]models.PredictionResult, 0, len(rows))
	for _, row := range rows {
		entityID, ok := row.Str("entity_id")
		if !ok {
			continue
		}

		// A missing spin attribute reads as zero, which lands the flip
		// probability at exactly 0.5 (maximal uncertainty).
		spinVal, _ := row.Float("spin")

		flipProb := 1 / (1 + math.Exp(-2*spinVal*(fieldStrength+interaction)))

		currentState := "opposed"
		if spinVal > 0 {
			currentState = "aligned"
		}

		prediction := models.LabelStable
		if flipProb > flipThreshold {
			prediction = models.LabelWillFlip
		}

		results = append(results, models.PredictionResult{
			EntityID:   entityID,
			Prediction: prediction,
			Confidence: flipProb,
			Timestamp:  time.Now().UTC(),
			Details: map[string]any{
				"spin":             spinVal,
				"flip_probability": flipProb,
				"current_state":    currentState,
			},
		})
	}

	return results, nil
}

var _ models.Predictor = (*Strategy)(nil)
