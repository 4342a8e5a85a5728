// Package cascade implements the threshold-cascade prediction strategy:
// peer-influenced activation in the Granovetter style. An entity activates
// once the fraction of its activated peers reaches its own threshold.
package cascade

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vikramraman/graphpredict/internal/graph"
	"github.com/vikramraman/graphpredict/pkg/models"
)

const defaultThreshold = 0.5

const query = `MATCH (e) WHERE e.entity_id IN $entity_ids
OPTIONAL MATCH (e)-[:INFLUENCES]->(p)
RETURN e.entity_id AS entity_id,
       e.threshold AS threshold,
       count(p) AS peer_count,
       sum(CASE WHEN p.activated THEN 1 ELSE 0 END) AS activated_peers`

// Strategy implements models.Predictor over outbound influence relationships.
type Strategy struct {
	graph graph.Client
}

func NewStrategy(gc graph.Client) *Strategy {
	return &Strategy{graph: gc}
}

func (s *Strategy) Name() string { return "threshold_cascade" }

func (s *Strategy) Predict(ctx context.Context, entityIDs []string) ([]models.PredictionResult, error) {
	rows, err := s.graph.Query(ctx, query, map[string]any{"entity_ids": entityIDs})
	if err != nil {
		return nil, fmt.Errorf("querying cascade states: %w", err)
	}

	results := make([]models.PredictionResult, 0, len(rows))
	for _, row := range rows {
		entityID, ok := row.Str("entity_id")
		if !ok {
			continue
		}

		peerCount, _ := row.Int("peer_count")
		activatedPeers, _ := row.Int("activated_peers")

		threshold, ok := row.Float("threshold")
		if !ok {
			threshold = defaultThreshold
		}

		activationRatio := 0.0
		if peerCount > 0 {
			activationRatio = float64(activatedPeers) / float64(peerCount)
		}

		prediction := models.LabelStable
		if activationRatio >= threshold {
			prediction = models.LabelWillActivate
		}

		// Out-of-range threshold attributes would push the distance past
		// 1.0; confidence stays clamped to [0, 1].
		confidence := math.Min(math.Abs(activationRatio-threshold), 1.0)

		results = append(results, models.PredictionResult{
			EntityID:   entityID,
			Prediction: prediction,
			Confidence: confidence,
			Timestamp:  time.Now().UTC(),
			Details: map[string]any{
				"activation_ratio": activationRatio,
				"threshold":        threshold,
				"peer_count":       peerCount,
				"activated_peers":  activatedPeers,
			},
		})
	}

	return results, nil
}

var _ models.Predictor = (*Strategy)(nil)
