// Package predict selects and constructs prediction strategies.
package predict

import (
	"log/slog"

	"github.com/vikramraman/graphpredict/internal/graph"
	"github.com/vikramraman/graphpredict/internal/predict/cascade"
	"github.com/vikramraman/graphpredict/internal/predict/ews"
	"github.com/vikramraman/graphpredict/internal/predict/spin"
	"github.com/vikramraman/graphpredict/pkg/models"
)

// NewPredictor constructs the strategy for the given prediction type.
// Unrecognized types fall back to the early-warning-signal strategy rather
// than erroring; callers relying on aliases like "critical_slowing" depend
// on this.
func NewPredictor(predictionType string, gc graph.Client) models.Predictor {
	switch predictionType {
	case "ising", "spin", "spin_alignment":
		return spin.NewStrategy(gc)
	case "cascade", "threshold_cascade", "granovetter":
		return cascade.NewStrategy(gc)
	case "ews", "early_warning", "critical_slowing":
		return ews.NewStrategy(gc)
	default:
		slog.Debug("unknown prediction type, falling back to early warning signal",
			"prediction_type", predictionType)
		return ews.NewStrategy(gc)
	}
}
