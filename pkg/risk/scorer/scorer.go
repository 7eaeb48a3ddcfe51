// Package scorer maps feature vectors to bounded risk scores. The rule
// scorer is a fixed, auditable weight table standing in for a trained
// classifier; any model implementing Scorer can replace it without touching
// extraction, attribution, or narrative code.
package scorer

import (
	"math"

	"github.com/vitalsight-ai/platform/pkg/common/models"
)

type Scorer interface {
	Score(vector models.FeatureVector) (models.RiskScore, error)
}

// BandFor maps a probability to its risk band. Thresholds 0.3 and 0.7.
func BandFor(probability float64) string {
	switch {
	case probability < 0.3:
		return models.RiskLow
	case probability < 0.7:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// ConfidenceFor is distance from the 0.5 decision boundary scaled to [0,1].
func ConfidenceFor(probability float64) float64 {
	return math.Min(math.Abs(probability-0.5)*2, 1.0)
}

func clamp01(value float64) float64 {
	return math.Min(math.Max(value, 0.0), 1.0)
}
