package scorer

import "github.com/vitalsight-ai/platform/pkg/common/models"

// RuleScorer accumulates weighted clinical rules. Clauses are additive and
// independent; several can fire for the same vector.
type RuleScorer struct {
	noise Noise
}

func NewRuleScorer(noise Noise) *RuleScorer {
	if noise == nil {
		noise = ZeroNoise{}
	}
	return &RuleScorer{noise: noise}
}

func (s *RuleScorer) Name() string { return "rule-table" }

func (s *RuleScorer) Score(vector models.FeatureVector) (models.RiskScore, error) {
	var risk float64

	// Age
	if vector["age"] > 65 {
		risk += 0.2
	} else if vector["age"] > 50 {
		risk += 0.1
	}

	// Blood pressure
	if vector["systolic_bp"] > 140 || vector["diastolic_bp"] > 90 {
		risk += 0.25
	} else if vector["systolic_bp"] > 130 || vector["diastolic_bp"] > 85 {
		risk += 0.15
	}

	// Glucose control
	if vector["fasting_glucose"] > 126 || vector["hba1c"] > 7.0 {
		risk += 0.3
	} else if vector["fasting_glucose"] > 100 || vector["hba1c"] > 6.5 {
		risk += 0.2
	}

	// Lifestyle
	if vector["exercise_minutes"] < 30 {
		risk += 0.1
	}
	if vector["stress_level"] > 7 {
		risk += 0.15
	}
	if vector["sleep_duration"] < 6 {
		risk += 0.1
	}

	// Chronic conditions, per condition
	risk += vector["chronic_conditions_count"] * 0.1

	// Medication adherence
	if vector["medication_adherence"] < 80 {
		risk += 0.2
	}

	probability := clamp01(risk + s.noise.Sample())

	return models.RiskScore{
		Probability: probability,
		Band:        BandFor(probability),
		Confidence:  ConfidenceFor(probability),
	}, nil
}
