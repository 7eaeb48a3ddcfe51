// Package explain turns attribution sets into ranked factors, human
// sentences, and clinical recommendations.
package explain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vitalsight-ai/platform/pkg/common/models"
	"github.com/vitalsight-ai/platform/pkg/risk/knowledge"
)

const (
	maxLocalFeatures = 10
	maxKeyFactors    = 5
	keyFactorCutoff  = 0.05
)

type Generator struct {
	kb knowledge.Base
}

func NewGenerator(kb knowledge.Base) *Generator {
	return &Generator{kb: kb}
}

// Explain builds the full explanation for a prediction record. The
// attribution stored on the record came from the same vector that produced
// the score, so explanation and decision cannot drift.
func (g *Generator) Explain(record models.PredictionRecord, patient models.Patient) models.Explanation {
	return models.Explanation{
		PredictionID:   record.ID,
		PatientID:      patient.PublicID,
		PatientName:    patient.Name,
		PredictionType: record.PredictionType,
		RiskScore:      record.Score.Probability,
		RiskLevel:      record.Score.Band,
		Confidence:     record.Score.Confidence,
		PredictionDate: record.CreatedAt,
		GlobalFeatures: g.kb.GlobalTop(maxLocalFeatures),
		LocalFeatures:  g.LocalFeatures(record.Attribution),
		KeyFactors:     g.KeyFactors(record, patient),
		Recommendation: g.kb.Recommendation(record.Score.Band, record.PredictionType),
		ModelVersion:   record.ModelVersion,
	}
}

// GlobalFeatures exposes the static model-level ranking.
func (g *Generator) GlobalFeatures(topN int) []models.GlobalFeature {
	return g.kb.GlobalTop(topN)
}

// LocalFeatures ranks attributions by absolute magnitude and annotates the
// top entries with template sentences.
func (g *Generator) LocalFeatures(attribution models.AttributionSet) []models.LocalFeature {
	ranked := rankByMagnitude(attribution)
	if len(ranked) > maxLocalFeatures {
		ranked = ranked[:maxLocalFeatures]
	}

	local := make([]models.LocalFeature, 0, len(ranked))
	for _, entry := range ranked {
		direction := "increases"
		if entry.value < 0 {
			direction = "decreases"
		}
		local = append(local, models.LocalFeature{
			FeatureName: entry.name,
			Importance:  round4(entry.value),
			Description: g.featureSentence(entry.name, entry.value),
			Direction:   direction,
		})
	}
	return local
}

// KeyFactors renders the strongest attributions through feature-specific
// templates, appending the band-level fallback sentence. Only the five
// largest attributions are considered; a top entry without a template is
// dropped, never backfilled from lower ranks.
func (g *Generator) KeyFactors(record models.PredictionRecord, patient models.Patient) []string {
	factors := []string{}

	ranked := rankByMagnitude(record.Attribution)
	if len(ranked) > maxKeyFactors {
		ranked = ranked[:maxKeyFactors]
	}
	for _, entry := range ranked {
		if math.Abs(entry.value) <= keyFactorCutoff {
			continue
		}
		if factor, ok := factorFor(entry.name, entry.value, patient); ok {
			factors = append(factors, factor)
		}
	}

	switch record.Score.Band {
	case models.RiskHigh:
		factors = append(factors, "Multiple risk factors present")
	case models.RiskLow:
		factors = append(factors, "Most health indicators within normal ranges")
	}

	if len(factors) > maxKeyFactors {
		factors = factors[:maxKeyFactors]
	}
	return factors
}

// FeatureAnalysis returns the clinical reference sheet for one feature.
func (g *Generator) FeatureAnalysis(feature string) models.FeatureAnalysis {
	return models.FeatureAnalysis{
		FeatureName:          feature,
		NormalRange:          g.kb.NormalRange(feature),
		ClinicalSignificance: g.kb.Significance(feature),
		Recommendations:      g.kb.FeatureRecommendation(feature),
	}
}

// ReportRecommendations builds the detailed recommendation list for a
// patient report.
func (g *Generator) ReportRecommendations(record models.PredictionRecord) []models.ReportRecommendation {
	monitoringPriority := "Medium"
	if record.Score.Band == models.RiskHigh {
		monitoringPriority = "High"
	}
	return []models.ReportRecommendation{
		{Category: "Monitoring", Action: "Increase vital sign monitoring frequency", Priority: monitoringPriority},
		{Category: "Medication", Action: "Review and optimize current medication regimen", Priority: "High"},
		{Category: "Lifestyle", Action: "Implement targeted lifestyle interventions", Priority: "Medium"},
	}
}

func (g *Generator) featureSentence(feature string, importance float64) string {
	direction := "increases"
	if importance < 0 {
		direction = "decreases"
	}
	magnitude := math.Abs(importance)
	impact := "slightly"
	if magnitude >= 0.1 {
		impact = "significantly"
	} else if magnitude >= 0.05 {
		impact = "moderately"
	}
	return fmt.Sprintf("%s %s %s the risk", g.kb.Description(feature), impact, direction)
}

func factorFor(feature string, importance float64, patient models.Patient) (string, bool) {
	switch {
	case feature == "age" && importance > 0:
		return fmt.Sprintf("Advanced age (%d years)", patient.Age), true
	case feature == "chronic_conditions_count" && importance > 0:
		return fmt.Sprintf("Multiple chronic conditions (%d)", len(patient.ChronicConditions)), true
	case strings.Contains(feature, "bp") && importance > 0:
		return "Elevated blood pressure readings", true
	case strings.Contains(feature, "glucose") || strings.Contains(feature, "hba1c"):
		if importance > 0 {
			return "Diabetes control indicators", true
		}
		return "Well-controlled diabetes", true
	case strings.Contains(feature, "exercise"):
		if importance > 0 {
			return "Limited physical activity", true
		}
		return "Good exercise habits", true
	case strings.Contains(feature, "stress") && importance > 0:
		return "High stress levels reported", true
	case strings.Contains(feature, "medication_adherence") && importance > 0:
		return "Poor medication compliance", true
	}
	return "", false
}

type rankedFeature struct {
	name  string
	value float64
}

func rankByMagnitude(attribution models.AttributionSet) []rankedFeature {
	ranked := make([]rankedFeature, 0, len(attribution))
	for name, value := range attribution {
		ranked = append(ranked, rankedFeature{name: name, value: value})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if math.Abs(ranked[i].value) != math.Abs(ranked[j].value) {
			return math.Abs(ranked[i].value) > math.Abs(ranked[j].value)
		}
		return ranked[i].name < ranked[j].name
	})
	return ranked
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
