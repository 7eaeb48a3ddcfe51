// Package knowledge holds the static clinical reference tables the
// narrative generator reads: the global feature-importance ranking, feature
// descriptions, normal ranges, and the recommendation texts. The tables are
// immutable configuration loaded once at process start; a yaml file can
// override the compiled defaults.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vitalsight-ai/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

type Base struct {
	GlobalImportance       []models.GlobalFeature       `yaml:"global_importance"`
	Descriptions           map[string]string            `yaml:"descriptions"`
	NormalRanges           map[string]string            `yaml:"normal_ranges"`
	ClinicalSignificance   map[string]string            `yaml:"clinical_significance"`
	FeatureRecommendations map[string][]string          `yaml:"feature_recommendations"`
	Recommendations        map[string]map[string]string `yaml:"recommendations"`
}

// Load reads the knowledge base from path, falling back to the compiled
// defaults when path is empty or unreadable.
func Load(path string) (Base, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Default(), err
	}
	var base Base
	if err := yaml.Unmarshal(content, &base); err != nil {
		return Base{}, err
	}
	if len(base.GlobalImportance) == 0 {
		return Base{}, fmt.Errorf("knowledge base missing global importance table")
	}
	return base, nil
}

// GlobalTop returns the top-n entries of the global importance ranking.
func (b Base) GlobalTop(n int) []models.GlobalFeature {
	if n <= 0 || n > len(b.GlobalImportance) {
		n = len(b.GlobalImportance)
	}
	out := make([]models.GlobalFeature, n)
	copy(out, b.GlobalImportance[:n])
	return out
}

// Description returns the clinical name of a feature, title-casing the raw
// name when no entry exists.
func (b Base) Description(feature string) string {
	if description, ok := b.Descriptions[feature]; ok {
		return description
	}
	words := strings.Split(feature, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func (b Base) NormalRange(feature string) string {
	if r, ok := b.NormalRanges[feature]; ok {
		return r
	}
	return "Varies by individual"
}

func (b Base) Significance(feature string) string {
	if s, ok := b.ClinicalSignificance[feature]; ok {
		return s
	}
	return "Important health indicator"
}

func (b Base) FeatureRecommendation(feature string) []string {
	if recs, ok := b.FeatureRecommendations[feature]; ok {
		return recs
	}
	return []string{"Consult with healthcare provider"}
}

// Recommendation resolves the (band, prediction type) recommendation text,
// falling back to the band's default entry.
func (b Base) Recommendation(band, predictionType string) string {
	byType, ok := b.Recommendations[band]
	if !ok {
		byType = b.Recommendations[models.RiskLow]
	}
	if text, ok := byType[predictionType]; ok {
		return text
	}
	return byType["default"]
}

func Default() Base {
	return Base{
		GlobalImportance: []models.GlobalFeature{
			{Name: "systolic_bp", Importance: 0.18, Description: "Systolic blood pressure - higher values increase risk"},
			{Name: "hba1c", Importance: 0.16, Description: "HbA1c levels - indicator of diabetes control"},
			{Name: "age", Importance: 0.14, Description: "Patient age - older patients have higher risk"},
			{Name: "fasting_glucose", Importance: 0.12, Description: "Fasting glucose levels - diabetes indicator"},
			{Name: "medication_adherence", Importance: 0.10, Description: "Medication compliance rate"},
			{Name: "chronic_conditions_count", Importance: 0.09, Description: "Number of chronic conditions"},
			{Name: "diastolic_bp", Importance: 0.08, Description: "Diastolic blood pressure"},
			{Name: "stress_level", Importance: 0.07, Description: "Self-reported stress levels"},
			{Name: "exercise_minutes", Importance: 0.06, Description: "Daily exercise duration"},
			{Name: "sleep_duration", Importance: 0.05, Description: "Hours of sleep per night"},
			{Name: "bmi", Importance: 0.04, Description: "Body Mass Index"},
			{Name: "ldl_cholesterol", Importance: 0.04, Description: "LDL cholesterol levels"},
			{Name: "heart_rate", Importance: 0.03, Description: "Resting heart rate"},
			{Name: "blood_oxygen", Importance: 0.02, Description: "Blood oxygen saturation"},
			{Name: "hdl_cholesterol", Importance: 0.02, Description: "HDL cholesterol levels"},
		},
		Descriptions: map[string]string{
			"age":                      "Patient's age",
			"systolic_bp":              "Systolic blood pressure reading",
			"diastolic_bp":             "Diastolic blood pressure reading",
			"heart_rate":               "Resting heart rate",
			"blood_oxygen":             "Blood oxygen saturation level",
			"fasting_glucose":          "Fasting blood glucose level",
			"hba1c":                    "Hemoglobin A1c (3-month glucose average)",
			"ldl_cholesterol":          "LDL (bad) cholesterol level",
			"hdl_cholesterol":          "HDL (good) cholesterol level",
			"exercise_minutes":         "Daily exercise duration",
			"sleep_duration":           "Average hours of sleep per night",
			"stress_level":             "Self-reported stress level (1-10)",
			"medication_adherence":     "Medication compliance rate",
			"chronic_conditions_count": "Number of chronic conditions",
			"bmi":                      "Body Mass Index",
		},
		NormalRanges: map[string]string{
			"systolic_bp":     "90-120 mmHg",
			"diastolic_bp":    "60-80 mmHg",
			"heart_rate":      "60-100 bpm",
			"fasting_glucose": "70-100 mg/dL",
			"hba1c":           "< 5.7%",
			"ldl_cholesterol": "< 100 mg/dL",
			"hdl_cholesterol": "> 40 mg/dL (men), > 50 mg/dL (women)",
			"bmi":             "18.5-24.9",
			"blood_oxygen":    "> 95%",
		},
		ClinicalSignificance: map[string]string{
			"systolic_bp":          "Key indicator of cardiovascular health and risk",
			"hba1c":                "Primary marker for diabetes management and control",
			"age":                  "Major non-modifiable risk factor for most chronic conditions",
			"medication_adherence": "Critical for treatment effectiveness",
			"exercise_minutes":     "Important modifiable lifestyle factor",
		},
		FeatureRecommendations: map[string][]string{
			"systolic_bp": {
				"Monitor blood pressure regularly",
				"Reduce sodium intake",
				"Increase physical activity",
				"Maintain healthy weight",
			},
			"hba1c": {
				"Monitor blood glucose daily",
				"Follow diabetic diet plan",
				"Take medications as prescribed",
				"Regular exercise",
			},
			"exercise_minutes": {
				"Aim for 150 minutes moderate exercise per week",
				"Start with short walks",
				"Find enjoyable physical activities",
				"Consult with physical therapist if needed",
			},
		},
		Recommendations: map[string]map[string]string{
			models.RiskHigh: {
				models.TypeDeterioration: "Schedule immediate follow-up appointment and consider hospitalization if symptoms worsen",
				models.TypeReadmission:   "Implement enhanced discharge planning and arrange home health services",
				"default":                "Implement immediate intervention and close monitoring",
			},
			models.RiskMedium: {
				models.TypeDeterioration: "Increase monitoring frequency and adjust treatment plan as needed",
				models.TypeReadmission:   "Provide additional patient education and ensure proper follow-up care",
				"default":                "Monitor closely and consider preventive interventions",
			},
			models.RiskLow: {
				"default": "Continue current treatment plan with routine monitoring",
			},
		},
	}
}
