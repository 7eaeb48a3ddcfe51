// Package features builds the fixed-vocabulary feature vector the risk
// scorer consumes. Every extraction yields a complete vector: any field the
// record streams cannot supply is filled with a documented clinical default.
package features

import "github.com/vitalsight-ai/platform/pkg/common/models"

// Names is the fixed feature vocabulary, in canonical order.
var Names = []string{
	"age", "weight", "height", "bmi",
	"systolic_bp", "diastolic_bp", "heart_rate", "blood_oxygen",
	"fasting_glucose", "hba1c", "ldl_cholesterol", "hdl_cholesterol",
	"exercise_minutes", "sleep_duration", "stress_level",
	"medication_adherence", "chronic_conditions_count",
}

// Clinical defaults applied when a source value is null or a stream has no
// record. Age has no clinical default; a missing age stays 0.
const (
	DefaultWeight          = 70.0
	DefaultHeight          = 170.0
	DefaultBMI             = 25.0
	DefaultSystolicBP      = 120.0
	DefaultDiastolicBP     = 80.0
	DefaultHeartRate       = 72.0
	DefaultBloodOxygen     = 98.0
	DefaultFastingGlucose  = 90.0
	DefaultHbA1c           = 5.7
	DefaultLDLCholesterol  = 100.0
	DefaultHDLCholesterol  = 50.0
	DefaultExerciseMinutes = 30.0
	DefaultSleepDuration   = 8.0
	DefaultStressLevel     = 5.0
	DefaultAdherence       = 85.0
)

// Defaults returns a fully-populated vector of clinical defaults.
func Defaults() models.FeatureVector {
	return models.FeatureVector{
		"age":                      0,
		"weight":                   DefaultWeight,
		"height":                   DefaultHeight,
		"bmi":                      DefaultBMI,
		"systolic_bp":              DefaultSystolicBP,
		"diastolic_bp":             DefaultDiastolicBP,
		"heart_rate":               DefaultHeartRate,
		"blood_oxygen":             DefaultBloodOxygen,
		"fasting_glucose":          DefaultFastingGlucose,
		"hba1c":                    DefaultHbA1c,
		"ldl_cholesterol":          DefaultLDLCholesterol,
		"hdl_cholesterol":          DefaultHDLCholesterol,
		"exercise_minutes":         DefaultExerciseMinutes,
		"sleep_duration":           DefaultSleepDuration,
		"stress_level":             DefaultStressLevel,
		"medication_adherence":     DefaultAdherence,
		"chronic_conditions_count": 0,
	}
}

// Fill copies v over a defaulted vector so externally supplied partial
// vectors become complete before scoring.
func Fill(v models.FeatureVector) models.FeatureVector {
	filled := Defaults()
	for name, value := range v {
		filled[name] = value
	}
	return filled
}
