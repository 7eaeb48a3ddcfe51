package models

import (
	"time"

	"github.com/google/uuid"
)

// Risk bands derived from the scored probability.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Supported prediction types.
const (
	TypeDeterioration      = "deterioration"
	TypeReadmission        = "readmission"
	TypeMedicationResponse = "medication_response"
)

func PredictionTypes() []string {
	return []string{TypeDeterioration, TypeReadmission, TypeMedicationResponse}
}

// Patient is the clinical entity the engine scores. RiskLevel is a denormalized
// cache of the latest prediction band; the authoritative history lives in the
// append-only prediction records.
type Patient struct {
	ID                uuid.UUID `json:"id"`
	PublicID          string    `json:"patient_id"` // e.g. P001
	Name              string    `json:"name"`
	Age               int       `json:"age"`
	Gender            string    `json:"gender,omitempty"`
	Height            *float64  `json:"height,omitempty"` // cm
	Weight            *float64  `json:"weight,omitempty"` // kg
	ChronicConditions []string  `json:"chronic_conditions,omitempty"`
	Status            string    `json:"status"` // active, inactive, discharged
	RiskLevel         string    `json:"risk_level"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VitalSigns is one vitals reading. Nil fields were not captured.
type VitalSigns struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	SystolicBP  *float64  `json:"systolic_bp,omitempty"`
	DiastolicBP *float64  `json:"diastolic_bp,omitempty"`
	HeartRate   *float64  `json:"heart_rate,omitempty"`
	BloodOxygen *float64  `json:"blood_oxygen,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type LabResult struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	FastingGlucose *float64  `json:"fasting_glucose,omitempty"`
	HbA1c          *float64  `json:"hba1c,omitempty"`
	LDLCholesterol *float64  `json:"ldl_cholesterol,omitempty"`
	HDLCholesterol *float64  `json:"hdl_cholesterol,omitempty"`
	TestDate       time.Time `json:"test_date"`
}

type LifestyleLog struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	ExerciseMinutes *float64  `json:"exercise_minutes,omitempty"`
	SleepDuration   *float64  `json:"sleep_duration,omitempty"`
	StressLevel     *float64  `json:"stress_level,omitempty"` // 1-10
	LogDate         time.Time `json:"log_date"`
}

type Medication struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	Name          string     `json:"name"`
	Dosage        string     `json:"dosage,omitempty"`
	Frequency     string     `json:"frequency,omitempty"`
	AdherenceRate *float64   `json:"adherence_rate,omitempty"` // 0-100%
	IsActive      bool       `json:"is_active"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

// FeatureVector maps the fixed feature vocabulary to numeric values. A valid
// vector carries every name in the vocabulary; missing source data is filled
// with clinical defaults at extraction time.
type FeatureVector map[string]float64

// AttributionSet maps feature names to signed contribution weights. Positive
// means the feature pushes risk up.
type AttributionSet map[string]float64

// RiskScore is the scorer output. Confidence is distance from the decision
// boundary, min(|probability-0.5|*2, 1), not a statistical measure.
type RiskScore struct {
	Probability float64 `json:"risk_score"`
	Band        string  `json:"risk_level"`
	Confidence  float64 `json:"confidence"`
}

// PredictionRecord is the immutable snapshot persisted per scoring call.
// Persisted is false when the write failed and the record was returned anyway.
type PredictionRecord struct {
	ID              uuid.UUID      `json:"prediction_id"`
	PatientID       uuid.UUID      `json:"-"`
	PatientPublicID string         `json:"patient_id"`
	PredictionType  string         `json:"prediction_type"`
	Score           RiskScore      `json:"score"`
	Attribution     AttributionSet `json:"feature_importance"`
	Features        FeatureVector  `json:"features_used"`
	WindowDays      int            `json:"prediction_window"`
	ModelVersion    string         `json:"model_version"`
	Active          bool           `json:"is_active"`
	Persisted       bool           `json:"persisted"`
	CreatedAt       time.Time      `json:"created_at"`
}

// GlobalFeature is one entry of the static model-level importance ranking.
type GlobalFeature struct {
	Name        string  `json:"name" yaml:"name"`
	Importance  float64 `json:"importance" yaml:"importance"`
	Description string  `json:"description" yaml:"description"`
}

// LocalFeature annotates one attribution with a human sentence.
type LocalFeature struct {
	FeatureName string  `json:"feature_name"`
	Importance  float64 `json:"importance"`
	Description string  `json:"description"`
	Direction   string  `json:"direction"` // increases, decreases
}

type Explanation struct {
	PredictionID   uuid.UUID       `json:"prediction_id"`
	PatientID      string          `json:"patient_id"`
	PatientName    string          `json:"patient_name"`
	PredictionType string          `json:"prediction_type"`
	RiskScore      float64         `json:"risk_score"`
	RiskLevel      string          `json:"risk_level"`
	Confidence     float64         `json:"confidence"`
	PredictionDate time.Time       `json:"prediction_date"`
	GlobalFeatures []GlobalFeature `json:"global_features"`
	LocalFeatures  []LocalFeature  `json:"local_features"`
	KeyFactors     []string        `json:"key_factors"`
	Recommendation string          `json:"recommendation"`
	ModelVersion   string          `json:"model_version"`
}

// FeatureAnalysis is the clinical reference sheet for a single feature.
type FeatureAnalysis struct {
	FeatureName          string   `json:"feature_name"`
	NormalRange          string   `json:"normal_range"`
	ClinicalSignificance string   `json:"clinical_significance"`
	Recommendations      []string `json:"recommendations"`
}

// Batch scoring outcomes. A failed patient never aborts the batch.
type BatchSuccess struct {
	PatientID  string           `json:"patient_id"`
	Prediction PredictionRecord `json:"prediction"`
}

type BatchFailure struct {
	PatientID string `json:"patient_id"`
	Kind      string `json:"kind"` // not_found, extraction, persistence, internal
	Error     string `json:"error"`
}

type BatchOutcome struct {
	Total     int            `json:"total_patients"`
	Successes []BatchSuccess `json:"results"`
	Failures  []BatchFailure `json:"errors"`
}

// PatientReport bundles the latest assessment with its explanation.
type PatientSummary struct {
	PatientID  string   `json:"id"`
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Conditions []string `json:"conditions"`
}

type RiskAssessment struct {
	RiskLevel  string  `json:"risk_level"`
	RiskScore  float64 `json:"risk_score"`
	Confidence float64 `json:"confidence"`
}

type ReportRecommendation struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Priority string `json:"priority"`
}

type PatientReport struct {
	Summary         PatientSummary         `json:"patient_summary"`
	CurrentRisk     *RiskAssessment        `json:"current_risk_assessment"`
	Explanation     *Explanation           `json:"detailed_explanation"`
	Recommendations []ReportRecommendation `json:"recommendations"`
	TrendAnalysis   string                 `json:"trend_analysis"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// ModelStatus describes the active scoring backend.
type ModelStatus struct {
	ModelVersion   string   `json:"model_version"`
	ScorerKind     string   `json:"scorer_kind"`
	FeatureCount   int      `json:"feature_count"`
	SupportedTypes []string `json:"supported_prediction_types"`
}

// PredictionEvent is published to the event bus after each persisted record.
type PredictionEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	PredictionID   uuid.UUID `json:"prediction_id"`
	PatientID      string    `json:"patient_id"`
	PredictionType string    `json:"prediction_type"`
	RiskScore      float64   `json:"risk_score"`
	RiskLevel      string    `json:"risk_level"`
	Timestamp      time.Time `json:"timestamp"`
}
