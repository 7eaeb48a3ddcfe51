package patient

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PatientModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	PublicID          string    `gorm:"uniqueIndex;column:public_id"`
	Name              string    `gorm:"index"`
	Age               int
	Gender            string
	Height            *float64 // cm
	Weight            *float64 // kg
	ChronicConditions datatypes.JSONSlice[string] `gorm:"column:chronic_conditions"`
	Status            string                      `gorm:"index;default:active"`
	RiskLevel         string                      `gorm:"column:risk_level;default:low"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (PatientModel) TableName() string {
	return "patients"
}

type VitalSignsModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID   uuid.UUID `gorm:"type:uuid;index"`
	SystolicBP  *float64  `gorm:"column:systolic_bp"`
	DiastolicBP *float64  `gorm:"column:diastolic_bp"`
	HeartRate   *float64
	BloodOxygen *float64
	RecordedAt  time.Time `gorm:"index"`
	CreatedAt   time.Time

	Patient PatientModel `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (VitalSignsModel) TableName() string {
	return "vital_signs"
}

type LabResultModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID      uuid.UUID `gorm:"type:uuid;index"`
	FastingGlucose *float64
	HbA1c          *float64  `gorm:"column:hba1c"`
	LDLCholesterol *float64  `gorm:"column:ldl_cholesterol"`
	HDLCholesterol *float64  `gorm:"column:hdl_cholesterol"`
	TestDate       time.Time `gorm:"index"`
	CreatedAt      time.Time

	Patient PatientModel `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (LabResultModel) TableName() string {
	return "lab_results"
}

type LifestyleLogModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID       uuid.UUID `gorm:"type:uuid;index"`
	ExerciseMinutes *float64
	SleepDuration   *float64
	StressLevel     *float64  // 1-10
	LogDate         time.Time `gorm:"index"`
	CreatedAt       time.Time

	Patient PatientModel `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (LifestyleLogModel) TableName() string {
	return "lifestyle_logs"
}

type MedicationModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID     uuid.UUID `gorm:"type:uuid;index"`
	Name          string
	Dosage        string
	Frequency     string
	AdherenceRate *float64 // 0-100%
	IsActive      bool     `gorm:"index;column:is_active"`
	StartDate     time.Time
	EndDate       *time.Time
	CreatedAt     time.Time

	Patient PatientModel `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (MedicationModel) TableName() string {
	return "medications"
}

// PredictionModel rows are append-only; the engine never updates one.
type PredictionModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID         uuid.UUID `gorm:"type:uuid;index"`
	PredictionType    string    `gorm:"index"`
	RiskScore         float64
	RiskLevel         string
	ConfidenceScore   float64
	WindowDays        int               `gorm:"column:prediction_window"`
	FeatureImportance datatypes.JSONMap `gorm:"column:feature_importance"`
	FeaturesUsed      datatypes.JSONMap `gorm:"column:features_used"`
	ModelVersion      string
	IsActive          bool      `gorm:"index;column:is_active"`
	CreatedAt         time.Time `gorm:"index"`

	Patient PatientModel `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (PredictionModel) TableName() string {
	return "risk_predictions"
}
