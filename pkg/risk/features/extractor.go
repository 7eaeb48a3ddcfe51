package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vitalsight-ai/platform/pkg/common/models"
)

// ErrExtraction marks a stream read that failed in a way defaults cannot
// paper over. Extraction aborts for that patient only.
var ErrExtraction = errors.New("feature extraction failed")

// ClinicalStore is the slice of the data-access contract the extractor
// needs. Latest* methods return (nil, nil) when the stream has no records.
type ClinicalStore interface {
	GetPatientByPublicID(ctx context.Context, publicID string) (models.Patient, error)
	LatestVitals(ctx context.Context, patientID uuid.UUID) (*models.VitalSigns, error)
	LatestLabs(ctx context.Context, patientID uuid.UUID) (*models.LabResult, error)
	LatestLifestyle(ctx context.Context, patientID uuid.UUID) (*models.LifestyleLog, error)
	ActiveMedications(ctx context.Context, patientID uuid.UUID) ([]models.Medication, error)
}

type Extractor struct {
	store ClinicalStore
}

func NewExtractor(store ClinicalStore) *Extractor {
	return &Extractor{store: store}
}

// Extract pulls the most recent record from each stream and assembles a
// complete, defaulted feature vector for the patient.
func (e *Extractor) Extract(ctx context.Context, publicID string) (models.FeatureVector, error) {
	patient, err := e.store.GetPatientByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	vector := models.FeatureVector{}

	// Demographics
	vector["age"] = float64(patient.Age)
	vector["weight"] = orDefault(patient.Weight, DefaultWeight)
	vector["height"] = orDefault(patient.Height, DefaultHeight)
	if vector["height"] > 0 {
		heightM := vector["height"] / 100
		vector["bmi"] = vector["weight"] / (heightM * heightM)
	} else {
		vector["bmi"] = DefaultBMI
	}
	vector["chronic_conditions_count"] = float64(len(patient.ChronicConditions))

	vitals, err := e.store.LatestVitals(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: vitals for %s: %v", ErrExtraction, publicID, err)
	}
	if vitals != nil {
		vector["systolic_bp"] = orDefault(vitals.SystolicBP, DefaultSystolicBP)
		vector["diastolic_bp"] = orDefault(vitals.DiastolicBP, DefaultDiastolicBP)
		vector["heart_rate"] = orDefault(vitals.HeartRate, DefaultHeartRate)
		vector["blood_oxygen"] = orDefault(vitals.BloodOxygen, DefaultBloodOxygen)
	} else {
		vector["systolic_bp"] = DefaultSystolicBP
		vector["diastolic_bp"] = DefaultDiastolicBP
		vector["heart_rate"] = DefaultHeartRate
		vector["blood_oxygen"] = DefaultBloodOxygen
	}

	labs, err := e.store.LatestLabs(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: labs for %s: %v", ErrExtraction, publicID, err)
	}
	if labs != nil {
		vector["fasting_glucose"] = orDefault(labs.FastingGlucose, DefaultFastingGlucose)
		vector["hba1c"] = orDefault(labs.HbA1c, DefaultHbA1c)
		vector["ldl_cholesterol"] = orDefault(labs.LDLCholesterol, DefaultLDLCholesterol)
		vector["hdl_cholesterol"] = orDefault(labs.HDLCholesterol, DefaultHDLCholesterol)
	} else {
		vector["fasting_glucose"] = DefaultFastingGlucose
		vector["hba1c"] = DefaultHbA1c
		vector["ldl_cholesterol"] = DefaultLDLCholesterol
		vector["hdl_cholesterol"] = DefaultHDLCholesterol
	}

	lifestyle, err := e.store.LatestLifestyle(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: lifestyle for %s: %v", ErrExtraction, publicID, err)
	}
	if lifestyle != nil {
		vector["exercise_minutes"] = orDefault(lifestyle.ExerciseMinutes, DefaultExerciseMinutes)
		vector["sleep_duration"] = orDefault(lifestyle.SleepDuration, DefaultSleepDuration)
		vector["stress_level"] = orDefault(lifestyle.StressLevel, DefaultStressLevel)
	} else {
		vector["exercise_minutes"] = DefaultExerciseMinutes
		vector["sleep_duration"] = DefaultSleepDuration
		vector["stress_level"] = DefaultStressLevel
	}

	medications, err := e.store.ActiveMedications(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: medications for %s: %v", ErrExtraction, publicID, err)
	}
	vector["medication_adherence"] = meanAdherence(medications)

	return vector, nil
}

// meanAdherence averages the non-nil adherence rates of active medications.
func meanAdherence(medications []models.Medication) float64 {
	var sum float64
	var count int
	for _, med := range medications {
		if med.AdherenceRate != nil {
			sum += *med.AdherenceRate
			count++
		}
	}
	if count == 0 {
		return DefaultAdherence
	}
	return sum / float64(count)
}

func orDefault(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}
