package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsight-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrPredictionNotFound = errors.New("prediction not found")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&PatientModel{},
		&VitalSignsModel{},
		&LabResultModel{},
		&LifestyleLogModel{},
		&MedicationModel{},
		&PredictionModel{},
	)
}

func (r *Repository) GetPatientByPublicID(ctx context.Context, publicID string) (models.Patient, error) {
	var row PatientModel
	result := r.db.WithContext(ctx).First(&row, "public_id = ?", publicID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Patient{}, ErrPatientNotFound
	}
	if result.Error != nil {
		return models.Patient{}, result.Error
	}
	return patientToDomain(&row), nil
}

func (r *Repository) ListActivePatientIDs(ctx context.Context) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&PatientModel{}).
		Where("status = ?", "active").
		Order("public_id").
		Pluck("public_id", &ids)
	return ids, result.Error
}

func (r *Repository) LatestVitals(ctx context.Context, patientID uuid.UUID) (*models.VitalSigns, error) {
	var row VitalSignsModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("recorded_at desc").
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &models.VitalSigns{
		ID:          row.ID,
		PatientID:   row.PatientID,
		SystolicBP:  row.SystolicBP,
		DiastolicBP: row.DiastolicBP,
		HeartRate:   row.HeartRate,
		BloodOxygen: row.BloodOxygen,
		RecordedAt:  row.RecordedAt,
	}, nil
}

func (r *Repository) LatestLabs(ctx context.Context, patientID uuid.UUID) (*models.LabResult, error) {
	var row LabResultModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("test_date desc").
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &models.LabResult{
		ID:             row.ID,
		PatientID:      row.PatientID,
		FastingGlucose: row.FastingGlucose,
		HbA1c:          row.HbA1c,
		LDLCholesterol: row.LDLCholesterol,
		HDLCholesterol: row.HDLCholesterol,
		TestDate:       row.TestDate,
	}, nil
}

func (r *Repository) LatestLifestyle(ctx context.Context, patientID uuid.UUID) (*models.LifestyleLog, error) {
	var row LifestyleLogModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("log_date desc").
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &models.LifestyleLog{
		ID:              row.ID,
		PatientID:       row.PatientID,
		ExerciseMinutes: row.ExerciseMinutes,
		SleepDuration:   row.SleepDuration,
		StressLevel:     row.StressLevel,
		LogDate:         row.LogDate,
	}, nil
}

func (r *Repository) ActiveMedications(ctx context.Context, patientID uuid.UUID) ([]models.Medication, error) {
	var rows []MedicationModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ? AND is_active = ?", patientID, true).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	meds := make([]models.Medication, 0, len(rows))
	for _, row := range rows {
		meds = append(meds, models.Medication{
			ID:            row.ID,
			PatientID:     row.PatientID,
			Name:          row.Name,
			Dosage:        row.Dosage,
			Frequency:     row.Frequency,
			AdherenceRate: row.AdherenceRate,
			IsActive:      row.IsActive,
			StartDate:     row.StartDate,
			EndDate:       row.EndDate,
		})
	}
	return meds, nil
}

// CreatePrediction appends a new immutable prediction row.
func (r *Repository) CreatePrediction(ctx context.Context, record *models.PredictionRecord) error {
	row := PredictionModel{
		ID:                record.ID,
		PatientID:         record.PatientID,
		PredictionType:    record.PredictionType,
		RiskScore:         record.Score.Probability,
		RiskLevel:         record.Score.Band,
		ConfidenceScore:   record.Score.Confidence,
		WindowDays:        record.WindowDays,
		FeatureImportance: floatsToJSONMap(record.Attribution),
		FeaturesUsed:      floatsToJSONMap(record.Features),
		ModelVersion:      record.ModelVersion,
		IsActive:          record.Active,
		CreatedAt:         record.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) GetPrediction(ctx context.Context, predictionID uuid.UUID) (models.PredictionRecord, error) {
	var row PredictionModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", predictionID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.PredictionRecord{}, ErrPredictionNotFound
	}
	if result.Error != nil {
		return models.PredictionRecord{}, result.Error
	}
	return r.predictionToDomain(ctx, &row)
}

// LatestActivePrediction returns the newest active record for the patient.
// An empty predictionType matches any type.
func (r *Repository) LatestActivePrediction(ctx context.Context, patientID uuid.UUID, predictionType string) (models.PredictionRecord, error) {
	query := r.db.WithContext(ctx).
		Where("patient_id = ? AND is_active = ?", patientID, true)
	if predictionType != "" {
		query = query.Where("prediction_type = ?", predictionType)
	}
	var row PredictionModel
	result := query.Order("created_at desc").First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.PredictionRecord{}, ErrPredictionNotFound
	}
	if result.Error != nil {
		return models.PredictionRecord{}, result.Error
	}
	return r.predictionToDomain(ctx, &row)
}

func (r *Repository) ListPredictions(ctx context.Context, patientID uuid.UUID, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []PredictionModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	records := make([]models.PredictionRecord, 0, len(rows))
	for i := range rows {
		record, err := r.predictionToDomain(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// UpdateRiskLevel writes the denormalized risk label on the patient row.
// Last-writer-wins; the prediction history stays authoritative.
func (r *Repository) UpdateRiskLevel(ctx context.Context, patientID uuid.UUID, level string) error {
	return r.db.WithContext(ctx).Model(&PatientModel{}).
		Where("id = ?", patientID).
		Updates(map[string]interface{}{
			"risk_level": level,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) predictionToDomain(ctx context.Context, row *PredictionModel) (models.PredictionRecord, error) {
	var publicID string
	result := r.db.WithContext(ctx).Model(&PatientModel{}).
		Where("id = ?", row.PatientID).
		Pluck("public_id", &publicID)
	if result.Error != nil {
		return models.PredictionRecord{}, result.Error
	}
	return models.PredictionRecord{
		ID:              row.ID,
		PatientID:       row.PatientID,
		PatientPublicID: publicID,
		PredictionType:  row.PredictionType,
		Score: models.RiskScore{
			Probability: row.RiskScore,
			Band:        row.RiskLevel,
			Confidence:  row.ConfidenceScore,
		},
		Attribution:  jsonMapToFloats(row.FeatureImportance),
		Features:     jsonMapToFloats(row.FeaturesUsed),
		WindowDays:   row.WindowDays,
		ModelVersion: row.ModelVersion,
		Active:       row.IsActive,
		Persisted:    true,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func patientToDomain(row *PatientModel) models.Patient {
	return models.Patient{
		ID:                row.ID,
		PublicID:          row.PublicID,
		Name:              row.Name,
		Age:               row.Age,
		Gender:            row.Gender,
		Height:            row.Height,
		Weight:            row.Weight,
		ChronicConditions: []string(row.ChronicConditions),
		Status:            row.Status,
		RiskLevel:         row.RiskLevel,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func floatsToJSONMap(values map[string]float64) datatypes.JSONMap {
	if values == nil {
		return nil
	}
	out := make(datatypes.JSONMap, len(values))
	for name, value := range values {
		out[name] = value
	}
	return out
}

func jsonMapToFloats(values datatypes.JSONMap) map[string]float64 {
	if values == nil {
		return nil
	}
	out := make(map[string]float64, len(values))
	for name, value := range values {
		switch v := value.(type) {
		case float64:
			out[name] = v
		case int64:
			out[name] = float64(v)
		case int:
			out[name] = float64(v)
		}
	}
	return out
}
