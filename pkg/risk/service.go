// Package risk wires extraction, scoring, attribution, and narrative
// generation into the engine's public surface.
package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsight-ai/platform/pkg/common/logger"
	"github.com/vitalsight-ai/platform/pkg/common/models"
	"github.com/vitalsight-ai/platform/pkg/patient"
	"github.com/vitalsight-ai/platform/pkg/risk/attribution"
	"github.com/vitalsight-ai/platform/pkg/risk/explain"
	"github.com/vitalsight-ai/platform/pkg/risk/features"
	"github.com/vitalsight-ai/platform/pkg/risk/scorer"
)

// ErrPersistence marks a failed prediction write. The computed record is
// still returned to the caller with Persisted=false.
var ErrPersistence = errors.New("prediction persistence failed")

const defaultWindowDays = 90

// Batch failure kinds.
const (
	FailureNotFound    = "not_found"
	FailureExtraction  = "extraction"
	FailurePersistence = "persistence"
	FailureInternal    = "internal"
)

// Repository is the persistence surface the service needs beyond the
// extractor's clinical store.
type Repository interface {
	features.ClinicalStore
	ListActivePatientIDs(ctx context.Context) ([]string, error)
	CreatePrediction(ctx context.Context, record *models.PredictionRecord) error
	GetPrediction(ctx context.Context, predictionID uuid.UUID) (models.PredictionRecord, error)
	LatestActivePrediction(ctx context.Context, patientID uuid.UUID, predictionType string) (models.PredictionRecord, error)
	ListPredictions(ctx context.Context, patientID uuid.UUID, limit int) ([]models.PredictionRecord, error)
	UpdateRiskLevel(ctx context.Context, patientID uuid.UUID, level string) error
}

// FeatureCache is the optional online cache of last-extracted vectors.
// Get returns (nil, nil) on a cache miss.
type FeatureCache interface {
	Materialize(ctx context.Context, patientID string, vector models.FeatureVector) error
	Get(ctx context.Context, patientID string) (models.FeatureVector, error)
}

// EventPublisher emits prediction events to the bus.
type EventPublisher interface {
	PublishPredictionEvent(ctx context.Context, record models.PredictionRecord) error
}

type Service struct {
	repo         Repository
	extractor    *features.Extractor
	scorer       scorer.Scorer
	attributor   *attribution.Engine
	explainer    *explain.Generator
	cache        FeatureCache
	events       EventPublisher
	modelVersion string
	workerSem    chan struct{}
}

func NewService(repo Repository, extractor *features.Extractor, sc scorer.Scorer, attributor *attribution.Engine, explainer *explain.Generator, cache FeatureCache, events EventPublisher, modelVersion string, maxWorkers int) *Service {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Service{
		repo:         repo,
		extractor:    extractor,
		scorer:       sc,
		attributor:   attributor,
		explainer:    explainer,
		cache:        cache,
		events:       events,
		modelVersion: modelVersion,
		workerSem:    make(chan struct{}, maxWorkers),
	}
}

// PredictRisk runs the full pipeline for one patient: extract, score,
// attribute, persist, then refresh the denormalized risk label. On a
// persistence failure the computed record is returned with Persisted=false
// alongside ErrPersistence so the caller can still surface the score.
func (s *Service) PredictRisk(ctx context.Context, publicID, predictionType string, windowDays int) (models.PredictionRecord, error) {
	start := time.Now()
	predictionType = normalizeType(predictionType)
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	p, err := s.repo.GetPatientByPublicID(ctx, publicID)
	if err != nil {
		return models.PredictionRecord{}, err
	}

	vector, err := s.extractor.Extract(ctx, publicID)
	if err != nil {
		return models.PredictionRecord{}, err
	}

	score, err := s.scorer.Score(vector)
	if err != nil {
		return models.PredictionRecord{}, err
	}

	record := models.PredictionRecord{
		ID:              uuid.New(),
		PatientID:       p.ID,
		PatientPublicID: p.PublicID,
		PredictionType:  predictionType,
		Score:           score,
		Attribution:     s.attributor.Attribute(vector),
		Features:        vector,
		WindowDays:      windowDays,
		ModelVersion:    s.modelVersion,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.CreatePrediction(ctx, &record); err != nil {
		return record, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	record.Persisted = true

	// Cache write; last-writer-wins is fine, the record history stays
	// authoritative.
	if err := s.repo.UpdateRiskLevel(ctx, p.ID, score.Band); err != nil {
		logger.Log.WithError(err).WithField("patient_id", publicID).Warn("failed to update denormalized risk level")
	}

	if s.cache != nil {
		if err := s.cache.Materialize(ctx, publicID, vector); err != nil {
			logger.Log.WithError(err).WithField("patient_id", publicID).Debug("feature cache write failed")
		}
	}
	if s.events != nil {
		if err := s.events.PublishPredictionEvent(ctx, record); err != nil {
			logger.Log.WithError(err).WithField("prediction_id", record.ID.String()).Warn("prediction event publish failed")
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"patient_id":    publicID,
		"prediction_id": record.ID.String(),
		"risk_level":    score.Band,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Prediction completed")

	return record, nil
}

// ScoreVector scores an externally supplied vector without persisting
// anything. When a publicID is given and the online cache holds that
// patient's last extracted vector, cached values prefill the gaps before
// clinical defaults do.
func (s *Service) ScoreVector(ctx context.Context, publicID string, vector models.FeatureVector) (models.RiskScore, models.AttributionSet, error) {
	merged := vector
	if publicID != "" && s.cache != nil {
		cached, err := s.cache.Get(ctx, publicID)
		if err != nil {
			logger.Log.WithError(err).WithField("patient_id", publicID).Debug("feature cache read failed")
		}
		if cached != nil {
			merged = make(models.FeatureVector, len(cached)+len(vector))
			for name, value := range cached {
				merged[name] = value
			}
			for name, value := range vector {
				merged[name] = value
			}
		}
	}

	filled := features.Fill(merged)
	score, err := s.scorer.Score(filled)
	if err != nil {
		return models.RiskScore{}, nil, err
	}
	return score, s.attributor.Attribute(filled), nil
}

// BatchPredict fans out over the given patients, or all active patients
// when none are given. A failed patient never aborts the batch.
func (s *Service) BatchPredict(ctx context.Context, patientIDs []string, predictionType string) (models.BatchOutcome, error) {
	if len(patientIDs) == 0 {
		ids, err := s.repo.ListActivePatientIDs(ctx)
		if err != nil {
			return models.BatchOutcome{}, err
		}
		patientIDs = ids
	}

	outcome := models.BatchOutcome{
		Total:     len(patientIDs),
		Successes: []models.BatchSuccess{},
		Failures:  []models.BatchFailure{},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, id := range patientIDs {
		wg.Add(1)
		go func(publicID string) {
			defer wg.Done()
			s.workerSem <- struct{}{}
			defer func() { <-s.workerSem }()

			record, err := s.PredictRisk(ctx, publicID, predictionType, defaultWindowDays)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.Failures = append(outcome.Failures, models.BatchFailure{
					PatientID: publicID,
					Kind:      failureKind(err),
					Error:     err.Error(),
				})
				return
			}
			outcome.Successes = append(outcome.Successes, models.BatchSuccess{
				PatientID:  publicID,
				Prediction: record,
			})
		}(id)
	}
	wg.Wait()

	logger.Log.WithFields(map[string]interface{}{
		"total":     outcome.Total,
		"succeeded": len(outcome.Successes),
		"failed":    len(outcome.Failures),
	}).Info("Batch prediction completed")

	return outcome, nil
}

// ExplainPrediction rebuilds the narrative for a stored prediction.
func (s *Service) ExplainPrediction(ctx context.Context, predictionID uuid.UUID) (models.Explanation, error) {
	record, err := s.repo.GetPrediction(ctx, predictionID)
	if err != nil {
		return models.Explanation{}, err
	}
	p, err := s.repo.GetPatientByPublicID(ctx, record.PatientPublicID)
	if err != nil {
		return models.Explanation{}, err
	}
	return s.explainer.Explain(record, p), nil
}

// GetGlobalFeatureImportance returns the static model-level ranking. The
// table is shared across prediction types.
func (s *Service) GetGlobalFeatureImportance(predictionType string, topN int) []models.GlobalFeature {
	return s.explainer.GlobalFeatures(topN)
}

// AnalyzeFeature returns the clinical reference sheet for one feature.
func (s *Service) AnalyzeFeature(feature string) models.FeatureAnalysis {
	return s.explainer.FeatureAnalysis(feature)
}

// ListPredictions returns the newest predictions for a patient.
func (s *Service) ListPredictions(ctx context.Context, publicID string, limit int) ([]models.PredictionRecord, error) {
	p, err := s.repo.GetPatientByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPredictions(ctx, p.ID, limit)
}

// GeneratePatientReport bundles the latest active prediction with its
// explanation and a trend placeholder.
func (s *Service) GeneratePatientReport(ctx context.Context, publicID string, includeRecommendations bool) (models.PatientReport, error) {
	p, err := s.repo.GetPatientByPublicID(ctx, publicID)
	if err != nil {
		return models.PatientReport{}, err
	}

	report := models.PatientReport{
		Summary: models.PatientSummary{
			PatientID:  p.PublicID,
			Name:       p.Name,
			Age:        p.Age,
			Conditions: p.ChronicConditions,
		},
		Recommendations: []models.ReportRecommendation{},
		TrendAnalysis:   "Risk levels have been stable over the past month",
		GeneratedAt:     time.Now().UTC(),
	}
	if report.Summary.Conditions == nil {
		report.Summary.Conditions = []string{}
	}

	record, err := s.repo.LatestActivePrediction(ctx, p.ID, "")
	if err != nil {
		if errors.Is(err, patient.ErrPredictionNotFound) {
			return report, nil
		}
		return models.PatientReport{}, err
	}

	explanation := s.explainer.Explain(record, p)
	report.CurrentRisk = &models.RiskAssessment{
		RiskLevel:  record.Score.Band,
		RiskScore:  record.Score.Probability,
		Confidence: record.Score.Confidence,
	}
	report.Explanation = &explanation
	if includeRecommendations {
		report.Recommendations = s.explainer.ReportRecommendations(record)
	}
	return report, nil
}

// ModelStatus describes the active scoring backend.
func (s *Service) ModelStatus() models.ModelStatus {
	kind := "rule-table"
	if named, ok := s.scorer.(interface{ Name() string }); ok {
		kind = named.Name()
	}
	return models.ModelStatus{
		ModelVersion:   s.modelVersion,
		ScorerKind:     kind,
		FeatureCount:   len(features.Names),
		SupportedTypes: models.PredictionTypes(),
	}
}

func normalizeType(predictionType string) string {
	switch predictionType {
	case models.TypeDeterioration, models.TypeReadmission, models.TypeMedicationResponse:
		return predictionType
	default:
		return models.TypeDeterioration
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		return FailureNotFound
	case errors.Is(err, features.ErrExtraction):
		return FailureExtraction
	case errors.Is(err, ErrPersistence):
		return FailurePersistence
	default:
		return FailureInternal
	}
}
