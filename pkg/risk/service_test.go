package risk

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/vitalsight-ai/platform/pkg/common/logger"
	"github.com/vitalsight-ai/platform/pkg/common/models"
	"github.com/vitalsight-ai/platform/pkg/patient"
	"github.com/vitalsight-ai/platform/pkg/risk/attribution"
	"github.com/vitalsight-ai/platform/pkg/risk/explain"
	"github.com/vitalsight-ai/platform/pkg/risk/features"
	"github.com/vitalsight-ai/platform/pkg/risk/knowledge"
	"github.com/vitalsight-ai/platform/pkg/risk/scorer"
)

func TestMain(m *testing.M) {
	logger.Init("risk-test")
	os.Exit(m.Run())
}

// memoryRepo is an in-memory Repository for service tests.
type memoryRepo struct {
	mu          sync.Mutex
	patients    map[string]models.Patient
	vitals      map[uuid.UUID]*models.VitalSigns
	labs        map[uuid.UUID]*models.LabResult
	lifestyle   map[uuid.UUID]*models.LifestyleLog
	medications map[uuid.UUID][]models.Medication
	predictions map[uuid.UUID]models.PredictionRecord
	riskLevels  map[uuid.UUID]string

	failCreate bool
	vitalsErr  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		patients:    make(map[string]models.Patient),
		vitals:      make(map[uuid.UUID]*models.VitalSigns),
		labs:        make(map[uuid.UUID]*models.LabResult),
		lifestyle:   make(map[uuid.UUID]*models.LifestyleLog),
		medications: make(map[uuid.UUID][]models.Medication),
		predictions: make(map[uuid.UUID]models.PredictionRecord),
		riskLevels:  make(map[uuid.UUID]string),
	}
}

func (r *memoryRepo) addPatient(publicID string, age int, conditions ...string) models.Patient {
	p := models.Patient{
		ID:                uuid.New(),
		PublicID:          publicID,
		Name:              "Test Patient " + publicID,
		Age:               age,
		ChronicConditions: conditions,
		Status:            "active",
	}
	r.patients[publicID] = p
	return p
}

func (r *memoryRepo) GetPatientByPublicID(ctx context.Context, publicID string) (models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[publicID]
	if !ok {
		return models.Patient{}, patient.ErrPatientNotFound
	}
	return p, nil
}

func (r *memoryRepo) LatestVitals(ctx context.Context, patientID uuid.UUID) (*models.VitalSigns, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vitalsErr != nil {
		return nil, r.vitalsErr
	}
	return r.vitals[patientID], nil
}

func (r *memoryRepo) LatestLabs(ctx context.Context, patientID uuid.UUID) (*models.LabResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.labs[patientID], nil
}

func (r *memoryRepo) LatestLifestyle(ctx context.Context, patientID uuid.UUID) (*models.LifestyleLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifestyle[patientID], nil
}

func (r *memoryRepo) ActiveMedications(ctx context.Context, patientID uuid.UUID) ([]models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.medications[patientID], nil
}

func (r *memoryRepo) ListActivePatientIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.patients))
	for id, p := range r.patients {
		if p.Status == "active" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryRepo) CreatePrediction(ctx context.Context, record *models.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("connection refused")
	}
	r.predictions[record.ID] = *record
	return nil
}

func (r *memoryRepo) GetPrediction(ctx context.Context, predictionID uuid.UUID) (models.PredictionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.predictions[predictionID]
	if !ok {
		return models.PredictionRecord{}, patient.ErrPredictionNotFound
	}
	return record, nil
}

func (r *memoryRepo) LatestActivePrediction(ctx context.Context, patientID uuid.UUID, predictionType string) (models.PredictionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.PredictionRecord
	for id := range r.predictions {
		record := r.predictions[id]
		if record.PatientID != patientID || !record.Active {
			continue
		}
		if predictionType != "" && record.PredictionType != predictionType {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			latest = &record
		}
	}
	if latest == nil {
		return models.PredictionRecord{}, patient.ErrPredictionNotFound
	}
	return *latest, nil
}

func (r *memoryRepo) ListPredictions(ctx context.Context, patientID uuid.UUID, limit int) ([]models.PredictionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := []models.PredictionRecord{}
	for _, record := range r.predictions {
		if record.PatientID == patientID {
			records = append(records, record)
		}
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (r *memoryRepo) UpdateRiskLevel(ctx context.Context, patientID uuid.UUID, level string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.riskLevels[patientID] = level
	return nil
}

type recordingCache struct {
	mu      sync.Mutex
	vectors map[string]models.FeatureVector
}

func (c *recordingCache) Materialize(ctx context.Context, patientID string, vector models.FeatureVector) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vectors == nil {
		c.vectors = make(map[string]models.FeatureVector)
	}
	c.vectors[patientID] = vector
	return nil
}

func (c *recordingCache) Get(ctx context.Context, patientID string) (models.FeatureVector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vectors[patientID], nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []models.PredictionRecord
}

func (p *recordingPublisher) PublishPredictionEvent(ctx context.Context, record models.PredictionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return nil
}

func newTestService(repo *memoryRepo, cache FeatureCache, events EventPublisher) *Service {
	return NewService(
		repo,
		features.NewExtractor(repo),
		scorer.NewRuleScorer(scorer.ZeroNoise{}),
		attribution.NewEngine(rand.New(rand.NewSource(1))),
		explain.NewGenerator(knowledge.Default()),
		cache,
		events,
		"test-1.0.0",
		2,
	)
}

func TestPredictRiskPersistsRecord(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.addPatient("P001", 72, "diabetes", "hypertension")
	cache := &recordingCache{}
	publisher := &recordingPublisher{}
	service := newTestService(repo, cache, publisher)

	record, err := service.PredictRisk(context.Background(), "P001", "", 0)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	if !record.Persisted {
		t.Error("record not marked persisted")
	}
	if record.PredictionType != models.TypeDeterioration {
		t.Errorf("prediction type = %s, want default deterioration", record.PredictionType)
	}
	if record.WindowDays != 90 {
		t.Errorf("window = %d, want default 90", record.WindowDays)
	}
	if record.ModelVersion != "test-1.0.0" {
		t.Errorf("model version = %s", record.ModelVersion)
	}
	if len(record.Features) != len(features.Names) {
		t.Errorf("expected complete vector, got %d features", len(record.Features))
	}
	if len(record.Attribution) != len(record.Features) {
		t.Errorf("attribution covers %d of %d features", len(record.Attribution), len(record.Features))
	}
	if _, ok := repo.predictions[record.ID]; !ok {
		t.Error("record not stored")
	}
	if repo.riskLevels[p.ID] != record.Score.Band {
		t.Errorf("risk label = %s, want %s", repo.riskLevels[p.ID], record.Score.Band)
	}
	if _, ok := cache.vectors["P001"]; !ok {
		t.Error("feature vector not cached")
	}
	if len(publisher.records) != 1 {
		t.Errorf("expected 1 published event, got %d", len(publisher.records))
	}
}

func TestPredictRiskPersistenceFailure(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.addPatient("P001", 50)
	repo.failCreate = true
	service := newTestService(repo, nil, nil)

	record, err := service.PredictRisk(context.Background(), "P001", models.TypeReadmission, 30)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if record.Persisted {
		t.Error("failed write must not be marked persisted")
	}
	if record.Score.Band == "" {
		t.Error("computed score should still be returned")
	}
	if _, ok := repo.riskLevels[p.ID]; ok {
		t.Error("risk label must not move when the record write failed")
	}
}

func TestPredictRiskUnknownPatient(t *testing.T) {
	service := newTestService(newMemoryRepo(), nil, nil)

	_, err := service.PredictRisk(context.Background(), "P404", "", 0)
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestScoreVectorFillsDefaults(t *testing.T) {
	service := newTestService(newMemoryRepo(), nil, nil)

	score, attributionSet, err := service.ScoreVector(context.Background(), "", models.FeatureVector{"age": 70})
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	// Only the age clause fires against an otherwise default vector.
	if score.Probability != 0.2 {
		t.Errorf("probability = %v, want 0.2", score.Probability)
	}
	if len(attributionSet) != len(features.Names) {
		t.Errorf("attribution covers %d features, want %d", len(attributionSet), len(features.Names))
	}
}

func TestScoreVectorPrefillsFromCache(t *testing.T) {
	cache := &recordingCache{vectors: map[string]models.FeatureVector{
		"P001": {"age": 70, "systolic_bp": 150},
	}}
	service := newTestService(newMemoryRepo(), cache, nil)

	// Supplied value wins over the cached one; cached systolic_bp fills the gap.
	score, _, err := service.ScoreVector(context.Background(), "P001", models.FeatureVector{"age": 40})
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	// systolic 150 (+0.25) only; age 40 fires nothing.
	if score.Probability != 0.25 {
		t.Errorf("probability = %v, want 0.25", score.Probability)
	}
}

func TestBatchPredictIsolatesFailures(t *testing.T) {
	repo := newMemoryRepo()
	repo.addPatient("P001", 45)
	service := newTestService(repo, nil, nil)

	outcome, err := service.BatchPredict(context.Background(), []string{"P001", "P002"}, "")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if outcome.Total != 2 {
		t.Errorf("total = %d, want 2", outcome.Total)
	}
	if len(outcome.Successes) != 1 || outcome.Successes[0].PatientID != "P001" {
		t.Fatalf("successes = %+v", outcome.Successes)
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("failures = %+v", outcome.Failures)
	}
	if outcome.Failures[0].PatientID != "P002" || outcome.Failures[0].Kind != FailureNotFound {
		t.Errorf("failure = %+v, want P002/not_found", outcome.Failures[0])
	}
}

func TestBatchPredictFailureKinds(t *testing.T) {
	repo := newMemoryRepo()
	repo.addPatient("P001", 45)
	repo.vitalsErr = errors.New("connection reset")
	service := newTestService(repo, nil, nil)

	outcome, err := service.BatchPredict(context.Background(), []string{"P001"}, "")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Kind != FailureExtraction {
		t.Fatalf("failures = %+v, want extraction kind", outcome.Failures)
	}
}

func TestBatchPredictDefaultsToActivePatients(t *testing.T) {
	repo := newMemoryRepo()
	repo.addPatient("P001", 45)
	repo.addPatient("P002", 60)
	service := newTestService(repo, nil, nil)

	outcome, err := service.BatchPredict(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if outcome.Total != 2 || len(outcome.Successes) != 2 {
		t.Fatalf("outcome = %+v, want both active patients scored", outcome)
	}
}

func TestExplainPrediction(t *testing.T) {
	repo := newMemoryRepo()
	repo.addPatient("P001", 72, "diabetes")
	service := newTestService(repo, nil, nil)

	record, err := service.PredictRisk(context.Background(), "P001", "", 0)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	explanation, err := service.ExplainPrediction(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("explain failed: %v", err)
	}
	if explanation.PredictionID != record.ID {
		t.Error("prediction id mismatch")
	}
	if explanation.PatientID != "P001" {
		t.Errorf("patient id = %s", explanation.PatientID)
	}
	if explanation.RiskScore != record.Score.Probability {
		t.Errorf("risk score drifted: %v vs %v", explanation.RiskScore, record.Score.Probability)
	}
	if len(explanation.LocalFeatures) == 0 || explanation.Recommendation == "" {
		t.Errorf("incomplete explanation: %+v", explanation)
	}
}

func TestExplainPredictionNotFound(t *testing.T) {
	service := newTestService(newMemoryRepo(), nil, nil)

	_, err := service.ExplainPrediction(context.Background(), uuid.New())
	if !errors.Is(err, patient.ErrPredictionNotFound) {
		t.Fatalf("expected ErrPredictionNotFound, got %v", err)
	}
}

func TestGeneratePatientReport(t *testing.T) {
	repo := newMemoryRepo()
	repo.addPatient("P001", 72, "diabetes")
	service := newTestService(repo, nil, nil)

	// Before any prediction exists the report has no risk section.
	report, err := service.GeneratePatientReport(context.Background(), "P001", true)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.CurrentRisk != nil || report.Explanation != nil {
		t.Error("expected no risk section without predictions")
	}
	if report.Summary.PatientID != "P001" || report.Summary.Age != 72 {
		t.Errorf("summary = %+v", report.Summary)
	}

	if _, err := service.PredictRisk(context.Background(), "P001", "", 0); err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	report, err = service.GeneratePatientReport(context.Background(), "P001", true)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.CurrentRisk == nil || report.Explanation == nil {
		t.Fatal("expected risk section after prediction")
	}
	if len(report.Recommendations) != 3 {
		t.Errorf("expected 3 recommendations, got %d", len(report.Recommendations))
	}

	report, err = service.GeneratePatientReport(context.Background(), "P001", false)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.Recommendations) != 0 {
		t.Errorf("expected no recommendations when excluded, got %d", len(report.Recommendations))
	}
}

func TestModelStatus(t *testing.T) {
	service := newTestService(newMemoryRepo(), nil, nil)

	status := service.ModelStatus()
	if status.ScorerKind != "rule-table" {
		t.Errorf("scorer kind = %s", status.ScorerKind)
	}
	if status.FeatureCount != len(features.Names) {
		t.Errorf("feature count = %d", status.FeatureCount)
	}
	if len(status.SupportedTypes) != 3 {
		t.Errorf("supported types = %v", status.SupportedTypes)
	}
}
