package scorer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/vitalsight-ai/platform/pkg/common/logger"
	"github.com/vitalsight-ai/platform/pkg/common/models"
)

// Artifact is a trained logistic model exported as JSON. The newest export
// for a model lives at <dir>/<name>_latest.json.
type Artifact struct {
	Model struct {
		Type         string   `json:"type"`
		Algorithm    string   `json:"algorithm"`
		FeatureNames []string `json:"feature_names"`
		Weights      struct {
			Bias         float64   `json:"bias"`
			Coefficients []float64 `json:"coefficients"`
		} `json:"weights"`
	} `json:"model"`
}

// ArtifactScorer serves trained-model scores behind the same Scorer
// interface as the rule table. When no usable artifact exists it falls
// back to the configured Scorer.
type ArtifactScorer struct {
	dir      string
	model    string
	fallback Scorer
	cache    map[string]cachedArtifact
	mu       sync.RWMutex
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
}

func NewArtifactScorer(dir, model string, fallback Scorer) *ArtifactScorer {
	return &ArtifactScorer{
		dir:      dir,
		model:    model,
		fallback: fallback,
		cache:    make(map[string]cachedArtifact),
	}
}

func (s *ArtifactScorer) Name() string { return "artifact:" + s.model }

func (s *ArtifactScorer) Score(vector models.FeatureVector) (models.RiskScore, error) {
	artifact, err := s.loadArtifact(s.model)
	if err != nil {
		if s.fallback != nil {
			logger.Log.WithError(err).WithField("model", s.model).Warn("artifact unavailable, using fallback scorer")
			return s.fallback.Score(vector)
		}
		return models.RiskScore{}, err
	}
	if len(artifact.Model.FeatureNames) == 0 {
		return models.RiskScore{}, fmt.Errorf("artifact %s missing feature names", s.model)
	}

	sum := artifact.Model.Weights.Bias
	for i, name := range artifact.Model.FeatureNames {
		value, ok := vector[name]
		if !ok {
			return models.RiskScore{}, fmt.Errorf("artifact %s: missing feature %s", s.model, name)
		}
		if i < len(artifact.Model.Weights.Coefficients) {
			sum += artifact.Model.Weights.Coefficients[i] * value
		}
	}

	probability := clamp01(sigmoid(sum))
	return models.RiskScore{
		Probability: probability,
		Band:        BandFor(probability),
		Confidence:  ConfidenceFor(probability),
	}, nil
}

func (s *ArtifactScorer) loadArtifact(model string) (Artifact, error) {
	latest := filepath.Join(s.dir, fmt.Sprintf("%s_latest.json", model))
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	s.mu.RLock()
	cached, ok := s.cache[model]
	s.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, err
	}
	s.mu.Lock()
	s.cache[model] = cachedArtifact{artifact: artifact, modTime: mod}
	s.mu.Unlock()
	return artifact, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
