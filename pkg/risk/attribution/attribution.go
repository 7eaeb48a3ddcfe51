// Package attribution assigns per-feature contribution weights explaining a
// risk score. The weights are independently re-derived illustrative values,
// not an additive decomposition of the scorer output: they are not required
// to sum to the probability. Positive values push risk up.
package attribution

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vitalsight-ai/platform/pkg/common/models"
)

// Importance magnitudes for "other" features are drawn from this range.
const (
	otherMin = 0.01
	otherMax = 0.10
)

type Engine struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewEngine builds an attribution engine. Pass a seeded rand for
// deterministic output; nil uses a time-seeded source.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{rng: rng}
}

// Attribute computes a weight for every feature in the vector. The result
// keys are exactly the vector keys. Features are visited in sorted order so
// a seeded engine produces repeatable output.
func (e *Engine) Attribute(vector models.FeatureVector) models.AttributionSet {
	attribution := make(models.AttributionSet, len(vector))

	names := make([]string, 0, len(vector))
	for name := range vector {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := vector[name]
		switch name {
		case "systolic_bp", "diastolic_bp":
			if value > 140 || (name == "diastolic_bp" && value > 90) {
				attribution[name] = 0.15
			} else {
				attribution[name] = 0.05
			}
		case "fasting_glucose", "hba1c":
			if value > 126 || (name == "hba1c" && value > 7.0) {
				attribution[name] = 0.2
			} else {
				attribution[name] = 0.08
			}
		case "age":
			if value > 65 {
				attribution[name] = 0.12
			} else {
				attribution[name] = 0.06
			}
		default:
			attribution[name] = e.lowMagnitude()
		}
	}

	return attribution
}

func (e *Engine) lowMagnitude() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return otherMin + e.rng.Float64()*(otherMax-otherMin)
}
