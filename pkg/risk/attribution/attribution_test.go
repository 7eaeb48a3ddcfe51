package attribution

import (
	"math/rand"
	"testing"

	"github.com/vitalsight-ai/platform/pkg/common/models"
	"github.com/vitalsight-ai/platform/pkg/risk/features"
)

func TestAttributeCoversEveryFeature(t *testing.T) {
	engine := NewEngine(nil)
	vector := features.Defaults()

	attribution := engine.Attribute(vector)
	if len(attribution) != len(vector) {
		t.Fatalf("expected %d attributions, got %d", len(vector), len(attribution))
	}
	for name := range vector {
		if _, ok := attribution[name]; !ok {
			t.Errorf("missing attribution for %s", name)
		}
	}
}

func TestAttributeBandedMagnitudes(t *testing.T) {
	engine := NewEngine(rand.New(rand.NewSource(1)))

	elevated := features.Fill(models.FeatureVector{
		"age":             70,
		"systolic_bp":     150,
		"fasting_glucose": 140,
	})
	attribution := engine.Attribute(elevated)

	if attribution["systolic_bp"] != 0.15 {
		t.Errorf("elevated systolic_bp = %v, want 0.15", attribution["systolic_bp"])
	}
	if attribution["fasting_glucose"] != 0.2 {
		t.Errorf("elevated fasting_glucose = %v, want 0.2", attribution["fasting_glucose"])
	}
	if attribution["age"] != 0.12 {
		t.Errorf("elevated age = %v, want 0.12", attribution["age"])
	}

	normal := engine.Attribute(features.Defaults())
	if normal["systolic_bp"] != 0.05 {
		t.Errorf("normal systolic_bp = %v, want 0.05", normal["systolic_bp"])
	}
	if normal["hba1c"] != 0.08 {
		t.Errorf("normal hba1c = %v, want 0.08", normal["hba1c"])
	}
	if normal["age"] != 0.06 {
		t.Errorf("normal age = %v, want 0.06", normal["age"])
	}
}

func TestAttributeOtherFeaturesBounded(t *testing.T) {
	engine := NewEngine(rand.New(rand.NewSource(42)))

	for i := 0; i < 50; i++ {
		attribution := engine.Attribute(features.Defaults())
		for _, name := range []string{"bmi", "heart_rate", "stress_level", "medication_adherence"} {
			value := attribution[name]
			if value < otherMin || value >= otherMax {
				t.Fatalf("%s attribution %v outside [%v, %v)", name, value, otherMin, otherMax)
			}
		}
	}
}

func TestAttributeSeededDeterminism(t *testing.T) {
	vector := features.Defaults()

	first := NewEngine(rand.New(rand.NewSource(7))).Attribute(vector)
	second := NewEngine(rand.New(rand.NewSource(7))).Attribute(vector)

	if len(first) != len(second) {
		t.Fatalf("size mismatch: %d vs %d", len(first), len(second))
	}
	for name, value := range first {
		if second[name] != value {
			t.Errorf("%s differs: %v vs %v", name, value, second[name])
		}
	}
}
