package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vitalsight-ai/platform/pkg/common/models"
)

func TestDefaultGlobalImportance(t *testing.T) {
	base := Default()

	if len(base.GlobalImportance) != 15 {
		t.Fatalf("expected 15 global features, got %d", len(base.GlobalImportance))
	}
	if base.GlobalImportance[0].Name != "systolic_bp" {
		t.Errorf("top feature = %s, want systolic_bp", base.GlobalImportance[0].Name)
	}
	for i := 1; i < len(base.GlobalImportance); i++ {
		if base.GlobalImportance[i].Importance > base.GlobalImportance[i-1].Importance {
			t.Errorf("importance not descending at %s", base.GlobalImportance[i].Name)
		}
	}
}

func TestGlobalTop(t *testing.T) {
	base := Default()

	if got := len(base.GlobalTop(5)); got != 5 {
		t.Errorf("GlobalTop(5) returned %d entries", got)
	}
	if got := len(base.GlobalTop(0)); got != 15 {
		t.Errorf("GlobalTop(0) returned %d entries, want full table", got)
	}
	if got := len(base.GlobalTop(100)); got != 15 {
		t.Errorf("GlobalTop(100) returned %d entries, want full table", got)
	}
}

func TestRecommendationLookup(t *testing.T) {
	base := Default()

	cases := []struct {
		band           string
		predictionType string
		want           string
	}{
		{models.RiskHigh, models.TypeDeterioration, "Schedule immediate follow-up appointment and consider hospitalization if symptoms worsen"},
		{models.RiskHigh, models.TypeMedicationResponse, "Implement immediate intervention and close monitoring"},
		{models.RiskMedium, models.TypeReadmission, "Provide additional patient education and ensure proper follow-up care"},
		{models.RiskLow, models.TypeDeterioration, "Continue current treatment plan with routine monitoring"},
		{"unknown", models.TypeDeterioration, "Continue current treatment plan with routine monitoring"},
	}
	for _, tc := range cases {
		if got := base.Recommendation(tc.band, tc.predictionType); got != tc.want {
			t.Errorf("Recommendation(%s, %s) = %q, want %q", tc.band, tc.predictionType, got, tc.want)
		}
	}
}

func TestDescriptionFallback(t *testing.T) {
	base := Default()

	if got := base.Description("systolic_bp"); got != "Systolic blood pressure reading" {
		t.Errorf("Description(systolic_bp) = %q", got)
	}
	if got := base.Description("pulse_pressure_index"); got != "Pulse Pressure Index" {
		t.Errorf("fallback description = %q, want title-cased name", got)
	}
}

func TestFeatureLookupFallbacks(t *testing.T) {
	base := Default()

	if got := base.NormalRange("stress_level"); got != "Varies by individual" {
		t.Errorf("NormalRange fallback = %q", got)
	}
	if got := base.Significance("bmi"); got != "Important health indicator" {
		t.Errorf("Significance fallback = %q", got)
	}
	recs := base.FeatureRecommendation("bmi")
	if len(recs) != 1 || recs[0] != "Consult with healthcare provider" {
		t.Errorf("FeatureRecommendation fallback = %v", recs)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	base, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(base.GlobalImportance) != 15 {
		t.Fatalf("expected compiled defaults, got %d global features", len(base.GlobalImportance))
	}
}

func TestLoadUnreadablePathFallsBack(t *testing.T) {
	base, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(base.GlobalImportance) != 15 {
		t.Fatalf("expected compiled defaults on fallback, got %d global features", len(base.GlobalImportance))
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	content := `
global_importance:
  - name: systolic_bp
    importance: 0.5
    description: Blood pressure
  - name: age
    importance: 0.3
    description: Age
recommendations:
  high:
    default: Escalate to care team
`
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	base, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(base.GlobalImportance) != 2 {
		t.Fatalf("expected 2 global features from override, got %d", len(base.GlobalImportance))
	}
	if got := base.Recommendation(models.RiskHigh, models.TypeDeterioration); got != "Escalate to care team" {
		t.Errorf("overridden recommendation = %q", got)
	}
}

func TestLoadRejectsEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	if err := os.WriteFile(path, []byte("descriptions:\n  age: Patient age\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for config without global importance table")
	}
}
