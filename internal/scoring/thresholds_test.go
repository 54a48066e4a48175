package scoring

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadThresholdsEmptyPath(t *testing.T) {
	th, err := LoadThresholds("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th != DefaultThresholds() {
		t.Fatalf("expected defaults got %+v", th)
	}
}

func TestLoadThresholdsPartialFile(t *testing.T) {
	path := writeConfig(t, "false_positive_accuracy: 90\nreview_tier: 55\n")
	th, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.FalsePositiveAccuracy != 90 || th.ReviewTier != 55 {
		t.Fatalf("overrides not applied: %+v", th)
	}
	defaults := DefaultThresholds()
	if th.InclusionCombined != defaults.InclusionCombined || th.HighRisk != defaults.HighRisk {
		t.Fatalf("missing keys should keep defaults: %+v", th)
	}
}

func TestLoadThresholdsErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorHas string
	}{
		{"out of range", "inclusion_combined: 120\n", "inclusion_combined"},
		{"inverted risk", "medium_risk: 90\n", "medium_risk"},
		{"inverted tiers", "review_tier: 85\n", "review_tier"},
		{"bad yaml", "inclusion_combined: [oops\n", "unmarshal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadThresholds(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.errorHas) {
				t.Fatalf("expected error to mention %q got %v", tc.errorHas, err)
			}
		})
	}
}

func TestLoadThresholdsMissingFile(t *testing.T) {
	if _, err := LoadThresholds(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestNewClassifierRejectsInvalid(t *testing.T) {
	th := DefaultThresholds()
	th.FalsePositiveAccuracy = -1
	if _, err := NewClassifier(th); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateReportsFirstInvalidField(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Thresholds)
		errorHas string
	}{
		{"ints before floats", func(th *Thresholds) {
			th.HighRisk = 200
			th.CriticalTier = -1
			th.InclusionCombined = 120
		}, "inclusion_combined"},
		{"field order among ints", func(th *Thresholds) {
			th.ReviewTier = 101
			th.FalsePositiveCombined = -3
		}, "false_positive_combined"},
		{"field order among floats", func(th *Thresholds) {
			th.MediumRisk = 150
			th.FalsePositiveAccuracy = 101
		}, "false_positive_accuracy"},
		{"NaN is out of range", func(th *Thresholds) {
			th.HighRisk = math.NaN()
		}, "high_risk"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			th := DefaultThresholds()
			tc.mutate(&th)
			for i := 0; i < 20; i++ {
				err := th.Validate()
				if err == nil || !strings.HasPrefix(err.Error(), tc.errorHas) {
					t.Fatalf("expected error for %s got %v", tc.errorHas, err)
				}
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
