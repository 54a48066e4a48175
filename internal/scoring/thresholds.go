package scoring

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Thresholds holds every tunable cut-off used by the classifier and the risk
// aggregator. Scores and accuracies are on a 0-100 scale.
type Thresholds struct {
	// InclusionCombined is the inclusive combined score at which a candidate is retained.
	InclusionCombined int `yaml:"inclusion_combined" json:"inclusion_combined"`
	// FalsePositiveAccuracy and FalsePositiveCombined define the reconciliation override:
	// accuracy >= FalsePositiveAccuracy with combined < FalsePositiveCombined is excluded.
	FalsePositiveAccuracy float64 `yaml:"false_positive_accuracy" json:"false_positive_accuracy"`
	FalsePositiveCombined int     `yaml:"false_positive_combined" json:"false_positive_combined"`
	// HighRisk and MediumRisk bucket the case risk score (max accuracy), inclusive.
	HighRisk   float64 `yaml:"high_risk" json:"high_risk"`
	MediumRisk float64 `yaml:"medium_risk" json:"medium_risk"`
	// CriticalTier is exclusive, ReviewTier inclusive; both apply to combined scores.
	CriticalTier int `yaml:"critical_tier" json:"critical_tier"`
	ReviewTier   int `yaml:"review_tier" json:"review_tier"`
}

// DefaultThresholds returns the reference configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		InclusionCombined:     50,
		FalsePositiveAccuracy: 85,
		FalsePositiveCombined: 30,
		HighRisk:              80,
		MediumRisk:            60,
		CriticalTier:          80,
		ReviewTier:            60,
	}
}

// Validate ensures every threshold is on the 0-100 scale and ordered.
func (t Thresholds) Validate() error {
	ints := []struct {
		name  string
		value int
	}{
		{"inclusion_combined", t.InclusionCombined},
		{"false_positive_combined", t.FalsePositiveCombined},
		{"critical_tier", t.CriticalTier},
		{"review_tier", t.ReviewTier},
	}
	for _, f := range ints {
		if f.value < 0 || f.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", f.name, f.value)
		}
	}
	floats := []struct {
		name  string
		value float64
	}{
		{"false_positive_accuracy", t.FalsePositiveAccuracy},
		{"high_risk", t.HighRisk},
		{"medium_risk", t.MediumRisk},
	}
	for _, f := range floats {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %.2f", f.name, f.value)
		}
	}
	if t.MediumRisk > t.HighRisk {
		return errors.New("medium_risk must not exceed high_risk")
	}
	if t.ReviewTier > t.CriticalTier {
		return errors.New("review_tier must not exceed critical_tier")
	}
	return nil
}

// LoadThresholds reads a YAML threshold file. Keys missing from the file keep
// their default values. An empty path returns the defaults.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Thresholds{}, fmt.Errorf("read thresholds: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Thresholds{}, fmt.Errorf("unmarshal thresholds: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, fmt.Errorf("validate thresholds: %w", err)
	}
	return t, nil
}
