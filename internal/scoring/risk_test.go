package scoring

import (
	"testing"

	"trademark-risk-eval/internal/similarity"
)

func TestDeriveRisk(t *testing.T) {
	tests := []struct {
		name          string
		results       []ClassificationResult
		expectedScore float64
		expectedLevel RiskLevel
	}{
		{
			name:          "max of included accuracies",
			results:       []ClassificationResult{included(85), included(40)},
			expectedScore: 85,
			expectedLevel: RiskHigh,
		},
		{
			name:          "no conflicts",
			results:       nil,
			expectedScore: 0,
			expectedLevel: RiskLow,
		},
		{
			name:          "excluded results are ignored",
			results:       []ClassificationResult{excluded(99), included(62)},
			expectedScore: 62,
			expectedLevel: RiskMedium,
		},
		{
			name:          "only excluded results",
			results:       []ClassificationResult{excluded(99), excluded(95)},
			expectedScore: 0,
			expectedLevel: RiskLow,
		},
		{
			name:          "high boundary inclusive",
			results:       []ClassificationResult{included(80)},
			expectedScore: 80,
			expectedLevel: RiskHigh,
		},
		{
			name:          "medium boundary inclusive",
			results:       []ClassificationResult{included(60)},
			expectedScore: 60,
			expectedLevel: RiskMedium,
		},
		{
			name:          "just below medium",
			results:       []ClassificationResult{included(59.9)},
			expectedScore: 59.9,
			expectedLevel: RiskLow,
		},
		{
			name:          "out of range accuracy is clamped",
			results:       []ClassificationResult{included(140)},
			expectedScore: 100,
			expectedLevel: RiskHigh,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			risk := DeriveRisk(tc.results)
			if risk.Score != tc.expectedScore {
				t.Fatalf("expected score %.2f got %.2f", tc.expectedScore, risk.Score)
			}
			if risk.Level != tc.expectedLevel {
				t.Fatalf("expected level %s got %s", tc.expectedLevel, risk.Level)
			}
		})
	}
}

func TestTierFor(t *testing.T) {
	classifier := mustClassifier(t, DefaultThresholds())
	tests := []struct {
		combined int
		expected Tier
	}{
		{100, TierCritical},
		{81, TierCritical},
		{80, TierReview},
		{65, TierReview},
		{60, TierReview},
		{59, TierOkay},
		{55, TierOkay},
		{0, TierOkay},
	}
	for _, tc := range tests {
		if got := classifier.TierFor(tc.combined); got != tc.expected {
			t.Fatalf("tier(%d): expected %s got %s", tc.combined, tc.expected, got)
		}
	}
}

// An included candidate at accuracy 95 with combined 55 is tiered okay:
// tiers follow the 60/80 combined thresholds only.
func TestTierIgnoresAccuracy(t *testing.T) {
	lowAccuracy := withCombined(included(10), 55)
	highAccuracy := withCombined(included(95), 55)

	summary := SummarizeTiers([]ClassificationResult{lowAccuracy, highAccuracy})
	if summary.Okay != 2 || summary.Review != 0 || summary.Critical != 0 {
		t.Fatalf("combined 55 should be okay regardless of accuracy, got %+v", summary)
	}

	summary = SummarizeTiers([]ClassificationResult{withCombined(included(95), 65)})
	if summary.Review != 1 {
		t.Fatalf("combined 65 should be review, got %+v", summary)
	}
}

func TestSummarizeTiersCountsEveryResult(t *testing.T) {
	results := []ClassificationResult{
		withCombined(included(90), 95),
		withCombined(excluded(90), 95),
		withCombined(included(50), 70),
		withCombined(excluded(20), 10),
	}
	summary := SummarizeTiers(results)
	expected := TierSummary{Critical: 2, Review: 1, Okay: 1}
	if summary != expected {
		t.Fatalf("expected %+v got %+v", expected, summary)
	}
}

func TestCustomRiskBoundaries(t *testing.T) {
	th := DefaultThresholds()
	th.HighRisk = 90
	th.MediumRisk = 70
	classifier := mustClassifier(t, th)

	risk := classifier.DeriveRisk([]ClassificationResult{included(85)})
	if risk.Level != RiskMedium {
		t.Fatalf("expected medium with raised thresholds got %s", risk.Level)
	}
}

func included(accuracy float64) ClassificationResult {
	return ClassificationResult{Accuracy: accuracy, Decision: Decision{Included: true}}
}

func excluded(accuracy float64) ClassificationResult {
	return ClassificationResult{Accuracy: accuracy, Decision: Decision{Included: false}}
}

func withCombined(r ClassificationResult, combined int) ClassificationResult {
	r.Similarity = similarity.Result{Combined: combined}
	return r
}
