package scoring

// RiskLevel is the case-level risk bucket derived from external accuracy.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Tier is the display bucket derived from the combined similarity score, not
// from accuracy like RiskLevel.
type Tier string

const (
	TierCritical Tier = "critical"
	TierReview   Tier = "review"
	TierOkay     Tier = "okay"
)

// RiskScore is the case-level risk persisted on a case analysis.
type RiskScore struct {
	Score float64   `json:"risk_score"`
	Level RiskLevel `json:"risk_level"`
}

// TierSummary counts results per display tier.
type TierSummary struct {
	Critical int `json:"critical"`
	Review   int `json:"review"`
	Okay     int `json:"okay"`
}

// DeriveRisk aggregates results with the default thresholds.
func DeriveRisk(results []ClassificationResult) RiskScore {
	return defaultClassifier.DeriveRisk(results)
}

// DeriveRisk takes the highest accuracy among included results. With no
// included results the score is 0 and the level is low.
func (c *Classifier) DeriveRisk(results []ClassificationResult) RiskScore {
	score := 0.0
	for _, r := range results {
		if !r.Included {
			continue
		}
		if acc := ClampAccuracy(r.Accuracy); acc > score {
			score = acc
		}
	}
	return RiskScore{Score: score, Level: c.LevelFor(score)}
}

// LevelFor buckets a risk score.
func (c *Classifier) LevelFor(score float64) RiskLevel {
	switch {
	case score >= c.thresholds.HighRisk:
		return RiskHigh
	case score >= c.thresholds.MediumRisk:
		return RiskMedium
	default:
		return RiskLow
	}
}

// TierFor buckets a combined score: above CriticalTier is critical, from
// ReviewTier up to CriticalTier inclusive is review, anything lower is okay.
func (c *Classifier) TierFor(combined int) Tier {
	switch {
	case combined > c.thresholds.CriticalTier:
		return TierCritical
	case combined >= c.thresholds.ReviewTier:
		return TierReview
	default:
		return TierOkay
	}
}

// SummarizeTiers counts every supplied result by its combined-score tier,
// regardless of inclusion.
func (c *Classifier) SummarizeTiers(results []ClassificationResult) TierSummary {
	var summary TierSummary
	for _, r := range results {
		switch c.TierFor(r.Similarity.Combined) {
		case TierCritical:
			summary.Critical++
		case TierReview:
			summary.Review++
		default:
			summary.Okay++
		}
	}
	return summary
}

// SummarizeTiers counts results per tier with the default thresholds.
func SummarizeTiers(results []ClassificationResult) TierSummary {
	return defaultClassifier.SummarizeTiers(results)
}
