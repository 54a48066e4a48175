package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"trademark-risk-eval/internal/similarity"
)

// Candidate is an existing trademark returned by the upstream search. Accuracy
// is the search provider's own 0-100 confidence; the remaining fields are
// carried through untouched.
type Candidate struct {
	Name     string   `json:"name"`
	Accuracy float64  `json:"accuracy"`
	Serial   string   `json:"serial,omitempty"`
	Owner    string   `json:"owner,omitempty"`
	Status   string   `json:"status,omitempty"`
	Classes  []string `json:"classes,omitempty"`
}

// Rule identifies which inclusion rule decided a candidate.
type Rule string

const (
	RuleAPIFalsePositive  Rule = "api_false_positive"
	RuleCoreWordMatch     Rule = "core_word_match"
	RuleCombinedThreshold Rule = "combined_threshold"
	RuleLowSimilarity     Rule = "low_similarity"
)

// Decision is the inclusion verdict for one candidate.
type Decision struct {
	Included         bool   `json:"included"`
	APIFalsePositive bool   `json:"api_false_positive"`
	Rule             Rule   `json:"rule"`
	Reason           string `json:"reason"`
}

// ClassificationResult combines a candidate, its similarity breakdown, the
// inclusion decision and its display tier.
type ClassificationResult struct {
	Candidate  Candidate         `json:"candidate"`
	Accuracy   float64           `json:"accuracy"`
	Similarity similarity.Result `json:"similarity"`
	Decision
	Tier Tier `json:"tier"`
}

// Classifier applies the inclusion policy and risk bucketing with a fixed set
// of thresholds. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier constructs a classifier for the supplied thresholds.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

var defaultClassifier = &Classifier{thresholds: DefaultThresholds()}

// Classify scores every candidate against query with the default thresholds.
func Classify(query string, candidates []Candidate) []ClassificationResult {
	return defaultClassifier.Classify(query, candidates)
}

// Thresholds returns the configuration the classifier was built with.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify scores every candidate against query and returns the results
// ordered by combined score, highest first. Candidates with equal combined
// scores keep their input order.
func (c *Classifier) Classify(query string, candidates []Candidate) []ClassificationResult {
	results := make([]ClassificationResult, 0, len(candidates))
	for _, candidate := range candidates {
		sim := similarity.Compare(query, candidate.Name)
		accuracy := ClampAccuracy(candidate.Accuracy)
		results = append(results, ClassificationResult{
			Candidate:  candidate,
			Accuracy:   accuracy,
			Similarity: sim,
			Decision:   c.Decide(sim, accuracy),
			Tier:       c.TierFor(sim.Combined),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity.Combined > results[j].Similarity.Combined
	})
	return results
}

// Decide applies the inclusion policy to a similarity breakdown. The
// reconciliation override is checked first: a high external accuracy paired
// with a low local score excludes the candidate even on a core-word match.
func (c *Classifier) Decide(sim similarity.Result, accuracy float64) Decision {
	t := c.thresholds
	accuracy = ClampAccuracy(accuracy)

	if accuracy >= t.FalsePositiveAccuracy && sim.Combined < t.FalsePositiveCombined {
		return Decision{
			Included:         false,
			APIFalsePositive: true,
			Rule:             RuleAPIFalsePositive,
			Reason: fmt.Sprintf("api false positive override: external accuracy %.0f but combined similarity %d is below %d",
				accuracy, sim.Combined, t.FalsePositiveCombined),
		}
	}
	if sim.CoreWordMatch {
		return Decision{
			Included: true,
			Rule:     RuleCoreWordMatch,
			Reason:   fmt.Sprintf("core word match: %s", strings.Join(sim.MatchedWords, ", ")),
		}
	}
	if sim.Combined >= t.InclusionCombined {
		return Decision{
			Included: true,
			Rule:     RuleCombinedThreshold,
			Reason:   fmt.Sprintf("combined similarity %d meets threshold %d", sim.Combined, t.InclusionCombined),
		}
	}
	return Decision{
		Included: false,
		Rule:     RuleLowSimilarity,
		Reason:   fmt.Sprintf("too low similarity: combined %d below threshold %d", sim.Combined, t.InclusionCombined),
	}
}

// ClampAccuracy forces an external accuracy onto the 0-100 scale. NaN maps to 0.
func ClampAccuracy(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
