package api

import (
	"math"
	"strings"
	"time"

	"trademark-risk-eval/internal/scoring"
	"trademark-risk-eval/internal/similarity"
	"trademark-risk-eval/internal/store"
)

// SimilarityRequest asks for the raw breakdown between two marks.
type SimilarityRequest struct {
	Query string `json:"query"`
	Name  string `json:"name"`
}

// SimilarityResponse is the breakdown plus the display tier it maps to.
type SimilarityResponse struct {
	Query string `json:"query"`
	Name  string `json:"name"`
	similarity.Result
	Tier scoring.Tier `json:"tier"`
}

// ClassifyRequest carries a proposed mark and optional candidates. When
// candidates are omitted the configured search client supplies them.
type ClassifyRequest struct {
	Query      string              `json:"query"`
	Candidates []scoring.Candidate `json:"candidates"`
}

// ClassifyResponse is the unpersisted classification of a request.
type ClassifyResponse struct {
	Query              string                         `json:"query"`
	Source             string                         `json:"source"`
	Results            []scoring.ClassificationResult `json:"results"`
	RiskScore          float64                        `json:"risk_score"`
	RiskLevel          scoring.RiskLevel              `json:"risk_level"`
	Tiers              scoring.TierSummary            `json:"tiers"`
	IncludedCount      int                            `json:"included_count"`
	FalsePositiveCount int                            `json:"false_positive_count"`
}

// CaseDTO is the API representation for a persisted case analysis.
type CaseDTO struct {
	ID                 string              `json:"id"`
	Query              string              `json:"query"`
	Source             string              `json:"source"`
	CandidateCount     int                 `json:"candidate_count"`
	IncludedCount      int                 `json:"included_count"`
	FalsePositiveCount int                 `json:"false_positive_count"`
	Tiers              scoring.TierSummary `json:"tiers"`
	RiskScore          float64             `json:"risk_score"`
	RiskLevel          string              `json:"risk_level"`
	ProcessingTimeMs   int64               `json:"processing_time_ms"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// ConflictDTO is the API representation for one classified candidate.
type ConflictDTO struct {
	Name             string   `json:"name"`
	Serial           string   `json:"serial,omitempty"`
	Owner            string   `json:"owner,omitempty"`
	Status           string   `json:"status,omitempty"`
	Classes          []string `json:"classes,omitempty"`
	Accuracy         float64  `json:"accuracy"`
	Phonetic         int      `json:"phonetic"`
	Visual           int      `json:"visual"`
	Combined         int      `json:"combined"`
	CoreWordMatch    bool     `json:"core_word_match"`
	MatchedWords     []string `json:"matched_words,omitempty"`
	Included         bool     `json:"included"`
	APIFalsePositive bool     `json:"api_false_positive"`
	Rule             string   `json:"rule"`
	Reason           string   `json:"reason"`
	Tier             string   `json:"tier"`
	Explanation      string   `json:"explanation"`
}

// CaseDetailResponse bundles a case with its conflicts.
type CaseDetailResponse struct {
	Case      CaseDTO       `json:"case"`
	Conflicts []ConflictDTO `json:"conflicts"`
}

// CasesResponse is the paginated response for case listings.
type CasesResponse struct {
	Items []CaseDTO `json:"items"`
	Total int64     `json:"total"`
}

// ConflictsResponse lists the conflicts of one case.
type ConflictsResponse struct {
	CaseID string        `json:"case_id"`
	Items  []ConflictDTO `json:"items"`
}

// CaseFromModel converts a store.CaseAnalysis into the DTO representation.
func CaseFromModel(c store.CaseAnalysis) CaseDTO {
	return CaseDTO{
		ID:                 c.PublicID,
		Query:              c.Query,
		Source:             c.Source,
		CandidateCount:     c.CandidateCount,
		IncludedCount:      c.IncludedCount,
		FalsePositiveCount: c.FalsePositiveCount,
		Tiers: scoring.TierSummary{
			Critical: c.CriticalCount,
			Review:   c.ReviewCount,
			Okay:     c.OkayCount,
		},
		RiskScore:        round2(c.RiskScore),
		RiskLevel:        c.RiskLevel,
		ProcessingTimeMs: c.ProcessingTimeMs,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ConflictFromModel converts a store.Conflict into the DTO representation.
func ConflictFromModel(c store.Conflict) ConflictDTO {
	return ConflictDTO{
		Name:             c.Name,
		Serial:           c.Serial,
		Owner:            c.Owner,
		Status:           c.Status,
		Classes:          c.Classes(),
		Accuracy:         round2(c.Accuracy),
		Phonetic:         c.PhoneticScore,
		Visual:           c.VisualScore,
		Combined:         c.CombinedScore,
		CoreWordMatch:    c.CoreWordMatch,
		MatchedWords:     c.MatchedWords(),
		Included:         c.Included,
		APIFalsePositive: c.APIFalsePositive,
		Rule:             c.Rule,
		Reason:           strings.TrimSpace(c.Reason),
		Tier:             c.Tier,
		Explanation:      strings.TrimSpace(c.Explanation),
	}
}

func conflictsFromModels(rows []store.Conflict) []ConflictDTO {
	out := make([]ConflictDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ConflictFromModel(row))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
