package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trademark-risk-eval/internal/scoring"
	"trademark-risk-eval/internal/store"
	"trademark-risk-eval/internal/util"
)

const (
	maxCandidates = 1000

	sourceRequest = "request"
	sourceSearch  = "search"
)

var (
	errQueryRequired = errors.New("query is required")
	errNoCandidates  = errors.New("candidates are required when no search client is configured")
)

// statusError carries the HTTP status a handler should render for err.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func withStatus(status int, err error) error {
	return &statusError{status: status, err: err}
}

func statusFor(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	if errors.Is(err, store.ErrCaseNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// outcome is the classification of one candidate set with its aggregates.
type outcome struct {
	results        []scoring.ClassificationResult
	risk           scoring.RiskScore
	tiers          scoring.TierSummary
	included       int
	falsePositives int
}

// resolveCandidates validates the request and returns the candidate set with
// its source. It never touches the database.
func (s *Server) resolveCandidates(ctx context.Context, req ClassifyRequest) (string, []scoring.Candidate, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return "", nil, withStatus(http.StatusBadRequest, errQueryRequired)
	}
	if len(req.Candidates) > maxCandidates {
		return "", nil, withStatus(http.StatusBadRequest, fmt.Errorf("at most %d candidates are accepted, got %d", maxCandidates, len(req.Candidates)))
	}
	if len(req.Candidates) > 0 {
		return sourceRequest, req.Candidates, nil
	}
	if s.search == nil {
		return "", nil, withStatus(http.StatusBadRequest, errNoCandidates)
	}

	lookup, err := s.search.Search(ctx, query)
	if err != nil {
		return "", nil, withStatus(http.StatusBadGateway, fmt.Errorf("search candidates: %w", err))
	}
	candidates := lookup.Candidates()
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return sourceSearch, candidates, nil
}

func (s *Server) classify(query string, candidates []scoring.Candidate) outcome {
	results := s.classifier.Classify(strings.TrimSpace(query), candidates)
	out := outcome{
		results: results,
		risk:    s.classifier.DeriveRisk(results),
		tiers:   s.classifier.SummarizeTiers(results),
	}
	for _, r := range results {
		if r.Included {
			out.included++
		}
		if r.APIFalsePositive {
			out.falsePositives++
		}
	}
	return out
}

func (o outcome) response(query, source string) ClassifyResponse {
	return ClassifyResponse{
		Query:              query,
		Source:             source,
		Results:            o.results,
		RiskScore:          round2(o.risk.Score),
		RiskLevel:          o.risk.Level,
		Tiers:              o.tiers,
		IncludedCount:      o.included,
		FalsePositiveCount: o.falsePositives,
	}
}

func (o outcome) applyTo(c *store.CaseAnalysis) {
	c.CandidateCount = len(o.results)
	c.IncludedCount = o.included
	c.FalsePositiveCount = o.falsePositives
	c.CriticalCount = o.tiers.Critical
	c.ReviewCount = o.tiers.Review
	c.OkayCount = o.tiers.Okay
	c.RiskScore = o.risk.Score
	c.RiskLevel = string(o.risk.Level)
}

func (o outcome) conflicts() []store.Conflict {
	rows := make([]store.Conflict, 0, len(o.results))
	for _, r := range o.results {
		row := store.Conflict{
			Name:             r.Candidate.Name,
			Serial:           r.Candidate.Serial,
			Owner:            r.Candidate.Owner,
			Status:           r.Candidate.Status,
			Accuracy:         r.Accuracy,
			PhoneticScore:    r.Similarity.Phonetic,
			VisualScore:      r.Similarity.Visual,
			CombinedScore:    r.Similarity.Combined,
			CoreWordMatch:    r.Similarity.CoreWordMatch,
			Included:         r.Included,
			APIFalsePositive: r.APIFalsePositive,
			Rule:             string(r.Rule),
			Reason:           r.Reason,
			Tier:             string(r.Tier),
			Explanation:      r.Similarity.Explanation,
		}
		row.SetClasses(r.Candidate.Classes)
		row.SetMatchedWords(r.Similarity.MatchedWords)
		rows = append(rows, row)
	}
	return rows
}

func candidatesFromConflicts(rows []store.Conflict) []scoring.Candidate {
	out := make([]scoring.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, scoring.Candidate{
			Name:     row.Name,
			Accuracy: row.Accuracy,
			Serial:   row.Serial,
			Owner:    row.Owner,
			Status:   row.Status,
			Classes:  row.Classes(),
		})
	}
	return out
}

// analyzeCase classifies a request, persists the case and broadcasts it.
func (s *Server) analyzeCase(ctx context.Context, req ClassifyRequest) (*store.CaseAnalysis, []store.Conflict, error) {
	sw := util.StartStopwatch()
	source, candidates, err := s.resolveCandidates(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	sw.Lap("search")

	query := strings.TrimSpace(req.Query)
	result := s.classify(query, candidates)
	sw.Lap("classify")

	record := &store.CaseAnalysis{
		PublicID: uuid.NewString(),
		Query:    query,
		Source:   source,
	}
	result.applyTo(record)
	record.ProcessingTimeMs = sw.ElapsedMs()

	conflicts := result.conflicts()
	if err := s.db.CreateCase(record, conflicts); err != nil {
		return nil, nil, fmt.Errorf("save case: %w", err)
	}
	sw.Lap("persist")

	logrus.WithFields(sw.Fields()).WithFields(logrus.Fields{
		"case":       record.PublicID,
		"query":      record.Query,
		"source":     source,
		"candidates": record.CandidateCount,
		"included":   record.IncludedCount,
		"risk_level": record.RiskLevel,
	}).Info("case analysed")

	dto := CaseFromModel(*record)
	s.notifier.Broadcast(AnalysisEvent{
		Type:    EventAnalysis,
		CaseID:  record.PublicID,
		Case:    &dto,
		Message: fmt.Sprintf("%d of %d candidates retained", record.IncludedCount, record.CandidateCount),
	})
	return record, conflicts, nil
}

// rescoreCase re-classifies the stored candidates of a case with the active
// thresholds and replaces its results.
func (s *Server) rescoreCase(publicID string) (*store.CaseAnalysis, []store.Conflict, error) {
	sw := util.StartStopwatch()
	record, err := s.db.GetCase(publicID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.db.ListConflicts(record.ID, false)
	if err != nil {
		return nil, nil, fmt.Errorf("load conflicts: %w", err)
	}
	sw.Lap("load")

	result := s.classify(record.Query, candidatesFromConflicts(rows))
	result.applyTo(record)
	record.ProcessingTimeMs = sw.ElapsedMs()
	sw.Lap("classify")

	conflicts := result.conflicts()
	if err := s.db.ReplaceCaseResults(record, conflicts); err != nil {
		return nil, nil, fmt.Errorf("replace case results: %w", err)
	}
	sw.Lap("persist")

	logrus.WithFields(sw.Fields()).WithFields(logrus.Fields{
		"case":       record.PublicID,
		"risk_level": record.RiskLevel,
	}).Info("case rescored")

	dto := CaseFromModel(*record)
	s.notifier.Broadcast(AnalysisEvent{Type: EventRescored, CaseID: record.PublicID, Case: &dto})
	return record, conflicts, nil
}
