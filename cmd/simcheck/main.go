package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"trademark-risk-eval/internal/scoring"
	"trademark-risk-eval/internal/usp"
)

type report struct {
	Query   string                         `json:"query"`
	Results []scoring.ClassificationResult `json:"results"`
	Risk    scoring.RiskScore              `json:"risk"`
	Tiers   scoring.TierSummary            `json:"tiers"`
}

func main() {
	var (
		query      = flag.String("query", "", "Proposed mark to evaluate")
		candidates multiFlag
		configPath = flag.String("config", "", "Optional YAML file with scoring thresholds")
		asJSON     = flag.Bool("json", false, "Print the full report as JSON")
		timeout    = flag.Duration("timeout", 20*time.Second, "Search timeout when no candidates are given")
	)
	flag.Var(&candidates, "candidate", "Existing mark as name[:accuracy] (repeatable)")
	flag.Parse()

	if strings.TrimSpace(*query) == "" {
		logrus.Fatal("-query is required")
	}

	thresholds, err := scoring.LoadThresholds(*configPath)
	if err != nil {
		logrus.Fatalf("load thresholds: %v", err)
	}
	classifier, err := scoring.NewClassifier(thresholds)
	if err != nil {
		logrus.Fatalf("classifier: %v", err)
	}

	parsed := make([]scoring.Candidate, 0, len(candidates))
	for _, raw := range candidates {
		candidate, err := parseCandidate(raw)
		if err != nil {
			logrus.Fatalf("parse candidate %q: %v", raw, err)
		}
		parsed = append(parsed, candidate)
	}
	if len(parsed) == 0 {
		parsed, err = searchCandidates(*query, *timeout)
		if err != nil {
			logrus.Fatalf("search candidates: %v", err)
		}
	}

	results := classifier.Classify(*query, parsed)
	out := report{
		Query:   *query,
		Results: results,
		Risk:    classifier.DeriveRisk(results),
		Tiers:   classifier.SummarizeTiers(results),
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			logrus.Fatalf("encode report: %v", err)
		}
		return
	}
	renderTable(os.Stdout, out)
}

// parseCandidate reads "name[:accuracy]". A suffix that is not a number is
// treated as part of the name.
func parseCandidate(raw string) (scoring.Candidate, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return scoring.Candidate{}, errors.New("empty candidate")
	}
	idx := strings.LastIndex(value, ":")
	if idx < 0 {
		return scoring.Candidate{Name: value}, nil
	}
	accuracy, err := strconv.ParseFloat(strings.TrimSpace(value[idx+1:]), 64)
	if err != nil {
		return scoring.Candidate{Name: value}, nil
	}
	name := strings.TrimSpace(value[:idx])
	if name == "" {
		return scoring.Candidate{}, errors.New("candidate name is empty")
	}
	return scoring.Candidate{Name: name, Accuracy: accuracy}, nil
}

func searchCandidates(query string, timeout time.Duration) ([]scoring.Candidate, error) {
	client, err := usp.NewClient(usp.Config{
		APIKey:  os.Getenv("SEARCH_API_KEY"),
		BaseURL: os.Getenv("SEARCH_BASE_URL"),
		Timeout: timeout,
	}, nil)
	if errors.Is(err, usp.ErrMissingCredentials) {
		return nil, errors.New("no -candidate given and SEARCH_API_KEY is not set")
	}
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	lookup, err := client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	logrus.WithField("marks", len(lookup.Marks)).Info("loaded candidates from search")
	return lookup.Candidates(), nil
}

func renderTable(w io.Writer, out report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Candidate", "Accuracy", "Phonetic", "Visual", "Combined", "Tier", "Included", "Reason"})
	for _, r := range out.Results {
		table.Append([]string{
			r.Candidate.Name,
			fmt.Sprintf("%.1f", r.Accuracy),
			strconv.Itoa(r.Similarity.Phonetic),
			strconv.Itoa(r.Similarity.Visual),
			strconv.Itoa(r.Similarity.Combined),
			string(r.Tier),
			strconv.FormatBool(r.Included),
			r.Reason,
		})
	}
	table.Render()

	fmt.Fprintf(w, "risk %.1f (%s) | critical %d review %d okay %d\n",
		out.Risk.Score, out.Risk.Level, out.Tiers.Critical, out.Tiers.Review, out.Tiers.Okay)
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
