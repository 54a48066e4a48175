package usp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trademark-risk-eval/internal/cache"
	"trademark-risk-eval/internal/scoring"
)

// Config drives trademark search client behaviour.
type Config struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	CacheTTL     time.Duration
	CacheSize    int
	Rows         int
	RetryBackoff time.Duration
}

// Mark captures the subset of search data we need for classification.
type Mark struct {
	SerialNumber       string   `json:"serial_number"`
	RegistrationNumber string   `json:"registration_number,omitempty"`
	Mark               string   `json:"mark"`
	Owner              string   `json:"owner,omitempty"`
	Status             string   `json:"status,omitempty"`
	StatusCategory     string   `json:"status_category,omitempty"`
	Classes            []string `json:"classes,omitempty"`
	Accuracy           float64  `json:"accuracy"`
	IsLive             bool     `json:"is_live"`
	IsExact            bool     `json:"is_exact"`
}

// LookupResult holds every mark the search returned for a term.
type LookupResult struct {
	Term    string `json:"term"`
	Marks   []Mark `json:"marks"`
	Checked bool   `json:"checked"`
}

// Candidates converts the marks into classifier input, preserving order.
func (r LookupResult) Candidates() []scoring.Candidate {
	out := make([]scoring.Candidate, 0, len(r.Marks))
	for _, m := range r.Marks {
		out = append(out, scoring.Candidate{
			Name:     m.Mark,
			Accuracy: m.Accuracy,
			Serial:   m.SerialNumber,
			Owner:    m.Owner,
			Status:   m.Status,
			Classes:  m.Classes,
		})
	}
	return out
}

// Client performs trademark search lookups with caching and a single retry on
// rate limiting.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	rows       int
	backoff    time.Duration
	results    *cache.TTL[LookupResult]
}

// ErrMissingCredentials is returned when the client cannot authenticate.
var ErrMissingCredentials = errors.New("usp client missing api key")

// NewClient constructs a search client if configuration is valid. When results
// is nil a cache is built from the TTL and size in cfg.
func NewClient(cfg Config, results *cache.TTL[LookupResult]) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://developer.uspto.gov/ibd-api/v1/application/publications"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	rows := cfg.Rows
	if rows <= 0 {
		rows = 25
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	if results == nil {
		results = cache.New[LookupResult](cfg.CacheTTL, cfg.CacheSize)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		rows:       rows,
		backoff:    backoff,
		results:    results,
	}, nil
}

// Search fetches marks similar to term. Responses are cached per normalised term.
func (c *Client) Search(ctx context.Context, term string) (LookupResult, error) {
	if c == nil {
		return LookupResult{}, errors.New("usp client is nil")
	}

	key := strings.ToLower(strings.TrimSpace(term))
	if key == "" {
		return LookupResult{}, nil
	}

	if cached, ok := c.results.Get(key); ok {
		return cached, nil
	}

	result, err := c.performRequest(ctx, key)
	if err != nil {
		return LookupResult{}, err
	}

	c.results.Set(key, result)
	return result, nil
}

func (c *Client) performRequest(ctx context.Context, term string) (LookupResult, error) {
	params := url.Values{}
	params.Set("searchText", fmt.Sprintf("mark:(\"%s\") AND status:(\"LIVE\")", strings.ReplaceAll(term, "\"", "")))
	params.Set("rows", strconv.Itoa(c.rows))
	params.Set("start", "0")

	endpoint := c.baseURL
	if strings.Contains(endpoint, "?") {
		endpoint = endpoint + "&" + params.Encode()
	} else {
		endpoint = endpoint + "?" + params.Encode()
	}

	var payload searchResponse
	for attempt := 0; ; attempt++ {
		retry, err := c.fetch(ctx, endpoint, &payload)
		if err != nil {
			return LookupResult{}, err
		}
		if !retry {
			break
		}
		if attempt > 0 {
			return LookupResult{}, fmt.Errorf("usp api status %d", http.StatusTooManyRequests)
		}
		logrus.WithFields(logrus.Fields{
			"term":    term,
			"backoff": c.backoff.String(),
		}).Warn("trademark search rate limited, retrying")
		select {
		case <-ctx.Done():
			return LookupResult{}, ctx.Err()
		case <-time.After(c.backoff):
		}
	}

	cleanTerm := cleanKey(term)
	marks := make([]Mark, 0, len(payload.Results))
	for _, item := range payload.Results {
		name := strings.TrimSpace(item.MarkIdentification)
		if name == "" {
			continue
		}
		record := Mark{
			SerialNumber:       strings.TrimSpace(item.SerialNumber),
			RegistrationNumber: strings.TrimSpace(item.RegistrationNumber),
			Mark:               name,
			Owner:              strings.TrimSpace(item.OwnerName),
			Status:             strings.TrimSpace(item.MarkCurrentStatus),
			StatusCategory:     strings.TrimSpace(item.MarkCurrentStatusCategory),
			Classes:            collapseStrings(item.InternationalClasses),
			Accuracy:           parseAccuracy(item.Accuracy),
			IsExact:            cleanKey(name) == cleanTerm,
		}
		statusUpper := strings.ToUpper(record.Status)
		categoryUpper := strings.ToUpper(record.StatusCategory)
		record.IsLive = strings.Contains(statusUpper, "LIVE") || strings.Contains(categoryUpper, "LIVE")
		marks = append(marks, record)
	}

	return LookupResult{Term: term, Marks: marks, Checked: true}, nil
}

// fetch issues one request. It reports retry=true on 429 without decoding.
func (c *Client) fetch(ctx context.Context, endpoint string, payload *searchResponse) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("usp api status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return false, fmt.Errorf("decode usp response: %w", err)
	}
	return false, nil
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	SerialNumber              string      `json:"serialNumber"`
	RegistrationNumber        string      `json:"registrationNumber"`
	MarkIdentification        string      `json:"markIdentification"`
	MarkCurrentStatus         string      `json:"markCurrentStatus"`
	MarkCurrentStatusCategory string      `json:"markCurrentStatusCategory"`
	OwnerName                 string      `json:"ownerName"`
	InternationalClasses      interface{} `json:"internationalClasses"`
	Accuracy                  interface{} `json:"accuracy"`
}

// parseAccuracy accepts numeric or string scores; anything unparsable is 0.
func parseAccuracy(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func collapseStrings(raw interface{}) []string {
	switch v := raw.(type) {
	case []interface{}:
		var out []string
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return dedupeStrings(out)
	case string:
		return dedupeStrings(strings.Split(v, ","))
	default:
		return nil
	}
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		key := strings.TrimSpace(strings.ToUpper(item))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(item))
	}
	return out
}

func cleanKey(value string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(value)))
}
