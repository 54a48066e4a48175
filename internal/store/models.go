package store

import (
	"encoding/json"
	"strings"
	"time"
)

// CaseAnalysis is one classification run for a proposed mark, with its
// aggregated risk cached for listing and filtering.
type CaseAnalysis struct {
	ID                 uint   `gorm:"primaryKey"`
	PublicID           string `gorm:"size:36;uniqueIndex"`
	Query              string `gorm:"size:256;index"`
	QueryNormalized    string `gorm:"size:256;index"`
	Source             string `gorm:"size:32"`
	CandidateCount     int
	IncludedCount      int
	FalsePositiveCount int
	CriticalCount      int
	ReviewCount        int
	OkayCount          int
	RiskScore          float64 `gorm:"index"`
	RiskLevel          string  `gorm:"size:16;index"`
	ProcessingTimeMs   int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Conflict is the persisted classification of one candidate mark within a case.
type Conflict struct {
	ID               uint `gorm:"primaryKey"`
	CaseID           uint `gorm:"index"`
	Position         int
	Name             string `gorm:"size:256"`
	Serial           string `gorm:"size:32"`
	Owner            string `gorm:"size:256"`
	Status           string `gorm:"size:64"`
	ClassesJSON      string `gorm:"type:text"`
	Accuracy         float64
	PhoneticScore    int
	VisualScore      int
	CombinedScore    int `gorm:"index"`
	CoreWordMatch    bool
	MatchedWordsJSON string `gorm:"type:text"`
	Included         bool   `gorm:"index"`
	APIFalsePositive bool
	Rule             string    `gorm:"size:32"`
	Reason           string    `gorm:"type:text"`
	Tier             string    `gorm:"size:16;index"`
	Explanation      string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// SetClasses persists the class list as JSON.
func (c *Conflict) SetClasses(classes []string) {
	c.ClassesJSON = encodeStrings(classes)
}

// Classes returns the unmarshalled class codes.
func (c *Conflict) Classes() []string {
	return decodeStrings(c.ClassesJSON)
}

// SetMatchedWords stores the shared core words.
func (c *Conflict) SetMatchedWords(words []string) {
	c.MatchedWordsJSON = encodeStrings(words)
}

// MatchedWords reads the stored core words.
func (c *Conflict) MatchedWords() []string {
	return decodeStrings(c.MatchedWordsJSON)
}

func encodeStrings(values []string) string {
	if values == nil {
		return "[]"
	}
	payload, _ := json.Marshal(values)
	return string(payload)
}

func decodeStrings(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
