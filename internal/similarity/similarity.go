// Package similarity scores how close two trademark names are when spoken and
// when read. All functions are pure: identical inputs always produce identical
// results.
package similarity

import (
	"fmt"
	"math"
	"strings"

	"trademark-risk-eval/internal/match"
)

// Combined score weighting. The two weights sum to 1.
const (
	PhoneticWeight = 0.5
	VisualWeight   = 0.5
)

// Result is the similarity breakdown between a query mark and a candidate mark.
type Result struct {
	Phonetic      int      `json:"phonetic"`
	Visual        int      `json:"visual"`
	Combined      int      `json:"combined"`
	CoreWordMatch bool     `json:"core_word_match"`
	MatchedWords  []string `json:"matched_words"`
	Explanation   string   `json:"explanation"`
}

// Compare computes the full similarity breakdown of candidate against query.
func Compare(query, candidate string) Result {
	q := match.NormalizeMark(query)
	c := match.NormalizeMark(candidate)

	phonetic := ratio(PhoneticKey(q.Compact), PhoneticKey(c.Compact))
	visual := ratio(q.Compact, c.Compact)
	matched := match.CoreWords(q, c)

	res := Result{
		Phonetic:      phonetic,
		Visual:        visual,
		Combined:      Combine(phonetic, visual),
		CoreWordMatch: len(matched) > 0,
		MatchedWords:  matched,
	}
	res.Explanation = explain(res)
	return res
}

// Combine blends phonetic and visual scores using the fixed weights.
func Combine(phonetic, visual int) int {
	return clampScore(roundScore(PhoneticWeight*float64(phonetic) + VisualWeight*float64(visual)))
}

func explain(res Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sounds %s (phonetic %d), looks %s (visual %d), combined %d",
		describe(res.Phonetic), res.Phonetic, describe(res.Visual), res.Visual, res.Combined)
	if res.CoreWordMatch {
		fmt.Fprintf(&b, "; shares core words: %s", strings.Join(res.MatchedWords, ", "))
	}
	return b.String()
}

func describe(score int) string {
	switch {
	case score >= 90:
		return "nearly identical"
	case score >= 70:
		return "similar"
	case score >= 50:
		return "somewhat similar"
	default:
		return "different"
	}
}

func roundScore(v float64) int {
	return int(math.Round(v))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
