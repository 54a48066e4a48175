package similarity

import "trademark-risk-eval/internal/match"

// Visual scores character-level closeness of two marks on a 0-100 scale using
// the normalized Levenshtein distance of their compact forms.
func Visual(a, b string) int {
	return ratio(match.Compact(a), match.Compact(b))
}

// ratio maps the edit distance between two strings onto 0-100, relative to the
// longer string. Two empty strings are identical; one empty string scores 0.
func ratio(a, b string) int {
	aRunes := []rune(a)
	bRunes := []rune(b)
	if len(aRunes) == 0 && len(bRunes) == 0 {
		return 100
	}
	if len(aRunes) == 0 || len(bRunes) == 0 {
		return 0
	}

	dist := levenshtein(aRunes, bRunes)
	maxLen := len(aRunes)
	if len(bRunes) > maxLen {
		maxLen = len(bRunes)
	}
	return clampScore(roundScore(100 * (1 - float64(dist)/float64(maxLen))))
}

// levenshtein keeps two rolling rows instead of the full matrix.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for c := range prev {
		prev[c] = c
	}

	for r := 1; r <= len(a); r++ {
		cur[0] = r
		for c := 1; c <= len(b); c++ {
			cost := 0
			if a[r-1] != b[c-1] {
				cost = 1
			}
			deletion := prev[c] + 1
			insertion := cur[c-1] + 1
			substitution := prev[c-1] + cost
			cur[c] = minInt(deletion, insertion, substitution)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func minInt(values ...int) int {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
