package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength is the shortest token considered salient for core-word matching.
const MinTokenLength = 3

// MarkProfile captures the normalization output for a trademark name.
type MarkProfile struct {
	Original string
	Folded   string
	Compact  string
	Tokens   []string
}

// NormalizeMark folds, compacts and tokenizes the supplied mark name.
func NormalizeMark(input string) MarkProfile {
	folded := Fold(input)
	return MarkProfile{
		Original: input,
		Folded:   folded,
		Compact:  strings.ReplaceAll(folded, " ", ""),
		Tokens:   Tokenize(input),
	}
}

// Fold lowercases the input, strips diacritics and collapses every run of
// non-alphanumeric runes into a single space.
func Fold(input string) string {
	stripped := stripAccents(input)
	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Compact returns the folded form with all separators removed.
func Compact(input string) string {
	return strings.ReplaceAll(Fold(input), " ", "")
}

// Tokenize splits a mark into lowercase tokens. Words are split on separators
// and, for mixed-case words, on camel-case and letter/digit boundaries so that
// "BlueSky" yields "bluesky", "blue" and "sky". Stop words and tokens shorter
// than MinTokenLength are dropped.
func Tokenize(input string) []string {
	stripped := stripAccents(input)
	words := strings.FieldsFunc(stripped, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	for _, word := range words {
		out = appendToken(out, strings.ToLower(word))
		parts := splitCompound(word)
		if len(parts) < 2 {
			continue
		}
		for _, part := range parts {
			out = appendToken(out, strings.ToLower(part))
		}
	}
	return out
}

func appendToken(tokens []string, token string) []string {
	if len([]rune(token)) < MinTokenLength || IsStopWord(token) {
		return tokens
	}
	for _, existing := range tokens {
		if existing == token {
			return tokens
		}
	}
	return append(tokens, token)
}

// splitCompound breaks a single word at lower-to-upper transitions and at
// letter/digit boundaries.
func splitCompound(word string) []string {
	rs := []rune(word)
	if len(rs) == 0 {
		return nil
	}
	var parts []string
	start := 0
	for i := 1; i < len(rs); i++ {
		prev, cur := rs[i-1], rs[i]
		boundary := (unicode.IsLower(prev) && unicode.IsUpper(cur)) ||
			(unicode.IsLetter(prev) && unicode.IsDigit(cur)) ||
			(unicode.IsDigit(prev) && unicode.IsLetter(cur))
		if boundary {
			parts = append(parts, string(rs[start:i]))
			start = i
		}
	}
	return append(parts, string(rs[start:]))
}

func stripAccents(input string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, input)
	if err != nil {
		return input
	}
	return out
}
