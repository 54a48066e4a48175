package match

import "strings"

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "of": {}, "by": {},
	"inc": {}, "llc": {}, "ltd": {}, "corp": {}, "corporation": {}, "company": {}, "limited": {},
	"gmbh": {}, "plc": {}, "holdings": {}, "international": {}, "intl": {}, "brand": {}, "brands": {},
}

// Generic trade terms carry no distinctive weight in a compound mark.
var genericTerms = map[string]struct{}{
	"support": {}, "help": {}, "shop": {}, "store": {}, "online": {}, "tech": {}, "services": {},
	"service": {}, "blog": {}, "app": {}, "world": {}, "global": {}, "labs": {}, "care": {},
	"group": {}, "cloud": {}, "hub": {}, "zone": {}, "plus": {}, "products": {}, "solutions": {},
}

// IsStopWord reports whether the lowercase token should be ignored for matching.
func IsStopWord(token string) bool {
	if _, ok := stopWords[token]; ok {
		return true
	}
	_, ok := genericTerms[token]
	return ok
}

// CoreWords returns the query tokens that also appear in the candidate, either
// verbatim, through a shared stem, or as the head or tail of a compound token.
// The result preserves query token order and is nil when nothing matches.
func CoreWords(query, candidate MarkProfile) []string {
	if len(query.Tokens) == 0 || len(candidate.Tokens) == 0 {
		return nil
	}
	var matched []string
	for _, qt := range query.Tokens {
		for _, ct := range candidate.Tokens {
			if tokensMatch(qt, ct) {
				matched = append(matched, qt)
				break
			}
		}
	}
	return matched
}

func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if Stem(a) == Stem(b) {
		return true
	}
	return isCompoundPart(a, b) || isCompoundPart(b, a)
}

// isCompoundPart reports whether part is the head or tail of whole and the
// remainder is itself long enough to be a word.
func isCompoundPart(part, whole string) bool {
	if len([]rune(whole))-len([]rune(part)) < MinTokenLength {
		return false
	}
	return strings.HasPrefix(whole, part) || strings.HasSuffix(whole, part)
}

// Stem applies a light English suffix strip. The remaining root always keeps
// at least MinTokenLength runes.
func Stem(token string) string {
	n := len([]rune(token))
	switch {
	case strings.HasSuffix(token, "ing") && n-3 >= MinTokenLength:
		return strings.TrimSuffix(token, "ing")
	case strings.HasSuffix(token, "ed") && n-2 >= MinTokenLength:
		return strings.TrimSuffix(token, "ed")
	case strings.HasSuffix(token, "es") && n-2 >= MinTokenLength && sibilantRoot(strings.TrimSuffix(token, "es")):
		return strings.TrimSuffix(token, "es")
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && n-1 >= MinTokenLength:
		return strings.TrimSuffix(token, "s")
	}
	return token
}

func sibilantRoot(root string) bool {
	for _, suffix := range []string{"s", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(root, suffix) {
			return true
		}
	}
	return false
}
