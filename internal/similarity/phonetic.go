package similarity

import "trademark-risk-eval/internal/match"

// Phonetic scores how alike two marks sound on a 0-100 scale. Both marks are
// reduced to a phonetic key and the keys are compared by edit distance.
func Phonetic(a, b string) int {
	return ratio(PhoneticKey(a), PhoneticKey(b))
}

// PhoneticKey encodes a mark so that common brand spellings of the same sound
// collapse together: "Kwik" and "Quick" both encode to "kwak", "Fone" and
// "Phone" to "fana". Every vowel, including y, folds to 'a' and repeated
// symbols collapse, which absorbs doubled consonants.
func PhoneticKey(s string) string {
	src := []rune(match.Compact(s))
	out := make([]rune, 0, len(src))
	emit := func(rs ...rune) {
		for _, r := range rs {
			if n := len(out); n > 0 && out[n-1] == r {
				continue
			}
			out = append(out, r)
		}
	}

	for i := 0; i < len(src); i++ {
		r := src[i]
		var next rune
		if i+1 < len(src) {
			next = src[i+1]
		}

		switch {
		case isVowel(r):
			emit('a')
		case i == 0 && (r == 'k' || r == 'g' || r == 'p') && next == 'n':
			// silent: knight, gnome, pneumatic
		case i == 0 && r == 'w' && next == 'r':
			// silent: wright
		case r == 'p' && next == 'h':
			emit('f')
			i++
		case r == 'g' && next == 'h':
			if i == 0 {
				emit('g')
			}
			i++
		case r == 'c' && next == 'k':
			emit('k')
			i++
		case r == 'c' && (next == 'e' || next == 'i' || next == 'y'):
			emit('s')
		case r == 'q' && next == 'u':
			emit('k', 'w')
			i++
		case r == 'c' || r == 'q':
			emit('k')
		case r == 'x':
			emit('k', 's')
		case r == 'z':
			emit('s')
		default:
			emit(r)
		}
	}
	return string(out)
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
