package scoring

import "strings"

// suffixes stripped by Stem, longest first. Order matters: a word is
// only ever stripped once, by the first suffix that fits.
var suffixes = []string{
	"ization", "isation", "ational", "fulness", "iveness", "ousness",
	"ation", "tion", "sion", "ment", "ness", "ance", "ence", "able",
	"ible", "ling", "ally", "ical", "ious", "eous", "ous",
	"ing", "ive", "ist", "ity", "ful", "ess",
	"ed", "er", "or", "ly", "al", "es",
	"s",
}

// Stem strips a common English suffix from a word so that inflected
// forms compare equal ("engineering" and "engineer" both reduce to
// "engine"). Words shorter than 4 characters are returned unchanged,
// and a suffix is only stripped when at least 3 characters remain.
func Stem(word string) string {
	if len(word) < 4 {
		return word
	}
	for _, suffix := range suffixes {
		if len(word) > len(suffix)+2 && strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

// Tokenize lowercases text, replaces everything outside [a-z0-9#+.-]
// with spaces, and returns the words longer than one character.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	lowered := strings.ToLower(text)
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '#' || r == '+' || r == '.' || r == '-':
			return r
		default:
			return ' '
		}
	}, lowered)

	var tokens []string
	for _, w := range strings.Fields(mapped) {
		if len(w) > 1 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// StemmedTokens tokenizes text and stems every token.
func StemmedTokens(text string) []string {
	tokens := Tokenize(text)
	for i, t := range tokens {
		tokens[i] = Stem(t)
	}
	return tokens
}

// commonPrefixLen returns the length of the shared prefix of a and b.
func commonPrefixLen(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}
