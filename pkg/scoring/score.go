package scoring

import (
	"math"
	"strings"

	"xtractr/pkg/models"
)

// Match weights by tier. Exact substring hits outrank stemmed token
// hits, which outrank fuzzy prefix hits; within a tier the bio carries
// the most weight.
const (
	weightBioExact    = 3.0
	weightNameExact   = 2.5
	weightHandleExact = 2.0
	weightBioStem     = 2.0
	weightNameStem    = 1.5
	weightFuzzy       = 0.75
)

// ScoreUser scores a single user against a set of keywords and reports
// which keywords hit. The score is normalized to 0-100 against the
// maximum possible raw score (every keyword an exact bio match). An
// empty keyword set means no filtering intent: the score is 100 with no
// matches.
func ScoreUser(user models.UserRecord, keywords []string) (int, []models.MatchResult) {
	if len(keywords) == 0 {
		return 100, nil
	}

	bioText := user.Bio
	nameText := user.DisplayName
	handleText := user.Username
	fullText := strings.ToLower(bioText + " " + nameText + " " + handleText)

	bioTokens := StemmedTokens(bioText)
	nameTokens := StemmedTokens(nameText)
	handleTokens := StemmedTokens(handleText)

	allStemmed := make([]string, 0, len(bioTokens)+len(nameTokens)+len(handleTokens))
	allStemmed = append(allStemmed, bioTokens...)
	allStemmed = append(allStemmed, nameTokens...)
	allStemmed = append(allStemmed, handleTokens...)

	totalScore := 0.0
	var matches []models.MatchResult

	for _, keyword := range keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}

		kwScore := 0.0
		var matchType models.MatchType

		if strings.Contains(fullText, kw) {
			// Exact substring match, bio worth more than name or handle
			switch {
			case strings.Contains(strings.ToLower(bioText), kw):
				kwScore = weightBioExact
				matchType = models.MatchBioExact
			case strings.Contains(strings.ToLower(nameText), kw):
				kwScore = weightNameExact
				matchType = models.MatchNameExact
			default:
				kwScore = weightHandleExact
				matchType = models.MatchHandleExact
			}
		} else {
			// Stemmed match so "engineering" still matches "engineer"
			kwStemmed := Stem(kw)
			var kwTokens []string
			if strings.Contains(kw, " ") {
				for _, part := range strings.Fields(kw) {
					kwTokens = append(kwTokens, Stem(part))
				}
			} else {
				kwTokens = []string{kwStemmed}
			}

			// Multi-word keywords require every stemmed part to appear
			allPartsFound := true
			for _, part := range kwTokens {
				if !anyTokenMatches(allStemmed, part) {
					allPartsFound = false
					break
				}
			}

			if allPartsFound {
				if tokensIntersect(bioTokens, kwTokens) {
					kwScore = weightBioStem
					matchType = models.MatchBioStem
				} else {
					kwScore = weightNameStem
					matchType = models.MatchNameStem
				}
			} else if fuzzyMatches(allStemmed, kwStemmed) {
				kwScore = weightFuzzy
				matchType = models.MatchFuzzy
			}
		}

		if kwScore > 0 {
			totalScore += kwScore
			matches = append(matches, models.MatchResult{
				Keyword: kw,
				Type:    matchType,
				Weight:  kwScore,
			})
		}
	}

	// Max possible raw score counts every supplied keyword, including
	// blank ones, so blanks dilute rather than inflate the result.
	maxPossible := float64(len(keywords)) * weightBioExact
	normalized := int(math.Round(totalScore / maxPossible * 100))
	if normalized > 100 {
		normalized = 100
	}

	return normalized, matches
}

// tokenMatch reports whether a stemmed token and a stemmed keyword part
// agree: equal, or one is a prefix of the other.
func tokenMatch(token, part string) bool {
	return token == part || strings.HasPrefix(token, part) || strings.HasPrefix(part, token)
}

func anyTokenMatches(tokens []string, part string) bool {
	for _, token := range tokens {
		if tokenMatch(token, part) {
			return true
		}
	}
	return false
}

func tokensIntersect(tokens, parts []string) bool {
	for _, token := range tokens {
		for _, part := range parts {
			if tokenMatch(token, part) {
				return true
			}
		}
	}
	return false
}

// fuzzyMatches reports whether any token is close to the stemmed
// keyword: both at least 3 characters, sharing a 3-character prefix in
// either direction, with a common prefix covering at least 60% of the
// shorter string.
func fuzzyMatches(tokens []string, kwStemmed string) bool {
	if len(kwStemmed) < 3 {
		return false
	}
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		if strings.HasPrefix(token, kwStemmed[:3]) || strings.HasPrefix(kwStemmed, token[:3]) {
			overlap := commonPrefixLen(token, kwStemmed)
			shorter := len(token)
			if len(kwStemmed) < shorter {
				shorter = len(kwStemmed)
			}
			if float64(overlap) >= float64(shorter)*0.6 {
				return true
			}
		}
	}
	return false
}
