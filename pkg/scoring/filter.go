package scoring

import (
	"sort"
	"strings"

	"xtractr/pkg/models"
)

// Score bucket boundaries used by FilterSummary.
const (
	highScoreThreshold   = 50
	mediumScoreThreshold = 20
)

// ApplyFilters applies hard filters and keyword scoring to a captured
// user list and returns the survivors sorted by score descending, with
// follower count as the tiebreaker. A nil config passes every user
// through with score 100.
func ApplyFilters(users []models.UserRecord, filters *models.FilterConfig) []models.ScoredUser {
	if filters == nil {
		scored := make([]models.ScoredUser, 0, len(users))
		for _, user := range users {
			scored = append(scored, models.ScoredUser{UserRecord: user, Score: 100})
		}
		return scored
	}

	threshold := filters.MinScore
	if threshold <= 0 {
		threshold = 1 // default: any match at all
	}

	scored := make([]models.ScoredUser, 0, len(users))

	for _, user := range users {
		// Hard filters first, they eliminate cheaply
		if filters.MinFollowers != nil && user.FollowersCount < *filters.MinFollowers {
			continue
		}
		if filters.MaxFollowers != nil && user.FollowersCount > *filters.MaxFollowers {
			continue
		}
		if filters.VerifiedOnly && !user.Verified {
			continue
		}
		if filters.HasBio && strings.TrimSpace(user.Bio) == "" {
			continue
		}

		score, matches := ScoreUser(user, filters.Keywords)

		// With keywords present, a minimum score is required
		if len(filters.Keywords) > 0 && score < threshold {
			continue
		}

		scored = append(scored, models.ScoredUser{
			UserRecord: user,
			Score:      score,
			Matches:    matches,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].FollowersCount > scored[j].FollowersCount
	})

	return scored
}

// Summary breaks a scored result set into high, medium and low
// relevance buckets.
type Summary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// FilterSummary buckets scored users at the 50 and 20 score boundaries.
func FilterSummary(users []models.ScoredUser) Summary {
	summary := Summary{Total: len(users)}
	for _, user := range users {
		switch {
		case user.Score >= highScoreThreshold:
			summary.High++
		case user.Score >= mediumScoreThreshold:
			summary.Medium++
		default:
			summary.Low++
		}
	}
	return summary
}
