package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xtractr/pkg/models"
)

func user(id string) models.UserRecord {
	return models.UserRecord{UserID: id, Username: "user_" + id}
}

func TestMergeDeduplicatesByUserID(t *testing.T) {
	s := newSession("target", models.ListFollowers)

	total, added := s.Merge([]models.UserRecord{user("1"), user("2")})
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, added)

	// Resubmitting the same users adds nothing
	total, added = s.Merge([]models.UserRecord{user("1"), user("2")})
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, added)

	total, added = s.Merge([]models.UserRecord{user("2"), user("3")})
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, added)
}

func TestMergeTotalEqualsDistinctIDs(t *testing.T) {
	s := newSession("target", models.ListFollowers)

	distinct := make(map[string]bool)
	for round := 0; round < 5; round++ {
		var batch []models.UserRecord
		for i := 0; i < 10; i++ {
			id := fmt.Sprintf("%d", (round*7+i)%20)
			distinct[id] = true
			batch = append(batch, user(id))
		}
		s.Merge(batch)
	}

	assert.Equal(t, len(distinct), len(s.Users))
}

func TestMergeDropsEmptyUserIDs(t *testing.T) {
	s := newSession("target", models.ListFollowers)

	total, added := s.Merge([]models.UserRecord{{Username: "ghost"}, user("1")})
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, added)
}

func TestDeduplicatePreservesFirstOccurrence(t *testing.T) {
	users := []models.UserRecord{
		{UserID: "1", Username: "first"},
		{UserID: "2", Username: "second"},
		{UserID: "1", Username: "duplicate"},
		{Username: "no_id"},
	}

	result := Deduplicate(users)

	require.Len(t, result, 2)
	assert.Equal(t, "first", result[0].Username)
	assert.Equal(t, "second", result[1].Username)
}

func TestFindNewUsers(t *testing.T) {
	existing := []models.UserRecord{user("1"), user("2")}
	incoming := []models.UserRecord{user("2"), user("3"), {Username: "no_id"}}

	result := FindNewUsers(existing, incoming)

	require.Len(t, result, 1)
	assert.Equal(t, "3", result[0].UserID)
}

func TestCompare(t *testing.T) {
	followers := []models.UserRecord{user("a"), user("b"), user("c")}
	following := []models.UserRecord{user("b"), user("c"), user("d")}

	result := Compare(followers, following)

	mutualIDs := ids(result.Mutuals)
	assert.ElementsMatch(t, []string{"b", "c"}, mutualIDs)
	assert.ElementsMatch(t, []string{"d"}, ids(result.NotFollowingBack))
	assert.ElementsMatch(t, []string{"a"}, ids(result.NotFollowedBack))

	assert.Equal(t, 3, result.Stats.TotalFollowers)
	assert.Equal(t, 3, result.Stats.TotalFollowing)
	assert.Equal(t, 2, result.Stats.MutualCount)
	assert.Equal(t, 1, result.Stats.NotFollowingBackCount)
	assert.Equal(t, 1, result.Stats.NotFollowedBackCount)
}

func TestCompareEmptyLists(t *testing.T) {
	result := Compare(nil, nil)

	assert.Empty(t, result.Mutuals)
	assert.Equal(t, 0, result.Stats.MutualCount)
}

func ids(users []models.UserRecord) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.UserID
	}
	return out
}
