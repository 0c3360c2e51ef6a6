// Package session accumulates captured users into a resumable session
// with deduplication by user ID, archives completed sessions into a
// bounded history with saved lists, and compares saved lists.
package session

import (
	"fmt"
	"math/rand"
	"time"

	"xtractr/pkg/models"
)

// Session is one active capture run for a username and list type.
type Session struct {
	ID            string              `json:"id"`
	Username      string              `json:"username"`
	ListType      models.ListType     `json:"listType"`
	Users         []models.UserRecord `json:"users"`
	Cursor        string              `json:"cursor,omitempty"`
	StartedAt     time.Time           `json:"startedAt"`
	LastUpdatedAt time.Time           `json:"lastUpdatedAt"`

	// ids indexes Users by UserID for fast dedup. Rebuilt after load.
	ids map[string]bool
}

func newSession(username string, listType models.ListType) *Session {
	now := time.Now()
	return &Session{
		ID:            fmt.Sprintf("%d-%06x", now.UnixMilli(), rand.Intn(1<<24)),
		Username:      username,
		ListType:      listType,
		Users:         []models.UserRecord{},
		StartedAt:     now,
		LastUpdatedAt: now,
		ids:           make(map[string]bool),
	}
}

// rebuildIndex restores the dedup index after loading from disk.
func (s *Session) rebuildIndex() {
	s.ids = make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if u.UserID != "" {
			s.ids[u.UserID] = true
		}
	}
}

// Merge adds the users not already present, keyed by UserID. Records
// without a UserID are dropped. Returns the resulting total and how
// many were actually new.
func (s *Session) Merge(users []models.UserRecord) (total, added int) {
	if s.ids == nil {
		s.rebuildIndex()
	}
	for _, u := range users {
		if u.UserID == "" || s.ids[u.UserID] {
			continue
		}
		s.ids[u.UserID] = true
		s.Users = append(s.Users, u)
		added++
	}
	if added > 0 {
		s.LastUpdatedAt = time.Now()
	}
	return len(s.Users), added
}

// HistoryEntry is the archived summary of a completed session.
type HistoryEntry struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	ListType    models.ListType `json:"listType"`
	Count       int             `json:"count"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
}

// SavedList is a completed session's full user list kept for export and
// comparison.
type SavedList struct {
	Users   []models.UserRecord `json:"users"`
	Meta    HistoryEntry        `json:"meta"`
	SavedAt time.Time           `json:"savedAt"`
}

// Deduplicate returns users with duplicate or empty UserIDs removed,
// preserving first occurrence.
func Deduplicate(users []models.UserRecord) []models.UserRecord {
	seen := make(map[string]bool, len(users))
	result := make([]models.UserRecord, 0, len(users))
	for _, u := range users {
		if u.UserID == "" || seen[u.UserID] {
			continue
		}
		seen[u.UserID] = true
		result = append(result, u)
	}
	return result
}

// FindNewUsers returns the incoming users not already present in
// existing, keyed by UserID.
func FindNewUsers(existing, incoming []models.UserRecord) []models.UserRecord {
	existingIDs := make(map[string]bool, len(existing))
	for _, u := range existing {
		existingIDs[u.UserID] = true
	}
	var result []models.UserRecord
	for _, u := range incoming {
		if u.UserID != "" && !existingIDs[u.UserID] {
			result = append(result, u)
		}
	}
	return result
}

// ComparisonStats summarizes a followers/following comparison.
type ComparisonStats struct {
	TotalFollowers        int `json:"totalFollowers"`
	TotalFollowing        int `json:"totalFollowing"`
	MutualCount           int `json:"mutualCount"`
	NotFollowingBackCount int `json:"notFollowingBackCount"`
	NotFollowedBackCount  int `json:"notFollowedBackCount"`
}

// Comparison is the result of comparing a followers list against a
// following list.
type Comparison struct {
	Mutuals          []models.UserRecord `json:"mutuals"`
	NotFollowingBack []models.UserRecord `json:"notFollowingBack"`
	NotFollowedBack  []models.UserRecord `json:"notFollowedBack"`
	Stats            ComparisonStats     `json:"stats"`
}

// Compare cross-references a followers list with a following list.
// Mutuals appear in both; NotFollowingBack are followed but do not
// follow back; NotFollowedBack follow but are not followed.
func Compare(followers, following []models.UserRecord) Comparison {
	followerIDs := make(map[string]bool, len(followers))
	for _, u := range followers {
		followerIDs[u.UserID] = true
	}
	followingIDs := make(map[string]bool, len(following))
	for _, u := range following {
		followingIDs[u.UserID] = true
	}

	var mutuals, notFollowingBack, notFollowedBack []models.UserRecord
	for _, u := range following {
		if followerIDs[u.UserID] {
			mutuals = append(mutuals, u)
		} else {
			notFollowingBack = append(notFollowingBack, u)
		}
	}
	for _, u := range followers {
		if !followingIDs[u.UserID] {
			notFollowedBack = append(notFollowedBack, u)
		}
	}

	return Comparison{
		Mutuals:          mutuals,
		NotFollowingBack: notFollowingBack,
		NotFollowedBack:  notFollowedBack,
		Stats: ComparisonStats{
			TotalFollowers:        len(followers),
			TotalFollowing:        len(following),
			MutualCount:           len(mutuals),
			NotFollowingBackCount: len(notFollowingBack),
			NotFollowedBackCount:  len(notFollowedBack),
		},
	}
}
