package models

// UserRecord is a normalized user captured from a followers/following
// timeline. Identity is UserID; every other field is display data the
// capture layer may populate inconsistently, so partial records are valid.
type UserRecord struct {
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	Bio             string `json:"bio"`
	FollowersCount  int    `json:"followersCount"`
	FollowingCount  int    `json:"followingCount"`
	Verified        bool   `json:"verified"`
	JoinDate        string `json:"joinDate"`
	Location        string `json:"location"`
	ProfileURL      string `json:"profileUrl"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// MatchType identifies which scoring tier produced a keyword match.
type MatchType string

const (
	MatchBioExact    MatchType = "bio-exact"
	MatchNameExact   MatchType = "name-exact"
	MatchHandleExact MatchType = "handle-exact"
	MatchBioStem     MatchType = "bio-stem"
	MatchNameStem    MatchType = "name-stem"
	MatchFuzzy       MatchType = "fuzzy"
)

// MatchResult records a single keyword hit against a user.
type MatchResult struct {
	Keyword string    `json:"keyword"`
	Type    MatchType `json:"type"`
	Weight  float64   `json:"weight"`
}

// ScoredUser is a UserRecord with its relevance score attached. It is a
// derived, per-filter-invocation view and is never persisted.
type ScoredUser struct {
	UserRecord
	Score   int           `json:"score"`
	Matches []MatchResult `json:"matches"`
}

// FilterConfig controls the filter pipeline. Nil slice/pointer fields
// mean "no constraint". MinScore values <= 0 are treated as the default
// of 1, requiring at least one keyword match of any strength.
type FilterConfig struct {
	Keywords     []string `json:"keywords,omitempty"`
	MinFollowers *int     `json:"minFollowers,omitempty"`
	MaxFollowers *int     `json:"maxFollowers,omitempty"`
	VerifiedOnly bool     `json:"verifiedOnly,omitempty"`
	HasBio       bool     `json:"hasBio,omitempty"`
	MinScore     int      `json:"minScore,omitempty"`
}

// PageResult is one parsed page of a followers/following timeline.
// Cursor is the opaque bottom cursor, empty when the response carried
// none. Primary reports whether the page came from the primary query
// variant; subtype cursors must never feed back into pagination.
type PageResult struct {
	Users   []UserRecord `json:"users"`
	Cursor  string       `json:"cursor,omitempty"`
	Primary bool         `json:"primary"`
}

// ListType names the two list endpoints we capture.
type ListType string

const (
	ListFollowers ListType = "followers"
	ListFollowing ListType = "following"
)
