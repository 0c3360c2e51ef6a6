package timeline

import (
	"regexp"
	"strings"

	"xtractr/pkg/models"
)

// graphqlQueryPattern matches any follower-related GraphQL endpoint,
// capturing the query hash and the query name.
var graphqlQueryPattern = regexp.MustCompile(`(?i)/i/api/graphql/([^/]+)/(Followers|Following|FollowersYouKnow|FollowingYouKnow|BlueVerifiedFollowers)`)

// primaryQueryPattern matches the two primary query names. Subtype
// queries (FollowersYouKnow, BlueVerifiedFollowers and the like) return
// partial subsets and must not drive pagination.
var primaryQueryPattern = regexp.MustCompile(`(?i)^(Followers|Following)$`)

// Query identifies a follower-related GraphQL request.
type Query struct {
	Hash     string
	Name     string
	ListType models.ListType
	Primary  bool
}

// ClassifyURL reports whether the URL is a follower-related GraphQL
// request and, if so, which query it is.
func ClassifyURL(rawURL string) (Query, bool) {
	m := graphqlQueryPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return Query{}, false
	}
	name := m[2]
	return Query{
		Hash:     m[1],
		Name:     name,
		ListType: ListTypeFor(name),
		Primary:  IsPrimary(name),
	}, true
}

// IsPrimary reports whether the query name is one of the two primary
// list queries.
func IsPrimary(queryName string) bool {
	return primaryQueryPattern.MatchString(queryName)
}

// ListTypeFor maps a query name onto the list it belongs to.
func ListTypeFor(queryName string) models.ListType {
	if strings.Contains(strings.ToLower(queryName), "following") {
		return models.ListFollowing
	}
	return models.ListFollowers
}
