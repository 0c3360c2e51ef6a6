package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "xtractr/pkg/errors"
	"xtractr/pkg/models"
)

const addEntriesResponse = `{
  "data": {
    "user": {
      "result": {
        "timeline": {
          "timeline": {
            "instructions": [
              {
                "type": "TimelineAddEntries",
                "entries": [
                  {
                    "entryId": "user-1111",
                    "content": {
                      "itemContent": {
                        "user_results": {
                          "result": {
                            "rest_id": "1111",
                            "is_blue_verified": true,
                            "legacy": {
                              "screen_name": "gopher",
                              "name": "Go Pher",
                              "description": "Builds things\nin Go",
                              "followers_count": 1200,
                              "friends_count": 300,
                              "created_at": "Wed Mar 01 00:00:00 +0000 2017",
                              "location": "Berlin",
                              "profile_image_url_https": "https://pbs.example/gopher.jpg"
                            }
                          }
                        }
                      }
                    }
                  },
                  {
                    "entryId": "user-2222",
                    "content": {
                      "itemContent": {
                        "user_results": {
                          "result": {
                            "rest_id": "2222",
                            "core": {
                              "screen_name": "ferris",
                              "name": "Ferris",
                              "created_at": "Mon Jan 02 00:00:00 +0000 2019"
                            },
                            "legacy": {
                              "description": "systems person",
                              "followers_count": 50,
                              "friends_count": 10,
                              "verified": true
                            }
                          }
                        }
                      }
                    }
                  },
                  {
                    "entryId": "cursor-bottom-99",
                    "content": {
                      "value": "next-page-token|123"
                    }
                  }
                ]
              }
            ]
          }
        }
      }
    }
  }
}`

func TestParseAddEntries(t *testing.T) {
	page, err := Parse([]byte(addEntriesResponse))
	require.NoError(t, err)
	require.Len(t, page.Users, 2)

	first := page.Users[0]
	assert.Equal(t, "1111", first.UserID)
	assert.Equal(t, "gopher", first.Username)
	assert.Equal(t, "Go Pher", first.DisplayName)
	assert.Equal(t, "Builds things in Go", first.Bio)
	assert.Equal(t, 1200, first.FollowersCount)
	assert.Equal(t, 300, first.FollowingCount)
	assert.True(t, first.Verified)
	assert.Equal(t, "Berlin", first.Location)
	assert.Equal(t, "https://x.com/gopher", first.ProfileURL)
	assert.Equal(t, "https://pbs.example/gopher.jpg", first.ProfileImageURL)

	// Fields split across core and legacy resolve against both
	second := page.Users[1]
	assert.Equal(t, "ferris", second.Username)
	assert.Equal(t, "Ferris", second.DisplayName)
	assert.Equal(t, "systems person", second.Bio)
	assert.True(t, second.Verified)

	assert.Equal(t, "next-page-token|123", page.Cursor)
}

func TestParseModuleItems(t *testing.T) {
	response := `{
	  "data": {"user": {"result": {"timeline": {"timeline": {"instructions": [
	    {"entries": [
	      {
	        "entryId": "followers-module-1",
	        "content": {
	          "items": [
	            {"item": {"itemContent": {"user_results": {"result": {
	              "rest_id": "3333",
	              "legacy": {"screen_name": "wrapped", "name": "Wrapped", "followers_count": 7}
	            }}}}},
	            {"itemContent": {"user_results": {"result": {
	              "rest_id": "4444",
	              "legacy": {"screen_name": "bare", "name": "Bare", "followers_count": 8}
	            }}}}
	          ]
	        }
	      }
	    ]}
	  ]}}}}}
	}`

	page, err := Parse([]byte(response))
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "wrapped", page.Users[0].Username)
	assert.Equal(t, "bare", page.Users[1].Username)
}

func TestParseAddToModuleInstruction(t *testing.T) {
	response := `{
	  "data": {"user": {"result": {"timeline": {"timeline": {"instructions": [
	    {
	      "type": "TimelineAddToModule",
	      "moduleItems": [
	        {"itemContent": {"user_results": {"result": {
	          "rest_id": "5555",
	          "legacy": {"screen_name": "modular", "name": "Modular"}
	        }}}}
	      ]
	    },
	    {
	      "type": "TimelineReplaceEntry",
	      "entry": {
	        "entryId": "cursor-bottom-42",
	        "content": {"itemContent": {"value": "replaced-cursor"}}
	      }
	    }
	  ]}}}}}
	}`

	page, err := Parse([]byte(response))
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "modular", page.Users[0].Username)
	assert.Equal(t, "replaced-cursor", page.Cursor)
}

func TestParseRecursiveEntryFallback(t *testing.T) {
	// Entries buried outside the known instruction path
	response := `{
	  "data": {"viewer_timeline": {"wrapper": {"entries": [
	    {
	      "entryId": "user-6666",
	      "content": {"itemContent": {"user_results": {"result": {
	        "rest_id": "6666",
	        "legacy": {"screen_name": "hidden", "name": "Hidden"}
	      }}}}
	    }
	  ]}}}
	}`

	page, err := Parse([]byte(response))
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "hidden", page.Users[0].Username)
}

func TestParseRecursiveUserResultFallback(t *testing.T) {
	// User result under an unknown wrapper inside the entry
	response := `{
	  "data": {"user": {"result": {"timeline": {"timeline": {"instructions": [
	    {"entries": [
	      {
	        "entryId": "user-7777",
	        "content": {"unknownWrapper": {"deeper": {
	          "rest_id": "7777",
	          "legacy": {"screen_name": "nested", "name": "Nested"}
	        }}}
	      }
	    ]}
	  ]}}}}}
	}`

	page, err := Parse([]byte(response))
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "7777", page.Users[0].UserID)
}

func TestParseSkipsUnavailableUsers(t *testing.T) {
	response := `{
	  "data": {"user": {"result": {"timeline": {"timeline": {"instructions": [
	    {"entries": [
	      {
	        "entryId": "user-8888",
	        "content": {"itemContent": {"user_results": {"result": {
	          "__typename": "UserUnavailable",
	          "rest_id": "8888"
	        }}}}
	      }
	    ]}
	  ]}}}}}
	}`

	page, err := Parse([]byte(response))
	require.NoError(t, err)
	assert.Empty(t, page.Users)
}

func TestParseFieldFallbacks(t *testing.T) {
	response := `{
	  "data": {"user": {"result": {"timeline": {"timeline": {"instructions": [
	    {"entries": [
	      {
	        "entryId": "user-9999",
	        "content": {"itemContent": {"user_results": {"result": {
	          "rest_id": "9999",
	          "avatar": {"image_url": "https://pbs.example/avatar.jpg"},
	          "core": {"screen_name": "fallbacks", "name": "Fall Backs"},
	          "legacy": {
	            "profile_bio": "bio from alternate field",
	            "normal_followers_count": 42,
	            "location": {"location": "Tokyo"}
	          }
	        }}}}
	      }
	    ]}
	  ]}}}}}
	}`

	page, err := Parse([]byte(response))
	require.NoError(t, err)
	require.Len(t, page.Users, 1)

	u := page.Users[0]
	assert.Equal(t, "bio from alternate field", u.Bio)
	assert.Equal(t, 42, u.FollowersCount)
	assert.Equal(t, "Tokyo", u.Location)
	assert.Equal(t, "https://pbs.example/avatar.jpg", u.ProfileImageURL)
	assert.False(t, u.Verified)
}

func TestParseNumericRestID(t *testing.T) {
	response := `{
	  "data": {"user": {"result": {"timeline": {"timeline": {"instructions": [
	    {"entries": [
	      {
	        "entryId": "user-123456",
	        "content": {"itemContent": {"user_results": {"result": {
	          "rest_id": 123456,
	          "legacy": {"screen_name": "numeric"}
	        }}}}
	      }
	    ]}
	  ]}}}}}
	}`

	page, err := Parse([]byte(response))
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "123456", page.Users[0].UserID)
}

func TestParseEmptyResponse(t *testing.T) {
	page, err := Parse([]byte(`{"data": {}}`))
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.Empty(t, page.Cursor)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("not json"))
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		match    bool
		listType models.ListType
		primary  bool
		hash     string
	}{
		{
			name:     "primary followers",
			url:      "https://x.com/i/api/graphql/abc123/Followers?variables=%7B%7D",
			match:    true,
			listType: models.ListFollowers,
			primary:  true,
			hash:     "abc123",
		},
		{
			name:     "primary following",
			url:      "https://x.com/i/api/graphql/def456/Following",
			match:    true,
			listType: models.ListFollowing,
			primary:  true,
			hash:     "def456",
		},
		{
			name:     "blue verified subtype",
			url:      "https://x.com/i/api/graphql/ghi789/BlueVerifiedFollowers",
			match:    true,
			listType: models.ListFollowers,
			primary:  false,
			hash:     "ghi789",
		},
		{
			name:     "following you know subtype",
			url:      "https://x.com/i/api/graphql/jkl012/FollowingYouKnow",
			match:    true,
			listType: models.ListFollowing,
			primary:  false,
			hash:     "jkl012",
		},
		{
			name:  "unrelated graphql query",
			url:   "https://x.com/i/api/graphql/mno345/UserByScreenName",
			match: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := ClassifyURL(tt.url)
			require.Equal(t, tt.match, ok)
			if !tt.match {
				return
			}
			assert.Equal(t, tt.listType, q.ListType)
			assert.Equal(t, tt.primary, q.Primary)
			assert.Equal(t, tt.hash, q.Hash)
		})
	}
}

func TestIsPrimaryCaseInsensitive(t *testing.T) {
	assert.True(t, IsPrimary("followers"))
	assert.True(t, IsPrimary("Following"))
	assert.False(t, IsPrimary("FollowersYouKnow"))
	assert.False(t, IsPrimary(""))
}
