package template

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xtractr/pkg/logger"
	"xtractr/pkg/models"
)

func followersTemplate() *Template {
	return &Template{
		ListType:    models.ListFollowers,
		QueryName:   "Followers",
		GraphQLHash: "abc123",
		BaseURL:     "https://x.com/i/api/graphql/abc123/Followers",
		Method:      "GET",
		Variables: map[string]interface{}{
			"userId": "42",
			"count":  float64(20),
		},
		Features: `{"flag":true}`,
		Headers: map[string]string{
			"authorization": "Bearer secret-token-value",
			"x-csrf-token":  "csrf-value-12345",
			"cookie":        "auth_token=deadbeef",
			"content-type":  "application/json",
		},
	}
}

func newTestManager(t *testing.T, creds CredentialStore) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.json")
	m, err := NewManager(path, creds, logger.NewNopLogger())
	require.NoError(t, err)
	return m
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Template) {}},
		{name: "missing base URL", mutate: func(tpl *Template) { tpl.BaseURL = "" }, wantErr: true},
		{name: "missing variables", mutate: func(tpl *Template) { tpl.Variables = nil }, wantErr: true},
		{name: "bad list type", mutate: func(tpl *Template) { tpl.ListType = "likes" }, wantErr: true},
		{name: "bad method", mutate: func(tpl *Template) { tpl.Method = "PATCH" }, wantErr: true},
		{name: "post ok", mutate: func(tpl *Template) { tpl.Method = "POST" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := followersTemplate()
			tt.mutate(tpl)
			err := tpl.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetAndGetRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)

	require.NoError(t, m.Set(followersTemplate()))

	got, err := m.Get(models.ListFollowers)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Followers", got.QueryName)
	assert.Equal(t, "42", got.Variables["userId"])
	assert.False(t, got.CapturedAt.IsZero())
	// Without a credential store all headers stay on the template
	assert.Equal(t, "Bearer secret-token-value", got.Headers["authorization"])
}

func TestGetMissingTemplate(t *testing.T) {
	m := newTestManager(t, nil)

	got, err := m.Get(models.ListFollowing)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubtypeNeverOverwritesPrimary(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, m.Set(followersTemplate()))

	subtype := followersTemplate()
	subtype.QueryName = "BlueVerifiedFollowers"
	subtype.GraphQLHash = "subtype-hash"
	require.NoError(t, m.Set(subtype))

	got, err := m.Get(models.ListFollowers)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.GraphQLHash)
}

func TestSubtypeStoredWhenNothingCaptured(t *testing.T) {
	m := newTestManager(t, nil)

	subtype := followersTemplate()
	subtype.QueryName = "FollowersYouKnow"
	require.NoError(t, m.Set(subtype))

	got, err := m.Get(models.ListFollowers)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "FollowersYouKnow", got.QueryName)
}

func TestPrimaryOverwritesSubtype(t *testing.T) {
	m := newTestManager(t, nil)

	subtype := followersTemplate()
	subtype.QueryName = "FollowersYouKnow"
	subtype.GraphQLHash = "subtype-hash"
	require.NoError(t, m.Set(subtype))
	require.NoError(t, m.Set(followersTemplate()))

	got, err := m.Get(models.ListFollowers)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.GraphQLHash)
}

func TestSensitiveHeadersSplitToCredentialStore(t *testing.T) {
	store := NewMockStore()
	m := newTestManager(t, store)

	require.NoError(t, m.Set(followersTemplate()))

	// The file on disk never sees the auth headers
	data, err := os.ReadFile(m.path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token-value")
	assert.NotContains(t, string(data), "auth_token=deadbeef")
	assert.Contains(t, string(data), "content-type")

	creds, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token-value", creds.Bearer)
	assert.Equal(t, "csrf-value-12345", creds.CSRFToken)
	assert.Equal(t, "auth_token=deadbeef", creds.Cookie)

	// Get merges them back
	got, err := m.Get(models.ListFollowers)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token-value", got.Headers["authorization"])
	assert.Equal(t, "csrf-value-12345", got.Headers["x-csrf-token"])
	assert.Equal(t, "auth_token=deadbeef", got.Headers["cookie"])
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")

	m, err := NewManager(path, nil, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, m.Set(followersTemplate()))

	reopened, err := NewManager(path, nil, logger.NewNopLogger())
	require.NoError(t, err)

	got, err := reopened.Get(models.ListFollowers)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc123", got.GraphQLHash)
}

func TestDelete(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, m.Set(followersTemplate()))

	require.NoError(t, m.Delete(models.ListFollowers))

	got, err := m.Get(models.ListFollowers)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, m.Delete(models.ListFollowers))
}

func TestList(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, m.Set(followersTemplate()))

	following := followersTemplate()
	following.ListType = models.ListFollowing
	following.QueryName = "Following"
	require.NoError(t, m.Set(following))

	assert.Len(t, m.List(), 2)
}

func TestImportFile(t *testing.T) {
	m := newTestManager(t, nil)

	exported := followersTemplate()
	exported.QueryName = ""
	exported.GraphQLHash = ""
	exported.ListType = ""
	exported.Method = ""
	data, err := json.Marshal(exported)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "exported.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	imported, err := m.ImportFile(path)
	require.NoError(t, err)

	// Query name, hash and list type inferred from the base URL
	assert.Equal(t, "Followers", imported.QueryName)
	assert.Equal(t, "abc123", imported.GraphQLHash)
	assert.Equal(t, models.ListFollowers, imported.ListType)
	assert.Equal(t, "GET", imported.Method)

	got, err := m.Get(models.ListFollowers)
	require.NoError(t, err)
	require.NotNil(t, got)
}
