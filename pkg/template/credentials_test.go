package template

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCredentials() *Credentials {
	return &Credentials{
		Account:   "default",
		Bearer:    "Bearer AAAA-test-token",
		CSRFToken: "csrf-token-value",
		Cookie:    "auth_token=abc",
		UserAgent: "Mozilla/5.0",
	}
}

func TestCredentialManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockCredentialManager()

	tests := []struct {
		name   string
		mutate func(*Credentials)
	}{
		{name: "missing account", mutate: func(c *Credentials) { c.Account = "" }},
		{name: "missing bearer", mutate: func(c *Credentials) { c.Bearer = "" }},
		{name: "missing csrf", mutate: func(c *Credentials) { c.CSRFToken = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := validCredentials()
			tt.mutate(creds)
			assert.Error(t, manager.Store(creds))
		})
	}
}

func TestCredentialManagerStoreAndRetrieve(t *testing.T) {
	manager, store := NewMockCredentialManager()

	creds := validCredentials()
	require.NoError(t, manager.Store(creds))
	assert.False(t, creds.LastModified.IsZero())
	assert.Equal(t, 1, store.Count())

	got, err := manager.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "Bearer AAAA-test-token", got.Bearer)

	_, err = manager.Retrieve("nobody")
	assert.Error(t, err)
}

func TestCredentialManagerFallbackChain(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = errors.New("backend down")
	failing.RetrieveError = ErrCredentialsNotFound
	working := NewMockStore()

	manager := NewCredentialManagerWithStores(failing, working)

	require.NoError(t, manager.Store(validCredentials()))
	assert.Equal(t, 0, failing.Count())
	assert.Equal(t, 1, working.Count())

	got, err := manager.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "csrf-token-value", got.CSRFToken)
}

func TestCredentialManagerListMostRecentWins(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	stale := validCredentials()
	stale.Bearer = "Bearer stale"
	stale.LastModified = time.Now().Add(-time.Hour)
	require.NoError(t, older.Store(stale))

	fresh := validCredentials()
	fresh.Bearer = "Bearer fresh"
	fresh.LastModified = time.Now()
	require.NoError(t, newer.Store(fresh))

	manager := NewCredentialManagerWithStores(older, newer)

	all, err := manager.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Bearer fresh", all[0].Bearer)
}

func TestCredentialManagerDelete(t *testing.T) {
	manager, store := NewMockCredentialManager()
	require.NoError(t, manager.Store(validCredentials()))

	require.NoError(t, manager.Delete("default"))
	assert.Equal(t, 0, store.Count())

	assert.Error(t, manager.Delete("default"))
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	_, err := store.Retrieve("")
	assert.Error(t, err)

	t.Setenv("XTRACTR_BEARER_TOKEN", "Bearer env-token")
	t.Setenv("XTRACTR_CSRF_TOKEN", "env-csrf")
	t.Setenv("XTRACTR_COOKIE", "auth_token=env")

	creds, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "default", creds.Account)
	assert.Equal(t, "Bearer env-token", creds.Bearer)
	assert.Equal(t, "env-csrf", creds.CSRFToken)
	assert.Equal(t, "auth_token=env", creds.Cookie)
	assert.True(t, store.Exists(""))

	assert.ErrorIs(t, store.Store(creds), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("default"), ErrStoreUnavailable)
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("XTRACTR_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(validCredentials()))

	// Reopen with the same passphrase
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	got, err := reopened.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "Bearer AAAA-test-token", got.Bearer)
	assert.Equal(t, "auth_token=abc", got.Cookie)

	all, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("XTRACTR_PASSPHRASE", "correct")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(validCredentials()))

	t.Setenv("XTRACTR_PASSPHRASE", "wrong")
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = reopened.Retrieve("default")
	assert.Error(t, err)
}

func TestEncryptedFileStoreDeleteRemovesFile(t *testing.T) {
	t.Setenv("XTRACTR_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(validCredentials()))

	require.NoError(t, store.Delete("default"))
	assert.NoFileExists(t, path)
	assert.Error(t, store.Delete("default"))
}

func TestSanitize(t *testing.T) {
	creds := validCredentials()
	creds.Bearer = "Bearer AAAA-long-secret-token"

	masked := Sanitize(creds)
	assert.Equal(t, "Bear...oken", masked.Bearer)
	assert.NotEqual(t, creds.Bearer, masked.Bearer)
	assert.Equal(t, "default", masked.Account)

	assert.Nil(t, Sanitize(nil))
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "********", maskString("short"))
	assert.Equal(t, "abcd...wxyz", maskString("abcdefghijklmnopqrstuvwxyz"))
}
