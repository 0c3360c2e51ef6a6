package template

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment
// variables, read-only and primarily for CI and scripted runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(account string) (*Credentials, error) {
	bearer := os.Getenv("XTRACTR_BEARER_TOKEN")
	csrfToken := os.Getenv("XTRACTR_CSRF_TOKEN")
	cookie := os.Getenv("XTRACTR_COOKIE")
	userAgent := os.Getenv("XTRACTR_USER_AGENT")

	if bearer == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables carry no account name
	if account == "" {
		account = "default"
	}

	return &Credentials{
		Account:      account,
		Bearer:       bearer,
		CSRFToken:    csrfToken,
		Cookie:       cookie,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential set if environment variables are set
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(account string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(account string) bool {
	return os.Getenv("XTRACTR_BEARER_TOKEN") != "" && os.Getenv("XTRACTR_CSRF_TOKEN") != ""
}
