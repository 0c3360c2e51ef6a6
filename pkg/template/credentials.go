package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Credentials holds the auth-bearing request headers for one account.
type Credentials struct {
	Account      string    `json:"account"`
	Bearer       string    `json:"bearer"`
	CSRFToken    string    `json:"csrf_token"`
	Cookie       string    `json:"cookie,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for an account
	Store(creds *Credentials) error

	// Retrieve gets credentials for a specific account
	Retrieve(account string) (*Credentials, error)

	// List returns all stored credentials
	List() ([]*Credentials, error)

	// Delete removes credentials for a specific account
	Delete(account string) error

	// Exists checks if credentials exist for an account
	Exists(account string) bool
}

// CredentialManager handles credential storage with fallback mechanisms
type CredentialManager struct {
	stores []CredentialStore
}

// NewCredentialManager creates a credential manager with the available
// storage backends: system keyring first, encrypted file as fallback,
// environment variables as last resort.
func NewCredentialManager() (*CredentialManager, error) {
	var stores []CredentialStore

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &CredentialManager{stores: stores}, nil
}

// Store saves credentials using the first available store
func (m *CredentialManager) Store(creds *Credentials) error {
	if creds.Account == "" {
		return errors.New("account is required")
	}
	if creds.Bearer == "" {
		return errors.New("bearer token is required")
	}
	if creds.CSRFToken == "" {
		return errors.New("CSRF token is required")
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *CredentialManager) Retrieve(account string) (*Credentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Retrieve(account); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("credentials not found for account: %s", account)
}

// RetrieveDefault gets credentials for the default account or the first available
func (m *CredentialManager) RetrieveDefault() (*Credentials, error) {
	// Environment variables take precedence when set
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if creds, err := envStore.Retrieve(""); err == nil && creds != nil {
			return creds, nil
		}
	}

	all, err := m.List()
	if err == nil && len(all) > 0 {
		return all[0], nil
	}

	return nil, errors.New("no credentials found")
}

// List returns all stored credentials from all stores
func (m *CredentialManager) List() ([]*Credentials, error) {
	byAccount := make(map[string]*Credentials)

	for _, store := range m.stores {
		all, err := store.List()
		if err != nil {
			continue
		}
		for _, creds := range all {
			// Keep the most recently modified version
			if existing, ok := byAccount[creds.Account]; !ok || creds.LastModified.After(existing.LastModified) {
				byAccount[creds.Account] = creds
			}
		}
	}

	var result []*Credentials
	for _, creds := range byAccount {
		result = append(result, creds)
	}
	return result, nil
}

// Delete removes credentials from all stores
func (m *CredentialManager) Delete(account string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(account); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for account: %s", account)
	}
	return nil
}

// Exists checks if any store has credentials for the account
func (m *CredentialManager) Exists(account string) bool {
	for _, store := range m.stores {
		if store.Exists(account) {
			return true
		}
	}
	return false
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "xtractr")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "xtractr")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "xtractr")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "xtractr")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy of the credentials with sensitive data masked
func Sanitize(creds *Credentials) *Credentials {
	if creds == nil {
		return nil
	}
	return &Credentials{
		Account:      creds.Account,
		Bearer:       maskString(creds.Bearer),
		CSRFToken:    maskString(creds.CSRFToken),
		Cookie:       maskString(creds.Cookie),
		UserAgent:    creds.UserAgent,
		LastModified: creds.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
