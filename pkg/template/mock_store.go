package template

import (
	"sync"
)

// MockStore implements CredentialStore for testing purposes
type MockStore struct {
	creds map[string]*Credentials
	mu    sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{
		creds: make(map[string]*Credentials),
	}
}

// Store saves credentials to the mock store
func (m *MockStore) Store(creds *Credentials) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if creds == nil || creds.Account == "" {
		return ErrInvalidCredentials
	}

	copied := *creds
	m.creds[creds.Account] = &copied

	return nil
}

// Retrieve gets credentials from the mock store
func (m *MockStore) Retrieve(account string) (*Credentials, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if account == "" {
		return nil, ErrInvalidCredentials
	}

	creds, exists := m.creds[account]
	if !exists {
		return nil, ErrCredentialsNotFound
	}

	copied := *creds
	return &copied, nil
}

// List returns all stored credentials from the mock store
func (m *MockStore) List() ([]*Credentials, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Credentials
	for _, creds := range m.creds {
		copied := *creds
		result = append(result, &copied)
	}

	return result, nil
}

// Delete removes credentials from the mock store
func (m *MockStore) Delete(account string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if account == "" {
		return ErrInvalidCredentials
	}

	if _, exists := m.creds[account]; !exists {
		return ErrCredentialsNotFound
	}

	delete(m.creds, account)
	return nil
}

// Exists checks if credentials exist in the mock store
func (m *MockStore) Exists(account string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.creds[account]
	return exists
}

// Clear removes all credentials from the mock store
func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = make(map[string]*Credentials)
}

// Count returns the number of stored credential sets
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.creds)
}

// NewMockCredentialManager creates a CredentialManager backed by a mock store
func NewMockCredentialManager() (*CredentialManager, *MockStore) {
	mockStore := NewMockStore()
	manager := &CredentialManager{
		stores: []CredentialStore{mockStore},
	}
	return manager, mockStore
}

// NewCredentialManagerWithStores creates a CredentialManager with explicit stores
func NewCredentialManagerWithStores(stores ...CredentialStore) *CredentialManager {
	return &CredentialManager{
		stores: stores,
	}
}
