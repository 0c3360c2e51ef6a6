// Package template manages captured GraphQL request templates. A
// template records everything needed to replay a Followers or Following
// request with a new cursor: base URL, query hash, variables, feature
// flags and headers. Auth-bearing headers are split out into secure
// credential storage rather than written to the template file.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"xtractr/pkg/logger"
	"xtractr/pkg/models"
	"xtractr/pkg/timeline"
)

// Template is a captured request blueprint for one list type.
type Template struct {
	ListType    models.ListType        `json:"listType"`
	QueryName   string                 `json:"queryName"`
	GraphQLHash string                 `json:"graphqlHash"`
	BaseURL     string                 `json:"baseUrl"`
	Method      string                 `json:"method"`
	Variables   map[string]interface{} `json:"variables"`

	// Features and FieldToggles stay as the raw JSON strings they were
	// captured with; GET replays pass them through untouched.
	Features     string `json:"features,omitempty"`
	FieldToggles string `json:"fieldToggles,omitempty"`

	Headers    map[string]string `json:"headers,omitempty"`
	CapturedAt time.Time         `json:"capturedAt"`
}

// Primary reports whether the template came from a primary list query
// rather than a subtype such as BlueVerifiedFollowers.
func (t *Template) Primary() bool {
	return timeline.IsPrimary(t.QueryName)
}

// Validate checks that the template can drive a replay.
func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("template is nil")
	}
	if t.ListType != models.ListFollowers && t.ListType != models.ListFollowing {
		return fmt.Errorf("invalid list type: %q", t.ListType)
	}
	if t.BaseURL == "" {
		return fmt.Errorf("template has no base URL")
	}
	if len(t.Variables) == 0 {
		return fmt.Errorf("template has no variables")
	}
	switch strings.ToUpper(t.Method) {
	case "GET", "POST":
	default:
		return fmt.Errorf("unsupported method: %q", t.Method)
	}
	return nil
}

// sensitiveHeaders never land in the template file; they live in the
// credential store and are merged back on retrieval.
var sensitiveHeaders = []string{"authorization", "cookie", "x-csrf-token"}

// Manager persists one template per list type and splits auth headers
// into a credential store. Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	path    string
	account string
	creds   CredentialStore
	log     logger.Logger

	templates map[models.ListType]*Template
}

// NewManager opens the template file at path. A nil creds store keeps
// all headers in the file (used in tests). An empty account selects
// "default".
func NewManager(path string, creds CredentialStore, log logger.Logger) (*Manager, error) {
	if path == "" {
		dir, err := getConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "templates.json")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	m := &Manager{
		path:      path,
		account:   "default",
		creds:     creds,
		log:       log,
		templates: make(map[models.ListType]*Template),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetAccount selects the credential-store account the auth headers are
// stored under.
func (m *Manager) SetAccount(account string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account != "" {
		m.account = account
	}
}

// Set records a captured template. A subtype query never overwrites an
// existing template for the same list; primary queries always win.
func (m *Manager) Set(t *Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.templates[t.ListType]; existing != nil && !t.Primary() {
		m.log.WithFields(map[string]interface{}{
			"list_type": string(t.ListType),
			"query":     t.QueryName,
		}).Debug("Keeping existing template, skipping subtype query")
		return nil
	}

	stored := *t
	if t.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now()
	}

	if m.creds != nil {
		kept, secret := splitSensitiveHeaders(stored.Headers)
		stored.Headers = kept
		if err := m.storeSecretsLocked(secret); err != nil {
			return err
		}
	}

	m.templates[t.ListType] = &stored
	m.log.WithFields(map[string]interface{}{
		"list_type": string(t.ListType),
		"query":     t.QueryName,
		"method":    stored.Method,
	}).Info("Request template captured")
	return m.saveLocked()
}

// Get returns the template for a list type with any stored auth headers
// merged back in. Returns nil when no template was captured.
func (m *Manager) Get(listType models.ListType) (*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.templates[listType]
	if t == nil {
		return nil, nil
	}

	out := *t
	out.Headers = make(map[string]string, len(t.Headers)+len(sensitiveHeaders))
	for k, v := range t.Headers {
		out.Headers[k] = v
	}

	if m.creds != nil {
		creds, err := m.creds.Retrieve(m.account)
		if err == nil && creds != nil {
			mergeCredentialHeaders(out.Headers, creds)
		}
	}
	return &out, nil
}

// Delete removes the template for a list type.
func (m *Manager) Delete(listType models.ListType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[listType]; !ok {
		return fmt.Errorf("no template for list type: %s", listType)
	}
	delete(m.templates, listType)
	return m.saveLocked()
}

// List returns all stored templates.
func (m *Manager) List() []*Template {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Template, 0, len(m.templates))
	for _, t := range m.templates {
		copied := *t
		out = append(out, &copied)
	}
	return out
}

// ImportFile loads a template exported as JSON and records it.
func (m *Manager) ImportFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template file: %w", err)
	}
	if t.Method == "" {
		t.Method = "GET"
	}
	if t.QueryName == "" {
		// Infer from the base URL when the export omitted it
		if q, ok := timeline.ClassifyURL(t.BaseURL); ok {
			t.QueryName = q.Name
			if t.GraphQLHash == "" {
				t.GraphQLHash = q.Hash
			}
			if t.ListType == "" {
				t.ListType = q.ListType
			}
		}
	}
	if err := m.Set(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *Manager) storeSecretsLocked(secret map[string]string) error {
	if len(secret) == 0 {
		return nil
	}
	creds, err := m.creds.Retrieve(m.account)
	if err != nil || creds == nil {
		creds = &Credentials{Account: m.account}
	}
	if v := secret["authorization"]; v != "" {
		creds.Bearer = v
	}
	if v := secret["x-csrf-token"]; v != "" {
		creds.CSRFToken = v
	}
	if v := secret["cookie"]; v != "" {
		creds.Cookie = v
	}
	return m.creds.Store(creds)
}

func splitSensitiveHeaders(headers map[string]string) (kept, secret map[string]string) {
	kept = make(map[string]string, len(headers))
	secret = make(map[string]string)
	for k, v := range headers {
		lower := strings.ToLower(k)
		sensitive := false
		for _, s := range sensitiveHeaders {
			if lower == s {
				sensitive = true
				break
			}
		}
		if sensitive {
			secret[lower] = v
		} else {
			kept[k] = v
		}
	}
	return kept, secret
}

func mergeCredentialHeaders(headers map[string]string, creds *Credentials) {
	if creds.Bearer != "" {
		headers["authorization"] = creds.Bearer
	}
	if creds.CSRFToken != "" {
		headers["x-csrf-token"] = creds.CSRFToken
	}
	if creds.Cookie != "" {
		headers["cookie"] = creds.Cookie
	}
	if creds.UserAgent != "" {
		if _, ok := headers["user-agent"]; !ok {
			headers["user-agent"] = creds.UserAgent
		}
	}
}

// ---- persistence ----

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read templates: %w", err)
	}
	var stored map[models.ListType]*Template
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	if stored != nil {
		m.templates = stored
	}
	return nil
}

func (m *Manager) saveLocked() error {
	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create template directory: %w", err)
		}
	}

	content, err := json.MarshalIndent(m.templates, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal templates: %w", err)
	}

	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write templates: %w", err)
	}
	return os.Rename(tempPath, m.path)
}
