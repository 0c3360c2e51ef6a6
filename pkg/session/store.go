package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"xtractr/pkg/logger"
	"xtractr/pkg/models"
)

const defaultHistoryLimit = 50

// Store owns the active session, the completed-session history and the
// saved lists, persisting each as an atomically written JSON file under
// the data directory. All methods are safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	dir string
	log logger.Logger

	historyLimit int

	current    *Session
	history    []HistoryEntry
	savedLists map[string]SavedList
}

// NewStore opens (or initializes) a session store. An empty dataDir
// selects the platform data directory.
func NewStore(dataDir string, log logger.Logger) (*Store, error) {
	if dataDir == "" {
		var err error
		dataDir, err = getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Store{
		dir:          dataDir,
		log:          log,
		historyLimit: defaultHistoryLimit,
		savedLists:   make(map[string]SavedList),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the resolved data directory.
func (s *Store) Dir() string { return s.dir }

// SetHistoryLimit overrides the archived-session cap.
func (s *Store) SetHistoryLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 {
		s.historyLimit = limit
	}
}

// Ensure returns the active session for the given username and list
// type, creating one if needed. A different active session is archived
// first.
func (s *Store) Ensure(username string, listType models.ListType) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Username == username && s.current.ListType == listType {
		return s.current, nil
	}

	if s.current != nil {
		if _, err := s.completeLocked(); err != nil {
			return nil, err
		}
	}

	s.current = newSession(username, listType)
	s.log.WithFields(map[string]interface{}{
		"session_id": s.current.ID,
		"username":   username,
		"list_type":  string(listType),
	}).Info("Session started")
	if err := s.saveSessionLocked(); err != nil {
		return nil, err
	}
	return s.current, nil
}

// Current returns the active session, nil if none.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// MergeUsers deduplicates the given users into the active session and
// persists it when anything new arrived. Returns the session total and
// the number actually added.
func (s *Store) MergeUsers(users []models.UserRecord) (total, added int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return 0, 0, fmt.Errorf("no active session")
	}

	total, added = s.current.Merge(users)
	if added > 0 {
		if err := s.saveSessionLocked(); err != nil {
			return total, added, err
		}
	}
	logger.LogSessionMerge(s.current.ID, added, total)
	return total, added, nil
}

// SetCursor records the resume cursor on the active session.
func (s *Store) SetCursor(cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fmt.Errorf("no active session")
	}
	s.current.Cursor = cursor
	return s.saveSessionLocked()
}

// Complete archives the active session: a history entry is prepended
// (bounded by the history limit) and the full user list is saved under
// "{username}_{listType}_{id}". Returns nil when no session is active.
func (s *Store) Complete() (*HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked()
}

func (s *Store) completeLocked() (*HistoryEntry, error) {
	if s.current == nil {
		return nil, nil
	}

	meta := HistoryEntry{
		ID:          s.current.ID,
		Username:    s.current.Username,
		ListType:    s.current.ListType,
		Count:       len(s.current.Users),
		StartedAt:   s.current.StartedAt,
		CompletedAt: time.Now(),
	}

	s.history = append([]HistoryEntry{meta}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}

	key := fmt.Sprintf("%s_%s_%s", meta.Username, meta.ListType, meta.ID)
	s.savedLists[key] = SavedList{
		Users:   s.current.Users,
		Meta:    meta,
		SavedAt: time.Now(),
	}

	s.current = nil

	if err := s.saveAllLocked(); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"session_id": meta.ID,
		"count":      meta.Count,
		"list_key":   key,
	}).Info("Session completed")
	return &meta, nil
}

// Clear drops the active session without archiving it.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return s.removeFile(s.sessionPath())
}

// History returns the archived session summaries, newest first.
func (s *Store) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// SavedListKeys returns the keys of all saved lists.
func (s *Store) SavedListKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.savedLists))
	for k := range s.savedLists {
		keys = append(keys, k)
	}
	return keys
}

// SavedList returns a saved list by key.
func (s *Store) SavedList(key string) (SavedList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.savedLists[key]
	return list, ok
}

// DeleteSavedList removes a saved list.
func (s *Store) DeleteSavedList(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.savedLists, key)
	return s.saveJSON(s.listsPath(), s.savedLists)
}

// CompareSaved cross-references two saved lists by key.
func (s *Store) CompareSaved(followersKey, followingKey string) (Comparison, error) {
	s.mu.Lock()
	followers, ok1 := s.savedLists[followersKey]
	following, ok2 := s.savedLists[followingKey]
	s.mu.Unlock()

	if !ok1 {
		return Comparison{}, fmt.Errorf("saved list not found: %s", followersKey)
	}
	if !ok2 {
		return Comparison{}, fmt.Errorf("saved list not found: %s", followingKey)
	}
	return Compare(followers.Users, following.Users), nil
}

// ---- persistence ----

func (s *Store) sessionPath() string { return filepath.Join(s.dir, "session.json") }
func (s *Store) historyPath() string { return filepath.Join(s.dir, "history.json") }
func (s *Store) listsPath() string   { return filepath.Join(s.dir, "saved_lists.json") }

func (s *Store) load() error {
	var current Session
	ok, err := s.loadJSON(s.sessionPath(), &current)
	if err != nil {
		return err
	}
	if ok {
		current.rebuildIndex()
		s.current = &current
	}

	if _, err := s.loadJSON(s.historyPath(), &s.history); err != nil {
		return err
	}
	if _, err := s.loadJSON(s.listsPath(), &s.savedLists); err != nil {
		return err
	}
	if s.savedLists == nil {
		s.savedLists = make(map[string]SavedList)
	}
	return nil
}

func (s *Store) saveSessionLocked() error {
	return s.saveJSON(s.sessionPath(), s.current)
}

func (s *Store) saveAllLocked() error {
	if s.current != nil {
		if err := s.saveSessionLocked(); err != nil {
			return err
		}
	} else if err := s.removeFile(s.sessionPath()); err != nil {
		return err
	}
	if err := s.saveJSON(s.historyPath(), s.history); err != nil {
		return err
	}
	return s.saveJSON(s.listsPath(), s.savedLists)
}

func (s *Store) loadJSON(path string, v interface{}) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

// saveJSON writes v atomically: temp file, sync, rename.
func (s *Store) saveJSON(path string, v interface{}) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (s *Store) removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		// Use XDG_DATA_HOME if set, otherwise ~/.local/share
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "xtractr")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "xtractr")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "xtractr")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "xtractr")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return dataDir, nil
}
