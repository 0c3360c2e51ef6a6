// Package queue maintains a follow queue: a filtered user list worked
// through one profile at a time, recording which were followed and
// which were skipped.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"xtractr/pkg/logger"
	"xtractr/pkg/models"
)

// Action is a queue advance decision.
type Action string

const (
	ActionFollow Action = "follow"
	ActionSkip   Action = "skip"
)

// Queue is the persisted follow-queue state.
type Queue struct {
	Users        []models.ScoredUser `json:"users"`
	CurrentIndex int                 `json:"currentIndex"`
	Followed     []string            `json:"followed"`
	Skipped      []string            `json:"skipped"`
	CreatedAt    time.Time           `json:"createdAt"`
	Source       string              `json:"source"`
}

// Progress is a snapshot of how far the queue has been worked through.
type Progress struct {
	Total     int  `json:"total"`
	Position  int  `json:"position"`
	Followed  int  `json:"followed"`
	Skipped   int  `json:"skipped"`
	Remaining int  `json:"remaining"`
	Done      bool `json:"done"`
}

// Store persists the follow queue as a JSON file. Safe for concurrent
// use.
type Store struct {
	mu    sync.Mutex
	path  string
	log   logger.Logger
	queue *Queue
}

// NewStore opens the queue file at path, loading any existing queue.
func NewStore(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Store{path: path, log: log}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set replaces the queue with a fresh one over the given users.
func (s *Store) Set(users []models.ScoredUser, source string) (*Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = &Queue{
		Users:        users,
		CurrentIndex: 0,
		Followed:     []string{},
		Skipped:      []string{},
		CreatedAt:    time.Now(),
		Source:       source,
	}
	if err := s.saveLocked(); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"total":  len(users),
		"source": source,
	}).Info("Follow queue created")
	return s.snapshotLocked(), nil
}

// Get returns a copy of the current queue, nil when none exists.
func (s *Store) Get() *Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Current returns the user at the queue position, false when the queue
// is empty or exhausted.
func (s *Store) Current() (models.ScoredUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil || s.queue.CurrentIndex >= len(s.queue.Users) {
		return models.ScoredUser{}, false
	}
	return s.queue.Users[s.queue.CurrentIndex], true
}

// Advance records the decision for userID and moves to the next user.
func (s *Store) Advance(action Action, userID string) (*Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil {
		return nil, fmt.Errorf("no follow queue")
	}

	switch action {
	case ActionFollow:
		s.queue.Followed = append(s.queue.Followed, userID)
	case ActionSkip:
		s.queue.Skipped = append(s.queue.Skipped, userID)
	default:
		return nil, fmt.Errorf("unknown queue action: %q", action)
	}

	if s.queue.CurrentIndex < len(s.queue.Users) {
		s.queue.CurrentIndex++
	}

	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return s.snapshotLocked(), nil
}

// Progress reports the queue position and decision counts.
func (s *Store) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil {
		return Progress{Done: true}
	}

	total := len(s.queue.Users)
	return Progress{
		Total:     total,
		Position:  s.queue.CurrentIndex,
		Followed:  len(s.queue.Followed),
		Skipped:   len(s.queue.Skipped),
		Remaining: total - s.queue.CurrentIndex,
		Done:      s.queue.CurrentIndex >= total,
	}
}

// Clear drops the queue and removes the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove queue file: %w", err)
	}
	return nil
}

func (s *Store) snapshotLocked() *Queue {
	if s.queue == nil {
		return nil
	}
	copied := *s.queue
	copied.Users = append([]models.ScoredUser(nil), s.queue.Users...)
	copied.Followed = append([]string(nil), s.queue.Followed...)
	copied.Skipped = append([]string(nil), s.queue.Skipped...)
	return &copied
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read queue file: %w", err)
	}
	var q Queue
	if err := json.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("failed to parse queue file: %w", err)
	}
	s.queue = &q
	return nil
}

func (s *Store) saveLocked() error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create queue directory: %w", err)
		}
	}

	content, err := json.MarshalIndent(s.queue, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	return os.Rename(tempPath, s.path)
}
