package queue

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xtractr/pkg/logger"
	"xtractr/pkg/models"
)

func scoredUsers() []models.ScoredUser {
	return []models.ScoredUser{
		{UserRecord: models.UserRecord{UserID: "1", Username: "first"}, Score: 90},
		{UserRecord: models.UserRecord{UserID: "2", Username: "second"}, Score: 60},
		{UserRecord: models.UserRecord{UserID: "3", Username: "third"}, Score: 30},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "follow_queue.json"), logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func TestSetCreatesFreshQueue(t *testing.T) {
	s := newTestStore(t)

	q, err := s.Set(scoredUsers(), "alice_followers")
	require.NoError(t, err)
	assert.Len(t, q.Users, 3)
	assert.Equal(t, 0, q.CurrentIndex)
	assert.Empty(t, q.Followed)
	assert.Empty(t, q.Skipped)
	assert.Equal(t, "alice_followers", q.Source)
	assert.False(t, q.CreatedAt.IsZero())
}

func TestAdvanceFollowAndSkip(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Set(scoredUsers(), "")
	require.NoError(t, err)

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "first", current.Username)

	q, err := s.Advance(ActionFollow, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, q.Followed)
	assert.Equal(t, 1, q.CurrentIndex)

	q, err = s.Advance(ActionSkip, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, q.Skipped)
	assert.Equal(t, 2, q.CurrentIndex)

	current, ok = s.Current()
	require.True(t, ok)
	assert.Equal(t, "third", current.Username)
}

func TestAdvanceStopsAtEnd(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Set(scoredUsers()[:1], "")
	require.NoError(t, err)

	_, err = s.Advance(ActionFollow, "1")
	require.NoError(t, err)

	_, ok := s.Current()
	assert.False(t, ok)

	// Index never runs past the end
	q, err := s.Advance(ActionSkip, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, q.CurrentIndex)
}

func TestAdvanceUnknownAction(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Set(scoredUsers(), "")
	require.NoError(t, err)

	_, err = s.Advance(Action("unfollow"), "1")
	assert.Error(t, err)
}

func TestAdvanceWithoutQueue(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Advance(ActionFollow, "1")
	assert.Error(t, err)
}

func TestProgress(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Set(scoredUsers(), "")
	require.NoError(t, err)

	_, err = s.Advance(ActionFollow, "1")
	require.NoError(t, err)
	_, err = s.Advance(ActionSkip, "2")
	require.NoError(t, err)

	p := s.Progress()
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 2, p.Position)
	assert.Equal(t, 1, p.Followed)
	assert.Equal(t, 1, p.Skipped)
	assert.Equal(t, 1, p.Remaining)
	assert.False(t, p.Done)

	_, err = s.Advance(ActionFollow, "3")
	require.NoError(t, err)
	assert.True(t, s.Progress().Done)
}

func TestProgressWithoutQueue(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.Progress().Done)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "follow_queue.json")

	s, err := NewStore(path, logger.NewNopLogger())
	require.NoError(t, err)
	_, err = s.Set(scoredUsers(), "alice_followers")
	require.NoError(t, err)
	_, err = s.Advance(ActionFollow, "1")
	require.NoError(t, err)

	reopened, err := NewStore(path, logger.NewNopLogger())
	require.NoError(t, err)

	q := reopened.Get()
	require.NotNil(t, q)
	assert.Equal(t, 1, q.CurrentIndex)
	assert.Equal(t, []string{"1"}, q.Followed)
	assert.Equal(t, "alice_followers", q.Source)
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "follow_queue.json")
	s, err := NewStore(path, logger.NewNopLogger())
	require.NoError(t, err)
	_, err = s.Set(scoredUsers(), "")
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	assert.Nil(t, s.Get())
	assert.NoFileExists(t, path)

	// Clearing an already empty store is fine
	require.NoError(t, s.Clear())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Set(scoredUsers(), "")
	require.NoError(t, err)

	q := s.Get()
	q.Followed = append(q.Followed, "tampered")
	q.Users[0].Username = "tampered"

	fresh := s.Get()
	assert.Empty(t, fresh.Followed)
	assert.Equal(t, "first", fresh.Users[0].Username)
}
