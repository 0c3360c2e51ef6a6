package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xtractr/pkg/config"
	errs "xtractr/pkg/errors"
	"xtractr/pkg/logger"
	"xtractr/pkg/models"
	"xtractr/pkg/paginator"
	"xtractr/pkg/session"
	"xtractr/pkg/xclient"
)

// fakeClient replays a scripted sequence of results. Once the script is
// exhausted the last result repeats.
type fakeClient struct {
	mu      sync.Mutex
	script  []xclient.Result
	idx     int
	cursors []string
	silent  bool
	results chan xclient.Result
}

func newFakeClient(script ...xclient.Result) *fakeClient {
	return &fakeClient{
		script:  script,
		results: make(chan xclient.Result, 16),
	}
}

func (f *fakeClient) RequestPage(cursor, requestID string) {
	f.mu.Lock()
	f.cursors = append(f.cursors, cursor)
	if f.silent || len(f.script) == 0 {
		f.mu.Unlock()
		return
	}
	result := f.script[len(f.script)-1]
	if f.idx < len(f.script) {
		result = f.script[f.idx]
		f.idx++
	}
	f.mu.Unlock()

	result.RequestID = requestID
	f.results <- result
}

func (f *fakeClient) Results() <-chan xclient.Result {
	return f.results
}

func (f *fakeClient) requestedCursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cursors))
	copy(out, f.cursors)
	return out
}

func users(ids ...string) []models.UserRecord {
	out := make([]models.UserRecord, len(ids))
	for i, id := range ids {
		out[i] = models.UserRecord{UserID: id, Username: "user_" + id}
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scrape.FetchDelay = time.Millisecond
	cfg.Scrape.FetchTimeout = time.Hour
	return cfg
}

func newTestScraper(t *testing.T, client PageClient) (*Scraper, *session.Store) {
	t.Helper()
	sessions, err := session.NewStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	return New(client, sessions, testConfig(), logger.NewNopLogger()), sessions
}

func TestRunCapturesUntilEndOfData(t *testing.T) {
	client := newFakeClient(
		xclient.Result{Users: users("1", "2"), Cursor: "c1", Primary: true},
		xclient.Result{Users: users("3"), Cursor: "c2", Primary: true},
		// The remote keeps serving the same page: three no-new-data
		// pages in a row end the run
		xclient.Result{Users: users("3"), Cursor: "c2", Primary: true},
	)
	s, sessions := newTestScraper(t, client)

	report, err := s.Run(context.Background(), "alice", models.ListFollowers, Options{})
	require.NoError(t, err)

	assert.Equal(t, paginator.StopReasonEndOfData, report.StopReason)
	assert.Equal(t, 3, report.TotalUsers)
	assert.Equal(t, 3, report.NewUsers)
	assert.Equal(t, 5, report.Pages)
	assert.Equal(t, "c2", report.Cursor)
	assert.False(t, report.Resumed)

	current := sessions.Current()
	require.NotNil(t, current)
	assert.Len(t, current.Users, 3)
	assert.Equal(t, "c2", current.Cursor)
}

func TestRunFirstRequestHasNoCursor(t *testing.T) {
	client := newFakeClient(
		xclient.Result{Users: users("1"), Cursor: "c1", Primary: true},
	)
	s, _ := newTestScraper(t, client)

	_, err := s.Run(context.Background(), "alice", models.ListFollowers, Options{})
	require.NoError(t, err)

	cursors := client.requestedCursors()
	require.NotEmpty(t, cursors)
	assert.Equal(t, "", cursors[0])
	// Subsequent requests carry the returned cursor
	assert.Equal(t, "c1", cursors[1])
}

func TestRunStopsOnMissingTemplate(t *testing.T) {
	client := newFakeClient(
		xclient.Result{Err: &errs.Error{
			Type:    errs.ErrorTypeTemplate,
			Message: "no request template captured",
		}},
	)
	s, _ := newTestScraper(t, client)

	report, err := s.Run(context.Background(), "alice", models.ListFollowers, Options{})
	require.NoError(t, err)

	assert.Equal(t, paginator.StopReasonNoTemplate, report.StopReason)
	assert.Equal(t, 0, report.TotalUsers)
	assert.Equal(t, 0, report.Pages)
}

func TestRunResumesFromSavedCursor(t *testing.T) {
	client := newFakeClient(
		xclient.Result{Users: users("2"), Cursor: "c-next", Primary: true},
	)
	s, sessions := newTestScraper(t, client)

	_, err := sessions.Ensure("alice", models.ListFollowers)
	require.NoError(t, err)
	_, _, err = sessions.MergeUsers(users("1"))
	require.NoError(t, err)
	require.NoError(t, sessions.SetCursor("c-saved"))

	report, err := s.Run(context.Background(), "alice", models.ListFollowers, Options{Resume: true})
	require.NoError(t, err)

	assert.True(t, report.Resumed)
	assert.Equal(t, 2, report.TotalUsers)
	assert.Equal(t, 1, report.NewUsers)

	cursors := client.requestedCursors()
	require.NotEmpty(t, cursors)
	assert.Equal(t, "c-saved", cursors[0])
}

func TestRunForceRestartClearsSession(t *testing.T) {
	client := newFakeClient(
		xclient.Result{Users: users("9"), Cursor: "c1", Primary: true},
	)
	s, sessions := newTestScraper(t, client)

	_, err := sessions.Ensure("alice", models.ListFollowers)
	require.NoError(t, err)
	_, _, err = sessions.MergeUsers(users("1", "2"))
	require.NoError(t, err)
	require.NoError(t, sessions.SetCursor("c-saved"))

	report, err := s.Run(context.Background(), "alice", models.ListFollowers, Options{
		Resume:       true,
		ForceRestart: true,
	})
	require.NoError(t, err)

	assert.False(t, report.Resumed)
	assert.Equal(t, 1, report.TotalUsers)

	cursors := client.requestedCursors()
	require.NotEmpty(t, cursors)
	assert.Equal(t, "", cursors[0])
}

func TestRunSubtypeCursorNotPersisted(t *testing.T) {
	client := newFakeClient(
		xclient.Result{Users: users("1"), Cursor: "subtype-cursor", Primary: false},
	)
	s, sessions := newTestScraper(t, client)

	_, err := s.Run(context.Background(), "alice", models.ListFollowers, Options{})
	require.NoError(t, err)

	current := sessions.Current()
	require.NotNil(t, current)
	assert.Empty(t, current.Cursor)

	// Every request went out without a cursor
	for _, cursor := range client.requestedCursors() {
		assert.Equal(t, "", cursor)
	}
}

func TestRunContextCancellation(t *testing.T) {
	client := newFakeClient()
	client.silent = true
	s, _ := newTestScraper(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := s.Run(ctx, "alice", models.ListFollowers, Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, paginator.StopReasonManual, report.StopReason)
}

func TestRunReportsProgress(t *testing.T) {
	client := newFakeClient(
		xclient.Result{Users: users("1"), Cursor: "c1", Primary: true},
	)
	s, _ := newTestScraper(t, client)

	var mu sync.Mutex
	var captured []Progress
	_, err := s.Run(context.Background(), "alice", models.ListFollowers, Options{
		OnProgress: func(p Progress) {
			mu.Lock()
			captured = append(captured, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, captured)
	first := captured[0]
	assert.Equal(t, "alice", first.Username)
	assert.True(t, first.State.Running)
	last := captured[len(captured)-1]
	assert.Equal(t, paginator.StopReasonEndOfData, last.State.StopReason)
}
