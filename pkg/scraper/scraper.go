// Package scraper orchestrates a capture run: it drives the paginator
// against a page fetch client, merges every page into the session store
// and feeds the liveness signals (total count, cursor, no-new-data)
// back into the paginator until it stops.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xtractr/pkg/config"
	"xtractr/pkg/logger"
	"xtractr/pkg/models"
	"xtractr/pkg/paginator"
	"xtractr/pkg/retry"
	"xtractr/pkg/session"
)

// Options configures a single capture run.
type Options struct {
	// Resume continues from the session's persisted cursor. ForceRestart
	// clears the active session first and starts from the beginning.
	Resume       bool
	ForceRestart bool

	// OnProgress is invoked after every merged page and every paginator
	// state change.
	OnProgress func(Progress)
}

// Progress is a point-in-time view of a running capture.
type Progress struct {
	Username string
	ListType models.ListType
	Captured int
	Pages    int
	State    paginator.State
}

// Report summarizes a finished capture run.
type Report struct {
	SessionID  string
	Username   string
	ListType   models.ListType
	TotalUsers int
	NewUsers   int
	Pages      int
	Cursor     string
	StopReason paginator.StopReason
	Resumed    bool
	Duration   time.Duration
}

// Scraper wires a page client, a paginator and the session store into a
// capture run.
type Scraper struct {
	client   PageClient
	sessions *session.Store
	cfg      *config.Config
	log      logger.Logger
}

// New creates a scraper around the given client and session store.
func New(client PageClient, sessions *session.Store, cfg *config.Config, log logger.Logger) *Scraper {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		client:   client,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

// Run captures the list for username until the paginator stops, and
// returns a report with the stop reason. Cancelling the context stops
// the run cleanly; the session keeps everything captured so far.
func (s *Scraper) Run(ctx context.Context, username string, listType models.ListType, opts Options) (*Report, error) {
	start := time.Now()

	if opts.ForceRestart {
		if err := s.sessions.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear session: %w", err)
		}
	}

	sess, err := s.sessions.Ensure(username, listType)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	resumed := false
	pag := paginator.New(s.client, paginator.Config{
		FetchDelay:   s.cfg.Scrape.FetchDelay,
		FetchTimeout: s.cfg.Scrape.FetchTimeout,
		MaxEmpty:     s.cfg.Scrape.MaxEmpty,
		MaxRetries:   s.cfg.Scrape.MaxRetries,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:  s.cfg.Scrape.BaseBackoff,
			MaxDelay:   s.cfg.Scrape.MaxBackoff,
			Multiplier: 2.0,
		},
	}, s.log)

	if opts.Resume && sess.Cursor != "" {
		pag.SetCursor(sess.Cursor, true)
		resumed = true
		s.log.WithFields(map[string]interface{}{
			"session_id": sess.ID,
			"username":   username,
		}).Info("Resuming from saved cursor")
	}

	startCount := len(sess.Users)

	var (
		done     = make(chan struct{})
		doneOnce sync.Once
		mu       sync.Mutex
		pages    int
		newUsers int
	)

	report := func() *Report {
		mu.Lock()
		defer mu.Unlock()
		current := s.sessions.Current()
		total := startCount
		cursor := ""
		sessionID := sess.ID
		if current != nil {
			total = len(current.Users)
			cursor = current.Cursor
			sessionID = current.ID
		}
		return &Report{
			SessionID:  sessionID,
			Username:   username,
			ListType:   listType,
			TotalUsers: total,
			NewUsers:   newUsers,
			Pages:      pages,
			Cursor:     cursor,
			StopReason: pag.State().StopReason,
			Resumed:    resumed,
			Duration:   time.Since(start),
		}
	}

	progress := func(state paginator.State) {
		if opts.OnProgress == nil {
			return
		}
		mu.Lock()
		p := Progress{
			Username: username,
			ListType: listType,
			Captured: state.LastKnownCount,
			Pages:    pages,
			State:    state,
		}
		mu.Unlock()
		opts.OnProgress(p)
	}

	pag.Start(startCount, paginator.Options{
		OnStateChange: func(state paginator.State) {
			progress(state)
			if !state.Running && !state.Paused && state.StopReason != paginator.StopReasonNone {
				doneOnce.Do(func() { close(done) })
			}
		},
	})

	for {
		select {
		case <-ctx.Done():
			pag.Stop()
			<-done
			return report(), ctx.Err()

		case <-done:
			return report(), nil

		case result := <-s.client.Results():
			if result.Err == nil && !result.RateLimited {
				total, added, mergeErr := s.sessions.MergeUsers(result.Users)
				if mergeErr != nil {
					s.log.WithError(mergeErr).Error("Failed to persist page")
				} else {
					mu.Lock()
					pages++
					newUsers += added
					mu.Unlock()

					pag.UpdateCount(total)
					if result.Cursor != "" && result.Primary {
						if err := s.sessions.SetCursor(result.Cursor); err != nil {
							s.log.WithError(err).Warn("Failed to persist cursor")
						}
					}
					pag.SetCursor(result.Cursor, result.Primary)
					logger.LogPageFetched(username, string(listType), len(result.Users), total, result.Cursor)

					if added == 0 {
						pag.OnNoNewData()
					}
				}
			}

			pag.OnFetchResult(result.RequestID, paginator.FetchResult{
				Err:         result.Err,
				RateLimited: result.RateLimited,
				RetryAfter:  result.RetryAfter,
			})
		}
	}
}
