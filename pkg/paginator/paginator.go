// Package paginator drives cursor-based page fetching against a remote
// list endpoint. It issues at most one outstanding request at a time,
// pauses under rate limiting with exponential backoff, and detects
// end-of-data through a count-based liveness signal rather than
// trusting the remote cursor alone.
package paginator

import (
	"fmt"
	"sync"
	"time"

	xerrors "xtractr/pkg/errors"
	"xtractr/pkg/logger"
	"xtractr/pkg/retry"
)

// PageFetcher is the injected capability that fetches one page. The
// implementation must be asynchronous: RequestPage returns immediately
// and the result is delivered later through OnFetchResult (and
// OnRateLimit for rate-limit signals) keyed by requestID.
type PageFetcher interface {
	RequestPage(cursor string, requestID string)
}

// FetchResult is the outcome of a single page request, as reported back
// through OnFetchResult.
type FetchResult struct {
	// Err is set for transport or parse failures. A template-typed
	// error is blocking and stops the paginator with StopReasonNoTemplate.
	Err error
	// RateLimited marks a rate-limit response. RetryAfter carries the
	// server-supplied cooldown in seconds, 0 when absent.
	RateLimited bool
	RetryAfter  int
}

// StopReason identifies why the paginator went idle. Callers use it to
// distinguish a user stop from exhaustion or stagnation.
type StopReason string

const (
	StopReasonNone       StopReason = ""
	StopReasonManual     StopReason = "manual"
	StopReasonEndOfData  StopReason = "end_of_data"
	StopReasonMaxRetries StopReason = "max_retries"
	StopReasonNoTemplate StopReason = "no_template"
)

// State is a point-in-time snapshot of the paginator.
type State struct {
	Running          bool
	Paused           bool
	HasCursor        bool
	LastKnownCount   int
	ConsecutiveEmpty int
	MaxEmpty         int
	RetryCount       int
	Backoff          time.Duration
	StopReason       StopReason
}

// Config holds the pagination timing and retry parameters.
type Config struct {
	// FetchDelay is the pause between consecutive page requests.
	FetchDelay time.Duration
	// FetchTimeout bounds how long a request may stay outstanding
	// before it is counted as an empty response.
	FetchTimeout time.Duration
	// MaxEmpty is the consecutive no-new-data ceiling.
	MaxEmpty int
	// MaxRetries is the rate-limit retry ceiling.
	MaxRetries int
	// Backoff computes the rate-limit backoff when the server does not
	// supply a retry-after value.
	Backoff retry.BackoffStrategy
}

// DefaultConfig returns the production pagination parameters.
func DefaultConfig() Config {
	return Config{
		FetchDelay:   2 * time.Second,
		FetchTimeout: 15 * time.Second,
		MaxEmpty:     3,
		MaxRetries:   6,
		Backoff:      retry.RateLimitBackoff(),
	}
}

// Options configures a single Start call.
type Options struct {
	// OnStateChange is invoked after every state transition with a
	// snapshot. It is called outside the paginator's lock and may call
	// back into the paginator.
	OnStateChange func(State)
}

// Paginator is the pagination state machine. All methods are safe for
// concurrent use.
type Paginator struct {
	mu sync.Mutex

	cfg     Config
	fetcher PageFetcher
	log     logger.Logger

	running          bool
	paused           bool
	cursor           string
	lastKnownCount   int
	consecutiveEmpty int
	retryCount       int
	backoff          time.Duration
	stopReason       StopReason

	requestCounter int
	pending        map[string]bool

	fetchTimer *time.Timer
	pauseTimer *time.Timer

	// generation invalidates timer callbacks armed before a stop or a
	// timer cancellation, so a stale callback can never resume a
	// stopped or superseded paginator.
	generation uint64

	onStateChange func(State)
}

// New creates a paginator around the given fetch capability.
func New(fetcher PageFetcher, cfg Config, log logger.Logger) *Paginator {
	if cfg.FetchDelay <= 0 {
		cfg.FetchDelay = 2 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.MaxEmpty <= 0 {
		cfg.MaxEmpty = 3
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 6
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.RateLimitBackoff()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Paginator{
		cfg:     cfg,
		fetcher: fetcher,
		log:     log,
		pending: make(map[string]bool),
	}
}

// Start begins pagination from the given session count. It is a no-op
// if the paginator is already running. The stored cursor is preserved
// across stop/start so a prior session can resume where it left off.
func (p *Paginator) Start(currentCount int, opts Options) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	if opts.OnStateChange != nil {
		p.onStateChange = opts.OnStateChange
	}
	p.running = true
	p.paused = false
	p.consecutiveEmpty = 0
	p.retryCount = 0
	p.backoff = 0
	p.stopReason = StopReasonNone
	if currentCount > 0 {
		p.lastKnownCount = currentCount
	} else {
		p.lastKnownCount = 0
	}
	p.log.WithFields(map[string]interface{}{
		"count":      p.lastKnownCount,
		"has_cursor": p.cursor != "",
	}).Info("Paginator started")
	notify := p.snapshotLocked()
	fetch := p.fetchNextLocked()
	p.mu.Unlock()

	p.emit(notify)
	fetch()
}

// Stop halts pagination. It is a no-op when already idle. Any pending
// timers are cancelled; an in-flight fetch is not aborted but its
// result will be discarded.
func (p *Paginator) Stop() {
	p.mu.Lock()
	if !p.running && !p.paused {
		p.mu.Unlock()
		return
	}
	p.stopLocked(StopReasonManual)
	notify := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(notify)
}

// UpdateCount feeds the session's total user count back into the
// paginator. Growth beyond the last known count is the liveness signal
// that resets the consecutive-empty counter.
func (p *Paginator) UpdateCount(newCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if newCount > p.lastKnownCount {
		p.consecutiveEmpty = 0
		p.lastKnownCount = newCount
	}
}

// SetCursor stores the pagination token for the next fetch. Cursors
// from subtype query variants are not interchangeable with the primary
// endpoint's and are discarded.
func (p *Paginator) SetCursor(cursor string, primary bool) {
	if cursor == "" || !primary {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = cursor
}

// Cursor returns the stored pagination token, empty if none.
func (p *Paginator) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// OnRateLimit handles a rate-limit signal. The server-supplied
// retry-after (seconds) wins over the computed exponential backoff.
// The call is a no-op unless the paginator is running and not already
// paused. Exceeding the retry ceiling stops pagination permanently.
func (p *Paginator) OnRateLimit(retryAfterSeconds int) {
	p.mu.Lock()
	if !p.running || p.paused {
		p.mu.Unlock()
		return
	}
	p.rateLimitLocked(retryAfterSeconds)
	notify := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(notify)
}

// OnNoNewData records a page that produced no unseen users. Reaching
// the ceiling stops pagination with StopReasonEndOfData.
func (p *Paginator) OnNoNewData() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.consecutiveEmpty++
	p.log.WithFields(map[string]interface{}{
		"consecutive_empty": p.consecutiveEmpty,
		"max_empty":         p.cfg.MaxEmpty,
	}).Debug("No new data from page")
	var notify *State
	if p.consecutiveEmpty >= p.cfg.MaxEmpty {
		p.log.Info("Stopping: consecutive pages with no new users")
		p.stopLocked(StopReasonEndOfData)
		notify = p.snapshotLocked()
	}
	p.mu.Unlock()

	p.emit(notify)
}

// OnFetchResult delivers the outcome of a page request. Results whose
// requestID does not match an outstanding request are discarded. On
// success the next fetch is scheduled after the inter-request delay; a
// rate-limited result is delegated to the rate-limit handler; errors
// count toward the empty-response ceiling, except template errors,
// which are blocking and stop pagination immediately.
func (p *Paginator) OnFetchResult(requestID string, result FetchResult) {
	p.mu.Lock()
	if !p.pending[requestID] {
		p.mu.Unlock()
		return
	}
	delete(p.pending, requestID)
	p.clearFetchTimerLocked()

	var notify *State

	if result.Err != nil {
		if apiErr, ok := result.Err.(*xerrors.Error); ok && apiErr.Type == xerrors.ErrorTypeTemplate {
			p.log.WithError(result.Err).Error("No request template available, stopping")
			p.stopLocked(StopReasonNoTemplate)
			notify = p.snapshotLocked()
			p.mu.Unlock()
			p.emit(notify)
			return
		}
		p.log.WithError(result.Err).Warn("Fetch failed")
		p.consecutiveEmpty++
		if p.consecutiveEmpty >= p.cfg.MaxEmpty {
			p.stopLocked(StopReasonEndOfData)
			notify = p.snapshotLocked()
			p.mu.Unlock()
			p.emit(notify)
			return
		}
	}

	if result.RateLimited {
		if p.running && !p.paused {
			p.rateLimitLocked(result.RetryAfter)
			notify = p.snapshotLocked()
		}
		p.mu.Unlock()
		p.emit(notify)
		return
	}

	// Schedule the next fetch after the inter-request delay to avoid
	// triggering rate limiting through burst traffic.
	if p.running && !p.paused {
		gen := p.generation
		p.fetchTimer = time.AfterFunc(p.cfg.FetchDelay, func() {
			p.delayedFetch(gen)
		})
	}
	p.mu.Unlock()
}

// State returns a snapshot of the paginator.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.snapshotLocked()
}

// ---- internals, all called with p.mu held unless noted ----

func (p *Paginator) stopLocked(reason StopReason) {
	p.clearFetchTimerLocked()
	if p.pauseTimer != nil {
		p.pauseTimer.Stop()
		p.pauseTimer = nil
	}
	p.generation++
	p.pending = make(map[string]bool)
	p.running = false
	p.paused = false
	p.stopReason = reason
	p.log.WithField("reason", string(reason)).Info("Paginator stopped")
}

func (p *Paginator) clearFetchTimerLocked() {
	if p.fetchTimer != nil {
		p.fetchTimer.Stop()
		p.fetchTimer = nil
	}
}

func (p *Paginator) rateLimitLocked(retryAfterSeconds int) {
	p.retryCount++
	if p.retryCount > p.cfg.MaxRetries {
		p.log.WithField("retries", p.retryCount-1).Warn("Max retries reached, stopping")
		p.stopLocked(StopReasonMaxRetries)
		return
	}

	p.paused = true
	p.clearFetchTimerLocked()

	if retryAfterSeconds > 0 {
		p.backoff = time.Duration(retryAfterSeconds) * time.Second
	} else {
		p.backoff = p.cfg.Backoff.NextDelay(p.retryCount)
	}

	p.log.WithFields(map[string]interface{}{
		"backoff_ms":  p.backoff.Milliseconds(),
		"retry":       p.retryCount,
		"max_retries": p.cfg.MaxRetries,
	}).Warn("Rate limited, backing off")

	gen := p.generation
	p.pauseTimer = time.AfterFunc(p.backoff, func() {
		p.resumeFromPause(gen)
	})
}

// fetchNextLocked prepares the next page request and returns a closure
// that performs it. The closure must be invoked after releasing the
// lock so a synchronous fetcher cannot deadlock against us.
func (p *Paginator) fetchNextLocked() func() {
	if !p.running || p.paused {
		return func() {}
	}

	p.clearFetchTimerLocked()
	p.requestCounter++
	requestID := fmt.Sprintf("req_%d_%d", p.requestCounter, time.Now().UnixMilli())
	p.pending[requestID] = true

	cursor := p.cursor
	gen := p.generation

	p.log.WithFields(map[string]interface{}{
		"request_id": requestID,
		"has_cursor": cursor != "",
	}).Debug("Requesting page")

	// Safety timeout: an unanswered request counts as an empty page.
	p.fetchTimer = time.AfterFunc(p.cfg.FetchTimeout, func() {
		p.fetchTimedOut(gen, requestID)
	})

	fetcher := p.fetcher
	return func() {
		fetcher.RequestPage(cursor, requestID)
	}
}

// delayedFetch runs when the inter-request delay elapses (no lock held).
func (p *Paginator) delayedFetch(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || !p.running || p.paused {
		p.mu.Unlock()
		return
	}
	fetch := p.fetchNextLocked()
	p.mu.Unlock()
	fetch()
}

// resumeFromPause runs when the backoff timer elapses (no lock held).
func (p *Paginator) resumeFromPause(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || !p.running || !p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = false
	p.pauseTimer = nil
	notify := p.snapshotLocked()
	fetch := p.fetchNextLocked()
	p.mu.Unlock()

	p.emit(notify)
	fetch()
}

// fetchTimedOut runs when a request stays unanswered (no lock held).
func (p *Paginator) fetchTimedOut(gen uint64, requestID string) {
	p.mu.Lock()
	if gen != p.generation || !p.pending[requestID] {
		p.mu.Unlock()
		return
	}
	delete(p.pending, requestID)
	p.fetchTimer = nil
	p.log.WithField("request_id", requestID).Warn("Fetch timed out")

	p.consecutiveEmpty++
	if p.consecutiveEmpty >= p.cfg.MaxEmpty {
		p.stopLocked(StopReasonEndOfData)
		notify := p.snapshotLocked()
		p.mu.Unlock()
		p.emit(notify)
		return
	}
	fetch := p.fetchNextLocked()
	p.mu.Unlock()
	fetch()
}

func (p *Paginator) snapshotLocked() *State {
	return &State{
		Running:          p.running,
		Paused:           p.paused,
		HasCursor:        p.cursor != "",
		LastKnownCount:   p.lastKnownCount,
		ConsecutiveEmpty: p.consecutiveEmpty,
		MaxEmpty:         p.cfg.MaxEmpty,
		RetryCount:       p.retryCount,
		Backoff:          p.backoff,
		StopReason:       p.stopReason,
	}
}

// emit invokes the state-change callback outside the lock.
func (p *Paginator) emit(s *State) {
	if s == nil {
		return
	}
	p.mu.Lock()
	cb := p.onStateChange
	p.mu.Unlock()
	if cb != nil {
		cb(*s)
	}
}
