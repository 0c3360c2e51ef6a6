package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// mockUser is a user the timeline server will serve.
type mockUser struct {
	ID        string
	Username  string
	Name      string
	Bio       string
	Followers int
	Verified  bool
}

// mockPage is one page of the simulated followers timeline. Next is the
// bottom cursor handed out with the page; the final page keeps handing
// out its own cursor so a client paging past the end sees repeats, the
// way the real endpoint behaves.
type mockPage struct {
	Users []mockUser
	Next  string
}

// timelineServer simulates the Followers GraphQL endpoint with paged
// responses, optional rate limiting and header capture.
type timelineServer struct {
	server *httptest.Server

	mu    sync.Mutex
	pages map[string]mockPage // keyed by request cursor, "" is the first page

	requestCount  int32
	rateLimitAt   int32 // request number that gets a 429, 0 disables
	rateLimited   int32
	lastAuth      string
	lastCSRF      string
	lastUserAgent string
}

// newTimelineServer serves the given pages in order. pages[i] is reached
// through the cursor pages[i-1].Next.
func newTimelineServer(pages []mockPage) *timelineServer {
	byCursor := make(map[string]mockPage, len(pages))
	cursor := ""
	for _, page := range pages {
		byCursor[cursor] = page
		cursor = page.Next
	}

	ts := &timelineServer{pages: byCursor}
	mux := http.NewServeMux()
	mux.HandleFunc("/i/api/graphql/", ts.handleTimeline)
	ts.server = httptest.NewServer(mux)
	return ts
}

func (ts *timelineServer) URL() string { return ts.server.URL }

func (ts *timelineServer) Close() { ts.server.Close() }

func (ts *timelineServer) Requests() int { return int(atomic.LoadInt32(&ts.requestCount)) }

func (ts *timelineServer) RateLimits() int { return int(atomic.LoadInt32(&ts.rateLimited)) }

// RateLimitRequest makes the n-th request (1-based) fail with a 429.
func (ts *timelineServer) RateLimitRequest(n int) {
	atomic.StoreInt32(&ts.rateLimitAt, int32(n))
}

func (ts *timelineServer) LastHeaders() (auth, csrf, userAgent string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastAuth, ts.lastCSRF, ts.lastUserAgent
}

func (ts *timelineServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt32(&ts.requestCount, 1)

	ts.mu.Lock()
	ts.lastAuth = r.Header.Get("Authorization")
	ts.lastCSRF = r.Header.Get("X-Csrf-Token")
	ts.lastUserAgent = r.Header.Get("User-Agent")
	ts.mu.Unlock()

	if at := atomic.LoadInt32(&ts.rateLimitAt); at > 0 && n == at {
		atomic.AddInt32(&ts.rateLimited, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"code": 88, "message": "Rate limit exceeded"}},
		})
		return
	}

	cursor := requestCursor(r)

	ts.mu.Lock()
	page, ok := ts.pages[cursor]
	ts.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timelineResponse(page))
}

// requestCursor pulls the cursor out of the variables, wherever the
// request put them.
func requestCursor(r *http.Request) string {
	var variables map[string]interface{}

	if raw := r.URL.Query().Get("variables"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &variables)
	} else if r.Body != nil {
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		variables = body.Variables
	}

	cursor, _ := variables["cursor"].(string)
	return cursor
}

// timelineResponse builds the instruction envelope the real endpoint
// returns: one TimelineAddEntries instruction carrying user entries and
// a bottom cursor entry.
func timelineResponse(page mockPage) map[string]interface{} {
	entries := make([]interface{}, 0, len(page.Users)+1)
	for _, user := range page.Users {
		entries = append(entries, map[string]interface{}{
			"entryId": "user-" + user.ID,
			"content": map[string]interface{}{
				"itemContent": map[string]interface{}{
					"user_results": map[string]interface{}{
						"result": map[string]interface{}{
							"rest_id": user.ID,
							"is_blue_verified": user.Verified,
							"legacy": map[string]interface{}{
								"screen_name":     user.Username,
								"name":            user.Name,
								"description":     user.Bio,
								"followers_count": user.Followers,
								"friends_count":   10,
								"created_at":      "Mon Jan 02 15:04:05 +0000 2017",
							},
						},
					},
				},
			},
		})
	}
	if page.Next != "" {
		entries = append(entries, map[string]interface{}{
			"entryId": fmt.Sprintf("cursor-bottom-%s", page.Next),
			"content": map[string]interface{}{
				"cursorType": "Bottom",
				"value":      page.Next,
			},
		})
	}

	return map[string]interface{}{
		"data": map[string]interface{}{
			"user": map[string]interface{}{
				"result": map[string]interface{}{
					"timeline": map[string]interface{}{
						"timeline": map[string]interface{}{
							"instructions": []interface{}{
								map[string]interface{}{
									"type":    "TimelineAddEntries",
									"entries": entries,
								},
							},
						},
					},
				},
			},
		},
	}
}
