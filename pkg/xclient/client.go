// Package xclient replays captured request templates against the X
// GraphQL API. Each page request substitutes a cursor into the captured
// variables, issues the request with the captured headers and classifies
// the outcome: parsed page, rate limit (HTTP 429 or GraphQL error code
// 88) or a typed error.
package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"xtractr/pkg/errors"
	"xtractr/pkg/logger"
	"xtractr/pkg/models"
	"xtractr/pkg/ratelimit"
	"xtractr/pkg/template"
	"xtractr/pkg/timeline"
)

const defaultPageCount = 20

// TemplateSource yields the replay template for a list type. Returns
// nil when none was captured.
type TemplateSource interface {
	Get(listType models.ListType) (*template.Template, error)
}

// Result is the outcome of one page fetch, keyed by the request ID it
// was issued under.
type Result struct {
	RequestID   string
	Users       []models.UserRecord
	Cursor      string
	Primary     bool
	RateLimited bool
	RetryAfter  int
	Err         error
}

// Client fetches follower pages by replaying a captured template.
type Client struct {
	httpClient *http.Client
	templates  TemplateSource
	limiter    ratelimit.Limiter
	listType   models.ListType
	log        logger.Logger

	results chan Result
}

// NewClient creates a page fetch client for one list type. A nil
// limiter disables proactive throttling.
func NewClient(listType models.ListType, templates TemplateSource, limiter ratelimit.Limiter, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		templates: templates,
		limiter:   limiter,
		listType:  listType,
		log:       log,
		results:   make(chan Result, 16),
	}
}

// Results returns the channel fetch outcomes are delivered on.
func (c *Client) Results() <-chan Result {
	return c.results
}

// RequestPage fetches the page for the given cursor asynchronously and
// delivers the outcome on the Results channel under requestID.
func (c *Client) RequestPage(cursor, requestID string) {
	go func() {
		result := c.FetchPage(context.Background(), cursor)
		result.RequestID = requestID
		c.results <- result
	}()
}

// FetchPage fetches and parses one page synchronously.
func (c *Client) FetchPage(ctx context.Context, cursor string) Result {
	tpl, err := c.templates.Get(c.listType)
	if err != nil {
		return Result{Err: err}
	}
	if tpl == nil {
		return Result{Err: &errors.Error{
			Type:    errors.ErrorTypeTemplate,
			Message: "no request template captured",
		}}
	}

	req, err := c.buildRequest(ctx, tpl, cursor)
	if err != nil {
		return Result{Err: err}
	}

	if c.limiter != nil {
		c.limiter.Wait()
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorWithFields("page fetch failed", map[string]interface{}{
			"list_type": string(c.listType),
			"error":     err.Error(),
		})
		return Result{Err: &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}}
	}
	defer resp.Body.Close()

	c.log.DebugWithFields("page fetch completed", map[string]interface{}{
		"list_type": string(c.listType),
		"status":    resp.StatusCode,
		"duration":  time.Since(start),
	})

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				retryAfter = parsed
			}
		}
		logger.LogRateLimit(string(c.listType), retryAfter)
		return Result{RateLimited: true, RetryAfter: retryAfter}
	}

	if resp.StatusCode != http.StatusOK {
		return Result{Err: errorForStatus(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Err: &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}}
	}

	var root map[string]interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return Result{Err: &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse response: %v", err),
			Code:    resp.StatusCode,
		}}
	}

	if result, blocked := classifyGraphQLErrors(root); blocked {
		return result
	}

	page := timeline.ParseResponse(root)
	return Result{
		Users:   page.Users,
		Cursor:  page.Cursor,
		Primary: tpl.Primary(),
	}
}

// buildRequest assembles the replay request. GET requests carry the
// variables in query parameters, POST requests in a JSON body.
func (c *Client) buildRequest(ctx context.Context, tpl *template.Template, cursor string) (*http.Request, error) {
	variables := make(map[string]interface{}, len(tpl.Variables)+1)
	for k, v := range tpl.Variables {
		variables[k] = v
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	if _, ok := variables["count"]; !ok {
		variables["count"] = defaultPageCount
	}

	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeTemplate,
			Message: fmt.Sprintf("failed to encode variables: %v", err),
		}
	}

	var req *http.Request
	if strings.EqualFold(tpl.Method, "POST") {
		body := map[string]interface{}{
			"variables": json.RawMessage(variablesJSON),
		}
		if tpl.Features != "" {
			body["features"] = rawOrString(tpl.Features)
		}
		if tpl.FieldToggles != "" {
			body["fieldToggles"] = rawOrString(tpl.FieldToggles)
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeTemplate,
				Message: fmt.Sprintf("failed to encode request body: %v", err),
			}
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, tpl.BaseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeUnknown,
				Message: fmt.Sprintf("failed to create request: %v", err),
			}
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		params := url.Values{}
		params.Set("variables", string(variablesJSON))
		if tpl.Features != "" {
			params.Set("features", tpl.Features)
		}
		if tpl.FieldToggles != "" {
			params.Set("fieldToggles", tpl.FieldToggles)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, tpl.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeUnknown,
				Message: fmt.Sprintf("failed to create request: %v", err),
			}
		}
	}

	for key, value := range tpl.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// rawOrString treats the captured string as JSON when it parses, as a
// plain string otherwise.
func rawOrString(s string) interface{} {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return s
}

// classifyGraphQLErrors inspects the top-level errors array. Code 88
// and "rate limit" messages count as rate limiting, anything else is a
// blocking error.
func classifyGraphQLErrors(root map[string]interface{}) (Result, bool) {
	rawErrors, _ := root["errors"].([]interface{})
	if len(rawErrors) == 0 {
		return Result{}, false
	}

	firstMessage := ""
	for _, raw := range rawErrors {
		e, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		message, _ := e["message"].(string)
		if firstMessage == "" {
			firstMessage = message
		}
		code, hasCode := e["code"].(float64)
		if (hasCode && int(code) == 88) || strings.Contains(strings.ToLower(message), "rate limit") {
			return Result{RateLimited: true}, true
		}
	}

	return Result{Err: &errors.Error{
		Type:    errors.ErrorTypeServerError,
		Message: firstMessage,
	}}, true
}

func errorForStatus(statusCode int) *errors.Error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: "authentication required",
			Code:    statusCode,
		}
	case http.StatusNotFound:
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    statusCode,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error",
			Code:    statusCode,
		}
	default:
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", statusCode),
			Code:    statusCode,
		}
	}
}
