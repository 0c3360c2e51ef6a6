package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "xtractr/pkg/errors"
	"xtractr/pkg/logger"
)

func TestExponentialBackoffNextDelay(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped
		{6, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := eb.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRateLimitBackoffSequence(t *testing.T) {
	eb := RateLimitBackoff()

	want := []time.Duration{
		30 * time.Second,
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		300 * time.Second,
		300 * time.Second,
	}

	for i, expected := range want {
		if got := eb.NextDelay(i + 1); got != expected {
			t.Errorf("NextDelay(%d) = %v, want %v", i+1, got, expected)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 5 * time.Second}

	if got := cb.NextDelay(1); got != 5*time.Second {
		t.Errorf("NextDelay(1) = %v, want 5s", got)
	}
	if got := cb.NextDelay(10); got != 5*time.Second {
		t.Errorf("NextDelay(10) = %v, want 5s", got)
	}
	if got := cb.NextDelay(0); got != 0 {
		t.Errorf("NextDelay(0) = %v, want 0", got)
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "connection reset"}
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	if err := Do(op, cfg); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "unauthorized", Code: 401}
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	err := Do(op, cfg)
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestDoExhaustsMaxAttempts(t *testing.T) {
	attempts := 0
	sentinel := &errs.Error{Type: errs.ErrorTypeServerError, Message: "boom", Code: 500}
	op := func() error {
		attempts++
		return sentinel
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	err := Do(op, cfg)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected wrapped sentinel error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, &errs.Error{Type: errs.ErrorTypeNetwork, Message: "timeout"}
		}
		return 42, nil
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	result, err := DoWithResult(op, cfg)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result != 42 {
		t.Errorf("Expected result 42, got %d", result)
	}
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(nil) {
		t.Error("nil error should not be retried")
	}
	if !DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeRateLimit}) {
		t.Error("rate limit errors should be retried")
	}
	if DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeTemplate}) {
		t.Error("template errors should not be retried")
	}
	if DefaultRetryIf(context.Canceled) {
		t.Error("context cancellation should not be retried")
	}
}
