package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected request to be denied once bucket is empty")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 10*time.Millisecond)

	if !tb.Allow() {
		t.Fatal("Expected first request to be allowed")
	}
	if tb.Allow() {
		t.Fatal("Expected second request to be denied")
	}

	time.Sleep(15 * time.Millisecond)

	if !tb.Allow() {
		t.Error("Expected request to be allowed after refill period")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(2, time.Hour)

	tb.Allow()
	tb.Allow()
	if tb.Allow() {
		t.Fatal("Expected bucket to be empty")
	}

	tb.Reset()

	if !tb.Allow() {
		t.Error("Expected request to be allowed after reset")
	}
}

func TestPerMinute(t *testing.T) {
	tb := PerMinute(30, 5)

	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Fatalf("Expected burst request %d to be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Error("Expected request beyond burst to be denied")
	}

	// Degenerate inputs fall back to a working limiter
	tb = PerMinute(0, 0)
	if !tb.Allow() {
		t.Error("Expected fallback limiter to allow a request")
	}
}

func TestSlidingWindowAllow(t *testing.T) {
	sw := NewSlidingWindow(2, time.Hour)

	if !sw.Allow() || !sw.Allow() {
		t.Fatal("Expected first two requests to be allowed")
	}
	if sw.Allow() {
		t.Error("Expected third request to be denied")
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	sw := NewSlidingWindow(1, 10*time.Millisecond)

	if !sw.Allow() {
		t.Fatal("Expected first request to be allowed")
	}
	if sw.Allow() {
		t.Fatal("Expected second request to be denied inside window")
	}

	time.Sleep(15 * time.Millisecond)

	if !sw.Allow() {
		t.Error("Expected request to be allowed after window expired")
	}
}
