package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	cases := map[string]bool{
		"database is locked":         true,
		"SQLITE_BUSY: try again":     true,
		"sqlite: step: (6)":          true,
		"UNIQUE constraint failed":   false,
		"no such table: records (1)": false,
	}
	for msg, want := range cases {
		if got := isTransient(errors.New(msg)); got != want {
			t.Fatalf("isTransient(%q) = %v, want %v", msg, got, want)
		}
	}
	if isTransient(nil) {
		t.Fatalf("nil is not transient")
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	cfg := retryConfig{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 2 * time.Millisecond}
	calls := 0
	err := withRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return errors.New("constraint failed")
	})
	if calls != 3 || err == nil || err.Error() != "constraint failed" {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	cfg := retryConfig{maxRetries: 2, baseDelay: time.Millisecond, maxDelay: time.Millisecond}
	calls := 0
	err := withRetry(context.Background(), cfg, func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	if calls != 3 || err == nil {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestBackoffCapped(t *testing.T) {
	cfg := retryConfig{maxRetries: 5, baseDelay: 10 * time.Millisecond, maxDelay: 30 * time.Millisecond}
	if d := backoff(cfg, 4); d >= 40*time.Millisecond {
		t.Fatalf("backoff %v exceeds cap plus jitter", d)
	}
}
