package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(4, 0.5, time.Minute)

	for i := 0; i < 2; i++ {
		b.Report(ctx, true)
	}
	for i := 0; i < 2; i++ {
		b.Report(ctx, false)
	}

	if b.Allow(ctx) {
		t.Fatal("expected breaker open after hitting failure ratio")
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 0.5, 10*time.Millisecond)

	b.Report(ctx, false)
	if b.Allow(ctx) {
		t.Fatal("expected breaker open")
	}

	time.Sleep(15 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("expected half-open probe to be allowed")
	}
	b.Report(ctx, true)
	if !b.Allow(ctx) {
		t.Fatal("expected breaker closed after successful probe")
	}
}

func TestBreakerHalfOpenReopensOnFailure(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 0.5, 10*time.Millisecond)

	b.Report(ctx, false)
	time.Sleep(15 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("expected half-open probe")
	}
	b.Report(ctx, false)
	if b.Allow(ctx) {
		t.Fatal("expected breaker re-opened after failed probe")
	}
}

func TestHTTPClientRetriesOn5xx(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl := HTTPClient{
		Client:      srv.Client(),
		BaseBackoff: time.Millisecond,
		MaxAttempts: 3,
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := cl.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestHTTPClientOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	breaker := NewBreaker(1, 0.5, time.Minute)
	breaker.Report(context.Background(), false)

	cl := HTTPClient{
		Client:      srv.Client(),
		Breaker:     breaker,
		MaxAttempts: 1,
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if _, err := cl.Do(context.Background(), req); err != ErrOpenCircuit {
		t.Fatalf("expected ErrOpenCircuit, got %v", err)
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond
	if got := Backoff(base, 1, 0); got != base {
		t.Fatalf("attempt 1: expected %v, got %v", base, got)
	}
	if got := Backoff(base, 3, 0); got != 4*base {
		t.Fatalf("attempt 3: expected %v, got %v", 4*base, got)
	}
}
