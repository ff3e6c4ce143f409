package limitgate

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newMiddlewareHandler(t *testing.T, limit int64, window time.Duration) http.Handler {
	t.Helper()

	table, err := NewPolicyTable("free", Policy{Tier: "free", Limit: limit, Window: window})
	if err != nil {
		t.Fatalf("NewPolicyTable() failed: %v", err)
	}
	limiter, err := New(table, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	return limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	}))
}

func TestMiddleware_AllowedRequestCarriesHeaders(t *testing.T) {
	handler := newMiddlewareHandler(t, 5, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	req.Header.Set("X-API-Key", "key-alice")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}

	reset, err := strconv.ParseInt(rec.Header().Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		t.Fatalf("X-RateLimit-Reset is not an integer: %v", err)
	}
	if until := time.Until(time.Unix(reset, 0)); until < 0 || until > time.Minute {
		t.Errorf("reset %v from now, want within the window", until)
	}
	if rec.Header().Get("Retry-After") != "" {
		t.Error("Retry-After set on an allowed response")
	}
}

func TestMiddleware_DeniedRequestGets429(t *testing.T) {
	handler := newMiddlewareHandler(t, 2, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	req.Header.Set("X-API-Key", "key-alice")

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing on a denied response")
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if body := rec.Body.String(); !strings.Contains(body, "rate limit exceeded") {
		t.Errorf("body = %q, want a rate limit error message", body)
	}
}

func TestMiddleware_ClientsAreIsolatedByIdentity(t *testing.T) {
	handler := newMiddlewareHandler(t, 1, time.Minute)

	for _, key := range []string{"key-alice", "key-bobby"} {
		req := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("first request for %q status = %d, want 200", key, rec.Code)
		}
	}
}

func TestMiddleware_AnonymousRequestsKeyOnOrigin(t *testing.T) {
	handler := newMiddlewareHandler(t, 1, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	req.RemoteAddr = "203.0.113.9:54312"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first anonymous request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second anonymous request status = %d, want 429", rec.Code)
	}

	// A different origin gets its own window.
	other := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	other.RemoteAddr = "203.0.113.10:54312"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other origin status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_FailsOpenOnStoreOutage(t *testing.T) {
	table, err := NewPolicyTable("free", Policy{Tier: "free", Limit: 1, Window: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	distributed := newFlakyStore()
	distributed.failing.Store(true)
	limiter, err := New(table, distributed)
	if err != nil {
		t.Fatal(err)
	}

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	req.Header.Set("X-API-Key", "key-alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status during outage = %d, want 200 (local fallback)", rec.Code)
	}
	if limiter.Health().State() != StateDegraded {
		t.Error("limiter did not fail over after the outage")
	}
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		decision Decision
		want     time.Duration
	}{
		{
			name:     "allowed decisions never ask the caller to wait",
			decision: Decision{Allowed: true, ResetAt: now.Add(30 * time.Second)},
			want:     0,
		},
		{
			name:     "partial seconds round up",
			decision: Decision{ResetAt: now.Add(2500 * time.Millisecond)},
			want:     3 * time.Second,
		},
		{
			name:     "whole seconds stay exact",
			decision: Decision{ResetAt: now.Add(10 * time.Second)},
			want:     10 * time.Second,
		},
		{
			name:     "already-lapsed window still waits a beat",
			decision: Decision{ResetAt: now.Add(-time.Second)},
			want:     time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.decision.RetryAfter(now); got != tt.want {
				t.Errorf("RetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractFromHeaders(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  Request
	}{
		{
			name: "api key header",
			setup: func(r *http.Request) {
				r.Header.Set("X-API-Key", "sk-live-0123456789abcdef")
			},
			want: Request{CredentialID: "sk-live-0123456789abcdef", OriginAddr: "192.0.2.1"},
		},
		{
			name: "bearer token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer tok-abc123")
			},
			want: Request{CredentialID: "tok-abc123", OriginAddr: "192.0.2.1"},
		},
		{
			name: "forwarded-for takes the first hop",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
			},
			want: Request{OriginAddr: "203.0.113.9"},
		},
		{
			name:  "remote addr fallback strips the port",
			setup: func(r *http.Request) {},
			want:  Request{OriginAddr: "192.0.2.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			got := ExtractFromHeaders(req)
			if got.CredentialID != tt.want.CredentialID {
				t.Errorf("CredentialID = %q, want %q", got.CredentialID, tt.want.CredentialID)
			}
			if got.OriginAddr != tt.want.OriginAddr {
				t.Errorf("OriginAddr = %q, want %q", got.OriginAddr, tt.want.OriginAddr)
			}
		})
	}
}
