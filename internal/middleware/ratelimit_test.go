package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("expected the burst to be allowed")
	}
	if l.Allow("a") {
		t.Error("expected the third request to be limited")
	}
	if !l.Allow("b") {
		t.Error("expected another client to have its own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Error("expected a token after one second")
	}
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(bucketTTL + time.Minute)
	l.Allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["a"]; ok {
		t.Error("expected idle client to be pruned")
	}
	if _, ok := l.buckets["b"]; !ok {
		t.Error("expected active client to be kept")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/tripsplit.v1.ReportService/ListTrips", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(""); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	if rec := send(""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("plain request status = %d, want 429", rec.Code)
	}
	// Connect maps resource_exhausted to 429 as well, with a JSON error body.
	rec := send("application/json")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("connect request status = %d, want 429", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("connect error content type = %q, want application/json", ct)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trust      bool
		remoteAddr string
		xff        string
		want       string
	}{
		{"remote addr", false, "192.168.1.2:5555", "", "192.168.1.2"},
		{"forwarded ignored", false, "10.0.0.1:1", "203.0.113.7, 10.0.0.1", "10.0.0.1"},
		{"forwarded trusted", true, "10.0.0.1:1", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"trusted without header", true, "10.0.0.1:1", "", "10.0.0.1"},
		{"no port", false, "localhost", "", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewRateLimiter(1, 1)
			l.TrustForwardedFor = tt.trust
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := l.clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for _, xff := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	want := []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}
}
