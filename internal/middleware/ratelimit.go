package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

// bucketTTL is how long an idle client keeps its bucket.
const bucketTTL = 5 * time.Minute

// RateLimiter is a token-bucket limiter per client IP.
type RateLimiter struct {
	// TrustForwardedFor keys clients on the first X-Forwarded-For address instead of the peer
	// address. Enable it only behind a proxy that sets the header.
	TrustForwardedFor bool

	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter allows perSecond requests per client, with bursts of up to burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether client may make a request now.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastPrune = now
	}

	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[client] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Middleware rejects requests over the limit. Connect clients get a resource_exhausted error.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	errWriter := connect.NewErrorWriter()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Allow(l.clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}
		if errWriter.IsSupported(r) {
			_ = errWriter.Write(w, r, connect.NewError(connect.CodeResourceExhausted, errors.New("rate limit exceeded")))
			return
		}
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}

func (l *RateLimiter) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); l.TrustForwardedFor && xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
