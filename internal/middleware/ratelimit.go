package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type bucket struct {
	count int
	until time.Time
}

// RateLimiter is a fixed-window counter keyed by session id, or by client IP
// for anonymous requests.
type RateLimiter struct {
	limit   int
	per     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
	sweepAt time.Time
}

func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, per: per, now: time.Now, buckets: map[string]*bucket{}}
}

// Allow counts one hit for key and reports how long to wait when over limit.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.After(l.sweepAt) {
		for k, b := range l.buckets {
			if now.After(b.until) {
				delete(l.buckets, k)
			}
		}
		l.sweepAt = now.Add(l.per)
	}
	b, ok := l.buckets[key]
	if !ok || now.After(b.until) {
		b = &bucket{until: now.Add(l.per)}
		l.buckets[key] = b
	}
	if b.count >= l.limit {
		return false, b.until.Sub(now)
	}
	b.count++
	return true, 0
}

// Middleware applies the limiter to each request.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := SessionIDFromContext(r.Context())
		if key == "" {
			key = "ip:" + clientIPForRateLimit(r)
		}
		ok, wait := l.Allow(key)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)+1))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIPForRateLimit keys anonymous requests on the connection peer. Forwarded
// headers only count after RealIP has vetted them against the trusted proxies.
func clientIPForRateLimit(r *http.Request) string {
	if addr, ok := remoteAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}
