package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"contract-collab-service/internal/http/response"
)

// RateLimiter is a per-client fixed-window limiter. Presence heartbeats make
// this service chattier than a CRUD API, so limits are per scope and keyed
// by remote address (RealIP runs earlier in the chain).
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	hits    map[string][]time.Time
	swept   time.Time
	scope   string
}

func NewRateLimiter(limitPerWindow int, window time.Duration, scope string) *RateLimiter {
	if limitPerWindow <= 0 {
		limitPerWindow = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:  limitPerWindow,
		window: window,
		hits:   make(map[string][]time.Time),
		scope:  scope,
	}
}

func (l *RateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > l.window {
		for k, ts := range l.hits {
			if len(ts) == 0 || now.Sub(ts[len(ts)-1]) > l.window {
				delete(l.hits, k)
			}
		}
		l.swept = now
	}
	cutoff := now.Add(-l.window)
	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false, kept[0].Add(l.window).Sub(now)
	}
	l.hits[key] = append(kept, now)
	return true, 0
}

func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := l.allow(r.RemoteAddr, time.Now())
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", map[string]string{"scope": l.scope})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
