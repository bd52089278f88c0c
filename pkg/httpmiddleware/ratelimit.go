package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	// Max is how many requests a single key may make per Window.
	Max int
	// Window is the sliding window length.
	Window time.Duration
	// KeyFunc derives the limiter key from a request. Nil means the client
	// IP, taking X-Forwarded-For and X-Real-IP into account.
	KeyFunc func(*http.Request) string
}

// window holds one key's counters for the current and previous window. The
// previous window's count is weighted by its remaining overlap, which smooths
// the limit across window boundaries.
type window struct {
	start     time.Time
	count     float64
	prevStart time.Time
	prevCount float64
}

type limiter struct {
	cfg  RateLimitConfig
	mu   sync.Mutex
	keys map[string]*window
}

// take records one request for key and reports whether it fits the limit,
// along with the remaining allowance and when the window resets.
func (l *limiter) take(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.keys[key]
	if w == nil {
		w = &window{start: now}
		l.keys[key] = w
	}

	if now.Sub(w.start) >= l.cfg.Window {
		w.prevStart, w.prevCount = w.start, w.count
		w.start = now.Truncate(l.cfg.Window)
		w.count = 0
		if now.Sub(w.prevStart) >= 2*l.cfg.Window {
			w.prevCount = 0
		}
	}

	overlap := 1 - now.Sub(w.start).Seconds()/l.cfg.Window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	used := w.prevCount*overlap + w.count
	resetAt = w.start.Add(l.cfg.Window)

	if used >= float64(l.cfg.Max) {
		return 0, resetAt, false
	}

	w.count++
	remaining = int(float64(l.cfg.Max) - used - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

func (l *limiter) evictStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.keys {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.keys, key)
		}
	}
}

// RateLimit enforces a sliding window limit per key. Rejected requests get a
// 429 with a JSON body; every response carries X-RateLimit-Limit, -Remaining,
// and -Reset headers.
//
// Stale keys are never evicted by this variant; prefer RateLimitWithCleanup
// on long-running servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a background sweep that drops keys
// idle for two windows. The sweep stops when ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evictStale(now)
			}
		}
	}()
	return l.middleware()
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientAddr
	}
	return &limiter{cfg: cfg, keys: make(map[string]*window)}
}

func (l *limiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := l.take(l.cfg.KeyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := math.Ceil(time.Until(resetAt).Seconds())
				if retryAfter < 0 {
					retryAfter = 0
				}
				h.Set("Retry-After", strconv.Itoa(int(retryAfter)))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"success":false,"message":"rate limit exceeded"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the default limiter key: the first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote address.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
