package httpx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// windowCounter counts hits for key in the current fixed window and reports
// how long until that window resets.
type windowCounter interface {
	hit(ctx context.Context, key string) (count int64, resetIn time.Duration, err error)
}

// limitMiddleware enforces limit per client and sets X-RateLimit-* headers.
// A counter error passes the request through when failOpen is set.
func limitMiddleware(c windowCounter, limit int, logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, resetIn, err := c.hit(r.Context(), clientKey(r))
			if err != nil {
				if logger != nil {
					logger.Warn("rate limiter error", "err", err, "fail_open", failOpen)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, http.StatusServiceUnavailable, "rate limiter unavailable")
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(limit)-count, 0), 10))
			if count > int64(limit) {
				secs := int64((resetIn + time.Second - 1) / time.Second)
				h.Set("Retry-After", strconv.FormatInt(max(secs, 1), 10))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter is the single-process fixed-window limiter used when Redis is
// not configured.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*clientWindow
	nextSweep time.Time
}

type clientWindow struct {
	count   int64
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{limit: limit, window: window, now: time.Now, windows: map[string]*clientWindow{}}
}

func (rl *RateLimiter) Middleware() Middleware {
	return limitMiddleware(rl, rl.limit, nil, false)
}

func (rl *RateLimiter) hit(_ context.Context, key string) (int64, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.After(rl.nextSweep) {
		for k, cw := range rl.windows {
			if now.After(cw.resetAt) {
				delete(rl.windows, k)
			}
		}
		rl.nextSweep = now.Add(rl.window)
	}

	cw := rl.windows[key]
	if cw == nil || now.After(cw.resetAt) {
		cw = &clientWindow{resetAt: now.Add(rl.window)}
		rl.windows[key] = cw
	}
	cw.count++
	return cw.count, cw.resetAt.Sub(now), nil
}

// clientKey uses the first X-Forwarded-For hop, else the peer address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
