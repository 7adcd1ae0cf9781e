// internal/middleware/ratelimit.go
//
// Token-bucket limiter keyed by client IP.
//
// The acting user is logged but never part of the key: Identify fills in
// the default user for anonymous callers, and X-User-Id is caller
// supplied, so a user key would either merge every client into one
// bucket or hand out a fresh bucket per forged id.
//
// Limiters live in a bounded LRU so idle keys age out without a cleanup
// goroutine.  Rejected requests get 429 with a Retry-After hint.

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yanizio/eventsite/internal/auth"
	"github.com/yanizio/eventsite/internal/cache"
	"github.com/yanizio/eventsite/internal/httpx"
)

const (
	limiterCapacity = 10000
	limiterIdleTTL  = 10 * time.Minute
)

// RateLimiter hands out one *rate.Limiter per key.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *cache.LRU[string, *rate.Limiter]
}

// NewRateLimiter allows rps requests per second per key with the given
// burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: cache.New[string, *rate.Limiter](limiterCapacity, limiterIdleTTL),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := limitKey(r)
		if !rl.limiter(key).Allow() {
			user, _ := auth.UserID(r.Context())
			zap.S().Infow("rate limit exceeded", "key", key, "user", user, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			httpx.WriteErrorCode(w, http.StatusTooManyRequests, httpx.CodeRateLimited, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) retryAfter() int {
	if rl.limit <= 0 {
		return 60
	}
	secs := int(1 / float64(rl.limit))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// limitKey returns the client address.  RealIP has already replaced
// RemoteAddr with the forwarded address when a proxy sits in front.
func limitKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
