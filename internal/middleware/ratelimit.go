package middleware

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/hornshoofs/scoring-api/internal/httputil"
	"github.com/hornshoofs/scoring-api/internal/logging"
)

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   *logging.Logger
}

// NewRateLimiter builds a limiter allowing requestsPerSecond with the
// given burst per client.
func NewRateLimiter(requestsPerSecond, burst int, logger *logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler is the middleware entry. Clients are keyed by remote host.
func (rl *RateLimiter) Handler() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			}

			if !rl.limiterFor(key).Allow() {
				rl.logger.ForRequest(r.Context()).WithField("client", key).Warn("rate limit exceeded")
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error": "Too Many Requests",
					"code":  http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
