package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter throttles proxy dispatches per client IP using a fixed
// one-minute Redis window. A nil Redis client or a non-positive limit
// disables limiting entirely.
type RateLimiter struct {
	client *redis.Client
	limit  int
	logger *zap.Logger
}

// NewRateLimiter creates a per-IP rate limiter. Returns a pass-through
// limiter when client is nil or limit <= 0.
func NewRateLimiter(client *redis.Client, limit int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, logger: logger}
}

// Limit wraps a handler with the rate limit check. Redis outages fail open.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	if l.client == nil || l.limit <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("proxy:ratelimit:%s:%s", limiterClientIP(r), time.Now().UTC().Format("200601021504"))

		count, err := l.client.Incr(r.Context(), key).Result()
		if err != nil {
			l.logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.client.Expire(r.Context(), key, time.Minute)
		}

		if count > int64(l.limit) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func limiterClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
