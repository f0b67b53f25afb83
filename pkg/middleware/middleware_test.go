package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimiterDisabled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("nil client passes through", func(t *testing.T) {
		limiter := NewRateLimiter(nil, 100, zap.NewNop())
		rec := httptest.NewRecorder()
		limiter.Limit(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/proxy/mysql/orders", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("zero limit passes through", func(t *testing.T) {
		limiter := NewRateLimiter(nil, 0, zap.NewNop())
		rec := httptest.NewRecorder()
		limiter.Limit(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/proxy/mysql/orders", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestLimiterClientIP(t *testing.T) {
	t.Run("forwarded header wins", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		assert.Equal(t, "203.0.113.9", limiterClientIP(r))
	})

	t.Run("remote addr fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "198.51.100.4:54321"
		assert.Equal(t, "198.51.100.4", limiterClientIP(r))
	})
}

func TestRequestLogger(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("nil logger passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequestLogger(nil)(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("status code preserved through wrapper", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequestLogger(zap.NewNop())(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}
