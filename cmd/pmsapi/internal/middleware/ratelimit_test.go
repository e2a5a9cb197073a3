package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func loginRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	handler := RateLimiter(RateLimitConfig{RequestsPerSecond: 0.01, Burst: 2})(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, loginRequest("10.0.0.1:5000"))
		require.Equal(t, http.StatusOK, w.Code, "request %d within burst", i)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, loginRequest("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too many login attempts")
}

func TestRateLimiter_PerClient(t *testing.T) {
	handler := RateLimiter(RateLimitConfig{RequestsPerSecond: 0.01, Burst: 1})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, loginRequest("10.0.0.1:5000"))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, loginRequest("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, w.Code, "second client has its own bucket")
}

func TestRateLimiter_IgnoresForwardedFor(t *testing.T) {
	handler := RateLimiter(RateLimitConfig{RequestsPerSecond: 0.01, Burst: 1})(okHandler())

	first := loginRequest("10.0.0.1:5000")
	first.Header.Set("X-Forwarded-For", "1.1.1.1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, first)
	require.Equal(t, http.StatusOK, w.Code)

	second := loginRequest("10.0.0.1:5000")
	second.Header.Set("X-Forwarded-For", "2.2.2.2")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, second)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestClientLimiters_SweepsIdleEntries(t *testing.T) {
	now := time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)
	limiters := &clientLimiters{
		cfg:       RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
		clients:   make(map[string]*clientLimiter),
		lastSweep: now,
		now:       func() time.Time { return now },
	}

	limiters.get("10.0.0.1")
	require.Len(t, limiters.clients, 1)

	now = now.Add(limiterIdleTTL + time.Minute)
	limiters.get("10.0.0.2")

	assert.Len(t, limiters.clients, 1)
	assert.Contains(t, limiters.clients, "10.0.0.2")
}
