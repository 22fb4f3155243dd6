package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func doFrom(h http.Handler, addr string) int {
	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_PerClientBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, doFrom(h, "10.0.0.1:1002"))

	// другой клиент имеет собственный бакет
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.2:1000"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1003"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	h := NewRateLimiter(0, 0).Middleware(http.HandlerFunc(okHandler))

	for i := 0; i < 100; i++ {
		assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1000"))
	}
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	rl.allow("b")
	assert.Len(t, rl.limiters, 2)

	now = now.Add(limiterIdleTTL + time.Second)
	rl.allow("c")
	assert.Len(t, rl.limiters, 1)
}
