package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remote string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsUpToMax(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i, want := range []string{"2", "1", "0"} {
		w := hit(h, "192.168.1.1:1000", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_RejectsWithJSONBody(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)

	w := hit(h, "10.0.0.1:2", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var (
		code int
		msg  string
	)
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Int()
			code = v
			return err
		case "message":
			v, err := d.Str()
			msg = v
			return err
		default:
			return d.Skip()
		}
	}))
	assert.Equal(t, 429, code)
	assert.Equal(t, "rate limit exceeded", msg)
}

func TestRateLimit_Keys(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RateLimitConfig
		first   func(h http.Handler) int
		second  func(h http.Handler) int
		limited bool
	}{
		{
			name:    "different ips are independent",
			cfg:     RateLimitConfig{Max: 1, Window: time.Minute},
			first:   func(h http.Handler) int { return hit(h, "10.0.0.1:1", nil).Code },
			second:  func(h http.Handler) int { return hit(h, "10.0.0.2:1", nil).Code },
			limited: false,
		},
		{
			name:    "same ip different port",
			cfg:     RateLimitConfig{Max: 1, Window: time.Minute},
			first:   func(h http.Handler) int { return hit(h, "10.0.0.1:1", nil).Code },
			second:  func(h http.Handler) int { return hit(h, "10.0.0.1:2", nil).Code },
			limited: true,
		},
		{
			name: "forwarded for wins over remote addr",
			cfg:  RateLimitConfig{Max: 1, Window: time.Minute},
			first: func(h http.Handler) int {
				return hit(h, "192.168.1.1:1", map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}).Code
			},
			second: func(h http.Handler) int {
				return hit(h, "192.168.1.2:1", map[string]string{"X-Forwarded-For": "203.0.113.50"}).Code
			},
			limited: true,
		},
		{
			name: "custom key",
			cfg: RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: func(r *http.Request) string {
				return r.Header.Get("X-Guest")
			}},
			first:   func(h http.Handler) int { return hit(h, "10.0.0.1:1", map[string]string{"X-Guest": "a"}).Code },
			second:  func(h http.Handler) int { return hit(h, "10.0.0.1:1", map[string]string{"X-Guest": "b"}).Code },
			limited: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(tt.cfg)(okHandler())
			require.Equal(t, http.StatusOK, tt.first(h))
			want := http.StatusOK
			if tt.limited {
				want = http.StatusTooManyRequests
			}
			assert.Equal(t, want, tt.second(h))
		})
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for range 4 {
		ok, _, _ := rl.take("k", start)
		require.True(t, ok)
	}
	ok, _, _ := rl.take("k", start.Add(30*time.Second))
	assert.False(t, ok)

	// A quarter into the next window, 3/4 of the previous count still
	// weighs in: 4*0.75 = 3, leaving one request.
	next := start.Add(75 * time.Second)
	ok, remaining, _ := rl.take("k", next)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	ok, _, _ = rl.take("k", next)
	assert.False(t, ok)

	// Two idle windows reset the history.
	ok, remaining, _ = rl.take("k", start.Add(5*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 3, remaining)
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.take("old", now)
	rl.take("new", now.Add(2*time.Minute))

	rl.evict(now.Add(2*time.Minute + time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.windows, "old")
	assert.Contains(t, rl.windows, "new")
}

func TestRateLimiter_StartCleanupStops(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: 5 * time.Millisecond})
	rl.take("k", time.Now().Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	rl.StartCleanup(ctx)

	assert.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.windows) == 0
	}, time.Second, 5*time.Millisecond)
	cancel()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "10.1.1.1:443", nil, "10.1.1.1"},
		{"remote without port", "10.1.1.1", nil, "10.1.1.1"},
		{"real ip", "10.1.1.1:443", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"forwarded list", "10.1.1.1:443", map[string]string{"X-Forwarded-For": " 203.0.113.1 , 10.0.0.1"}, "203.0.113.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
