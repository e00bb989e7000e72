package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func newClock() *clock {
	return &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testLimiter(cfg *Config, c *clock) *Limiter {
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	l.now = c.now
	return l
}

func TestLimiter_Allow(t *testing.T) {
	c := newClock()
	limiter := testLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute}, c)
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/resumes", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/api/resumes", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, float64(6*time.Second), float64(info.RetryAfter), float64(time.Millisecond),
		"one token refills every 6s at 10/min")
	assert.True(t, info.ResetTime.After(c.t))
}

func TestLimiter_Refill(t *testing.T) {
	c := newClock()
	limiter := testLimiter(&Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute}, c)
	defer limiter.Stop()

	for i := 0; i < 60; i++ {
		limiter.Allow("client", "/x", "GET")
	}
	allowed, _ := limiter.Allow("client", "/x", "GET")
	require.False(t, allowed)

	c.advance(time.Second)
	allowed, _ = limiter.Allow("client", "/x", "GET")
	assert.True(t, allowed, "one token back after a second")
	allowed, _ = limiter.Allow("client", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_UploadEndpointUsesBurst(t *testing.T) {
	c := newClock()
	limiter := testLimiter(DefaultConfig(), c)
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, info := limiter.Allow("ip", "/api/resume/upload", "POST")
		require.True(t, allowed)
		assert.Equal(t, 30, info.Limit)
	}
	allowed, _ := limiter.Allow("ip", "/api/resume/upload", "POST")
	assert.False(t, allowed, "burst of 5 exhausted")

	allowed, _ = limiter.Allow("other-ip", "/api/resume/upload", "POST")
	assert.True(t, allowed, "buckets are per client")
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	c := newClock()
	limiter := testLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	}, c)
	defer limiter.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("10.0.0.1", "/x", "GET")
		require.True(t, allowed)
	}
	allowed, _ := limiter.Allow("10.0.0.2", "/x", "GET")
	assert.False(t, allowed)

	off := testLimiter(&Config{Enabled: false}, c)
	for i := 0; i < 20; i++ {
		allowed, _ := off.Allow("anyone", "/x", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	limiter := testLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute}, newClock())
	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("ip", "/health", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	c := newClock()
	limiter := testLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTTL: time.Hour}, c)

	limiter.Allow("a", "/x", "GET")
	c.advance(30 * time.Minute)
	limiter.Allow("b", "/x", "GET")
	require.Equal(t, 2, limiter.Len())

	c.advance(45 * time.Minute)
	limiter.Cleanup()
	assert.Equal(t, 1, limiter.Len(), "only the bucket idle for over an hour is dropped")
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := testLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Hour}, newClock())

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("ip", "/x", "GET"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(nil)
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantLimit    int
		wantNil      bool
	}{
		{"/api/resume/upload", "POST", 30, false},
		{"/api/resume/upload/stream", "POST", 30, false},
		{"/api/resumes/abc", "PUT", 100, false},
		{"/api/resumes/abc", "DELETE", 100, false},
		{"/api/resumes/abc", "GET", 0, true},
		{"/health", "GET", 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT": "50",
		"RATE_LIMIT_WHITELIST":     "1.1.1.1, 2.2.2.2",
		"RATE_LIMIT_UPLOAD_LIMIT":  "3",
	}
	cfg := LoadConfig(func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.True(t, cfg.Whitelist["2.2.2.2"])
	assert.Equal(t, 3, MatchEndpoint("/api/resume/upload", "POST", cfg.EndpointConfigs).Limit)

	disabled := LoadConfig(func(k string) (string, bool) {
		if k == "RATE_LIMIT_ENABLED" {
			return "false", true
		}
		return "", false
	})
	assert.False(t, disabled.Enabled)
}
