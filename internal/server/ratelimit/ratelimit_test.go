package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.now
	return l, clock
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(DefaultConfig())

	assert.True(t, l.Allow("10.0.0.1", "POST", "/run").Allowed)
	assert.True(t, l.Allow("10.0.0.1", "POST", "/run").Allowed)

	denied := l.Allow("10.0.0.1", "POST", "/run")
	assert.False(t, denied.Allowed)
	assert.Equal(t, 12, denied.Limit)
	assert.Equal(t, 0, denied.Remaining)
	assert.Positive(t, denied.RetryAfter)

	// Other clients and other endpoints have their own buckets
	assert.True(t, l.Allow("10.0.0.2", "POST", "/run").Allowed)
	assert.True(t, l.Allow("10.0.0.1", "POST", "/upload").Allowed)
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(&Config{
		Enabled: true,
		Default: Rule{Limit: 60, Window: time.Minute, Burst: 1},
	})

	assert.True(t, l.Allow("c", "GET", "/tree").Allowed)
	assert.False(t, l.Allow("c", "GET", "/tree").Allowed)

	clock.advance(1100 * time.Millisecond)
	assert.True(t, l.Allow("c", "GET", "/tree").Allowed)
	assert.False(t, l.Allow("c", "GET", "/tree").Allowed)
}

func TestLimiter_UnlimitedAndExempt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exempt["127.0.0.1"] = true
	l, _ := newTestLimiter(cfg)

	for i := 0; i < 20; i++ {
		assert.True(t, l.Allow("127.0.0.1", "POST", "/run").Allowed)
		assert.True(t, l.Allow("10.0.0.1", "GET", "/health").Allowed)
	}

	disabled, _ := newTestLimiter(&Config{Enabled: false, Default: Rule{Limit: 1, Window: time.Hour}})
	for i := 0; i < 5; i++ {
		assert.True(t, disabled.Allow("c", "GET", "/tree").Allowed)
	}
}

func TestLimiter_PrunesIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(DefaultConfig())
	l.Allow("a", "GET", "/tree")
	l.Allow("b", "GET", "/tree")
	assert.Len(t, l.buckets, 2)

	clock.advance(2 * idleAfter)
	l.Allow("c", "GET", "/tree")
	assert.Len(t, l.buckets, 1)
}

func TestConfig_Match(t *testing.T) {
	cfg := &Config{
		Default: Rule{Limit: 100, Window: time.Minute},
		Rules: []Rule{
			{Method: "GET", Path: "/download/", Limit: 5, Window: time.Minute},
			{Method: "POST", Path: "/run", Limit: 1, Window: time.Hour},
		},
	}

	assert.Equal(t, 1, cfg.Match("POST", "/run").Limit)
	assert.Equal(t, 5, cfg.Match("GET", "/download/a.json").Limit)
	assert.Equal(t, 100, cfg.Match("GET", "/run").Limit)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_EXEMPT", "10.0.0.1, 10.0.0.2,")

	cfg := FromEnv(DefaultConfig())
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.Exempt["10.0.0.1"])
	assert.True(t, cfg.Exempt["10.0.0.2"])
	assert.Len(t, cfg.Exempt, 2)
}
