// Package ratelimit provides per-client token bucket rate limiting for the
// web surface. Run endpoints call the model once per report, so they get
// much tighter limits than the file management endpoints.
package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Rule limits one method and path. A path ending in "/" matches by prefix.
type Rule struct {
	Method string
	Path   string
	Limit  int // Requests per window; zero or less is unlimited
	Window time.Duration
	Burst  int // Bucket capacity, Limit when zero
}

// Config holds rate limiting configuration
type Config struct {
	Enabled bool
	Default Rule // Applied when no rule matches
	Rules   []Rule
	Exempt  map[string]bool // Client IDs that are never limited
}

// DefaultConfig returns the limits used by the serve command
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Default: Rule{Limit: 600, Window: time.Minute},
		Rules: []Rule{
			{Method: "POST", Path: "/run", Limit: 12, Window: time.Hour, Burst: 2},
			{Method: "POST", Path: "/run/stream", Limit: 12, Window: time.Hour, Burst: 2},
			{Method: "POST", Path: "/upload", Limit: 120, Window: time.Minute, Burst: 20},
			{Method: "POST", Path: "/mkdir", Limit: 60, Window: time.Minute, Burst: 10},
			{Method: "POST", Path: "/delete", Limit: 60, Window: time.Minute, Burst: 10},
			{Method: "GET", Path: "/health"},
		},
		Exempt: map[string]bool{},
	}
}

// FromEnv applies RATE_LIMIT_ENABLED and RATE_LIMIT_EXEMPT (comma-separated
// client IPs) on top of cfg.
func FromEnv(cfg *Config) *Config {
	if value := os.Getenv("RATE_LIMIT_ENABLED"); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			cfg.Enabled = enabled
		}
	}
	if cfg.Exempt == nil {
		cfg.Exempt = map[string]bool{}
	}
	for _, ip := range strings.Split(os.Getenv("RATE_LIMIT_EXEMPT"), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			cfg.Exempt[ip] = true
		}
	}
	return cfg
}

// Match returns the rule for a request, falling back to the default rule
func (c *Config) Match(method, path string) Rule {
	for _, rule := range c.Rules {
		if rule.Method == method && rule.Path == path {
			return rule
		}
	}
	for _, rule := range c.Rules {
		if rule.Method == method && strings.HasSuffix(rule.Path, "/") && strings.HasPrefix(path, rule.Path) {
			return rule
		}
	}
	return c.Default
}

// Decision describes the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	capacity   float64
	refillRate float64 // Tokens per second
	tokens     float64
	lastRefill time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.lastRefill = now
	}
}

// idleAfter is how long an untouched bucket is kept
const idleAfter = time.Hour

// Limiter manages one bucket per client, method and path. Idle buckets are
// pruned during Allow, so no background goroutine is needed.
type Limiter struct {
	cfg *Config
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

// NewLimiter creates a limiter. A nil config uses DefaultConfig.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Limiter{cfg: cfg, now: time.Now, buckets: make(map[string]*bucket)}
}

// Allow consumes a token for the client if one is available
func (l *Limiter) Allow(clientID, method, path string) Decision {
	if !l.cfg.Enabled || l.cfg.Exempt[clientID] {
		return Decision{Allowed: true}
	}
	rule := l.cfg.Match(method, path)
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	key := clientID + " " + method + " " + path
	b, ok := l.buckets[key]
	if !ok {
		capacity := rule.Burst
		if capacity <= 0 {
			capacity = rule.Limit
		}
		b = &bucket{
			capacity:   float64(capacity),
			refillRate: float64(rule.Limit) / rule.Window.Seconds(),
			tokens:     float64(capacity),
			lastRefill: now,
		}
		l.buckets[key] = b
	}
	b.refill(now)

	decision := Decision{Limit: rule.Limit}
	if b.tokens >= 1 {
		b.tokens--
		decision.Allowed = true
	} else {
		decision.RetryAfter = time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
	}
	decision.Remaining = int(b.tokens)
	return decision
}

func (l *Limiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < idleAfter {
		return
	}
	l.lastPrune = now
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > idleAfter {
			delete(l.buckets, key)
		}
	}
}
