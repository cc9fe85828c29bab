package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a call would exceed the rate.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	// Name identifies the limiter in logs.
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of calls allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the bucket size.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (c *LimiterConfig) ApplyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 10
	}
	if c.Burst <= 0 {
		c.Burst = max(int(c.Rate), 1)
	}
}

// Limiter is a token bucket. It starts full.
type Limiter struct {
	cfg LimiterConfig
	now func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewLimiter creates a Limiter with a full bucket.
func NewLimiter(cfg LimiterConfig) *Limiter {
	cfg.ApplyDefaults()
	l := &Limiter{cfg: cfg, now: time.Now, tokens: float64(cfg.Burst)}
	l.last = l.now()
	return l
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Wait takes a token, sleeping until one is available. The token is
// returned to the bucket if ctx ends first.
func (l *Limiter) Wait(ctx context.Context) error {
	delay := l.reserve()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.tokens++
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Tokens returns the tokens currently in the bucket. It is negative while
// waiters hold reservations.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// reserve takes a token, going into debt if needed, and returns how long the
// caller must wait for the debt to be repaid.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.cfg.Rate * float64(time.Second))
}

func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now
	l.tokens = min(l.tokens+elapsed*l.cfg.Rate, float64(l.cfg.Burst))
}
