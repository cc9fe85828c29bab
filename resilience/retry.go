package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential retry delays.
type Backoff struct {
	// MaxAttempts is the number of attempts including the first.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	// Initial is the delay before the second attempt.
	Initial time.Duration `yaml:"initial" mapstructure:"initial" validate:"gte=0"`
	// Max caps every delay.
	Max time.Duration `yaml:"max" mapstructure:"max" validate:"gte=0"`
	// Factor multiplies the delay after each attempt.
	Factor float64 `yaml:"factor" mapstructure:"factor" validate:"gte=0"`
	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64 `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// DefaultBackoff returns three attempts starting at 100ms.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 3,
		Initial:     100 * time.Millisecond,
		Max:         10 * time.Second,
		Factor:      2,
		Jitter:      0.1,
	}
}

// ApplyDefaults fills zero values from DefaultBackoff.
func (b *Backoff) ApplyDefaults() {
	d := DefaultBackoff()
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = d.MaxAttempts
	}
	if b.Initial <= 0 {
		b.Initial = d.Initial
	}
	if b.Max <= 0 {
		b.Max = d.Max
	}
	if b.Factor <= 0 {
		b.Factor = d.Factor
	}
}

// Delay returns the wait after the given failed attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Factor, float64(attempt-1))
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	d = min(d, float64(b.Max))
	if d < 0 {
		d = float64(b.Initial)
	}
	return time.Duration(d)
}

// Sleep waits for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
