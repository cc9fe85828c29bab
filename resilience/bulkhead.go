package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrBulkheadFull is returned when no slot frees up in time.
var ErrBulkheadFull = errors.New("bulkhead is full")

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// MaxConcurrent is the number of calls allowed in flight.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait is how long Acquire waits for a slot. Zero fails immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (c *BulkheadConfig) ApplyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
}

// Bulkhead caps the number of concurrent calls.
type Bulkhead struct {
	cfg BulkheadConfig
	sem chan struct{}
}

// NewBulkhead creates a Bulkhead.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	cfg.ApplyDefaults()
	return &Bulkhead{cfg: cfg, sem: make(chan struct{}, cfg.MaxConcurrent)}
}

// Acquire takes a slot. The returned release must be called once the call
// finishes.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case b.sem <- struct{}{}:
		return b.release, nil
	default:
	}
	if b.cfg.MaxWait <= 0 {
		return nil, ErrBulkheadFull
	}

	timer := time.NewTimer(b.cfg.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return b.release, nil
	case <-timer.C:
		return nil, ErrBulkheadFull
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InUse returns the number of slots taken.
func (b *Bulkhead) InUse() int { return len(b.sem) }

func (b *Bulkhead) release() { <-b.sem }
