package execution

import (
	"context"
	"math/rand"
	"time"
)

// Backoff implements exponential backoff with jitter for store retries.
type Backoff struct {
	minDelay time.Duration
	maxDelay time.Duration
	current  time.Duration
}

// NewBackoff creates a Backoff with the provided min and max delays.
func NewBackoff(minDelay, maxDelay time.Duration) *Backoff {
	if minDelay <= 0 {
		minDelay = 1 * time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Minute
	}
	return &Backoff{minDelay: minDelay, maxDelay: maxDelay, current: minDelay}
}

// Next returns the next backoff duration with ±25% jitter and doubles the
// current delay up to the maximum.
func (b *Backoff) Next() time.Duration {
	jitter := (rand.Float64() - 0.5) * 0.5
	d := time.Duration(float64(b.current) * (1 + jitter))

	next := b.current * 2
	if next > b.maxDelay {
		next = b.maxDelay
	}
	b.current = next

	if d < 0 {
		d = 0
	}
	return d
}

// Reset sets backoff to its minimum delay.
func (b *Backoff) Reset() {
	b.current = b.minDelay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
