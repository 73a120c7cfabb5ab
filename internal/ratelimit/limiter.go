package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store holds fixed-window counters. Implementations must make Hit atomic
// with respect to concurrent callers of the same key: two racing hits on a
// window with one admission left must not both succeed.
type Store interface {
	// Hit consumes one admission from the window's current bucket if any
	// remain. It returns whether the admission was granted, the remaining
	// count after the call, and the bucket expiry.
	Hit(ctx context.Context, key string, limit int, period time.Duration) (ok bool, remaining int, reset time.Time, err error)

	// Peek reports the remaining count and bucket expiry without consuming.
	Peek(ctx context.Context, key string, limit int, period time.Duration) (remaining int, reset time.Time, err error)
}

// WindowStats is a snapshot of one window returned by Limiter.WindowStats.
type WindowStats struct {
	Remaining int
	Reset     time.Time
}

// Limiter is the admission-control surface the HTTP client uses. It is
// shared by every route; contention is per key.
type Limiter struct {
	store Store
}

// New returns a Limiter over the given store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Test reports whether a subsequent Hit on the window would succeed. It never
// mutates counter state.
func (l *Limiter) Test(ctx context.Context, w Window, keys ...string) (bool, error) {
	remaining, _, err := l.store.Peek(ctx, w.key(keys), w.Amount, w.Period)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

// Hit attempts to consume one admission. It returns false and leaves state
// unchanged when the window is exhausted.
func (l *Limiter) Hit(ctx context.Context, w Window, keys ...string) (bool, error) {
	ok, _, _, err := l.store.Hit(ctx, w.key(keys), w.Amount, w.Period)
	return ok, err
}

// WindowStats returns the remaining admissions and the reset time of the
// window's current bucket.
func (l *Limiter) WindowStats(ctx context.Context, w Window, keys ...string) (WindowStats, error) {
	remaining, reset, err := l.store.Peek(ctx, w.key(keys), w.Amount, w.Period)
	if err != nil {
		return WindowStats{}, err
	}
	return WindowStats{Remaining: remaining, Reset: reset}, nil
}

// MemoryStore keeps counters in process memory. Buckets are aligned to the
// wall clock (now truncated to the period), so a counter resets at a fixed
// boundary rather than a sliding offset.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count int
	start time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (s *MemoryStore) current(key string, period time.Duration) *bucket {
	start := s.now().Truncate(period)
	b, ok := s.buckets[key]
	if !ok || b.start.Before(start) {
		b = &bucket{start: start}
		s.buckets[key] = b
	}
	return b
}

func (s *MemoryStore) Hit(_ context.Context, key string, limit int, period time.Duration) (bool, int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.current(key, period)
	reset := b.start.Add(period)
	if b.count >= limit {
		return false, 0, reset, nil
	}
	b.count++
	return true, limit - b.count, reset, nil
}

func (s *MemoryStore) Peek(_ context.Context, key string, limit int, period time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.current(key, period)
	remaining := limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, b.start.Add(period), nil
}
