package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryStoreHitUntilExhausted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.now = fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	l := New(s)
	w := PerSecond(3, 10, "test")

	for i := 0; i < 3; i++ {
		ok, err := l.Hit(ctx, w, "kr")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d should be admitted", i)
	}

	ok, err := l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	assert.False(t, ok, "fourth hit must be rejected")

	// A rejected hit leaves state unchanged: remaining stays at zero, not
	// negative.
	stats, err := l.WindowStats(ctx, w, "kr")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Remaining)
}

func TestMemoryStoreTestIsNonMutating(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.now = fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	l := New(s)
	w := PerSecond(2, 10, "test")

	for i := 0; i < 10; i++ {
		ok, err := l.Test(ctx, w, "kr")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	stats, err := l.WindowStats(ctx, w, "kr")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Remaining, "test must not consume admissions")
}

func TestMemoryStoreWindowReset(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = fixedClock(now)

	l := New(s)
	w := PerSecond(1, 10, "test")

	ok, err := l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	require.False(t, ok)

	stats, err := l.WindowStats(ctx, w, "kr")
	require.NoError(t, err)
	assert.Equal(t, now.Truncate(10*time.Second).Add(10*time.Second), stats.Reset)

	// Advance past the bucket boundary: quota is fresh.
	s.now = fixedClock(now.Add(11 * time.Second))
	ok, err = l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore())
	w := PerSecond(1, 60, "test")

	ok, err := l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	require.True(t, ok)

	// Same window shape, different route: independent counter.
	ok, err = l.Hit(ctx, w, "na1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same route, different window name: independent counter too.
	ok, err = l.Hit(ctx, w, "kr", "match_by_id")
	require.NoError(t, err)
	assert.True(t, ok)
}

// The fundamental limiter invariant: concurrent hits on one window never
// admit more than the window amount.
func TestMemoryStoreConcurrentHitsRespectLimit(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore())
	w := PerSecond(50, 3600, "test")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				ok, err := l.Hit(ctx, w, "kr")
				if err != nil {
					t.Error(err)
					return
				}
				if ok {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted, "200 racing hits against a 50-wide window must admit exactly 50")
}
