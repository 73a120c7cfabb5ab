package ratelimit

import (
	"context"
	"strings"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScripter simulates the two Lua scripts against an in-memory counter
// map, so the reply-parsing and rollback paths run without a Redis.
type fakeScripter struct {
	counts map[string]int64
	ttl    map[string]int64
}

func newFakeScripter() *fakeScripter {
	return &fakeScripter{counts: make(map[string]int64), ttl: make(map[string]int64)}
}

func (f *fakeScripter) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	if strings.Contains(script, "INCR") {
		limit := int64(args[0].(int))
		periodMS := args[1].(int64)
		f.counts[key]++
		if f.counts[key] == 1 {
			f.ttl[key] = periodMS
		}
		if f.counts[key] > limit {
			f.counts[key]--
			return redis.NewCmdResult([]any{int64(0), f.counts[key], f.ttl[key]}, nil)
		}
		return redis.NewCmdResult([]any{int64(1), f.counts[key], f.ttl[key]}, nil)
	}
	// peek
	count, ok := f.counts[key]
	if !ok {
		return redis.NewCmdResult([]any{int64(0), args[0].(int64)}, nil)
	}
	return redis.NewCmdResult([]any{count, f.ttl[key]}, nil)
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, sha, keys, args...)
}

func (f *fakeScripter) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeScripter) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, sha, keys, args...)
}

func (f *fakeScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeScripter) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRedisStoreHitAndPeek(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(newFakeScripter())
	l := New(s)
	w := PerSecond(2, 10, "riot")

	ok, err := l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := l.WindowStats(ctx, w, "kr")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Remaining)

	ok, err = l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	assert.True(t, ok)

	// Exhausted: the overshooting increment rolls back.
	ok, err = l.Hit(ctx, w, "kr")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err = l.WindowStats(ctx, w, "kr")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Remaining)
}

func TestRedisStorePeekWithoutCounter(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(newFakeScripter())

	remaining, reset, err := s.Peek(ctx, "riot/kr/route_long", 95, 123*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 95, remaining)
	assert.WithinDuration(t, time.Now().Add(123*time.Second), reset, time.Second)
}
