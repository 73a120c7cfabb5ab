package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps window counters in Redis so several collector processes
// pointed at the same key can share one quota. Each Hit is a single Lua
// evaluation, so the check-and-increment is atomic server-side.
type RedisStore struct {
	client redis.Scripter
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreAddr dials addr (e.g. "127.0.0.1:6379") and wraps the client.
func NewRedisStoreAddr(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// hitScript increments the counter and sets the window TTL on first use. If
// the increment overshoots the limit it is rolled back so a failed hit
// leaves state unchanged. Returns {granted, count, pttl_millis}.
const hitScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local period_ms = tonumber(ARGV[2])
local count = redis.call('INCR', key)
if count == 1 then
  redis.call('PEXPIRE', key, period_ms)
end
if count > limit then
  redis.call('DECR', key)
  return {0, count - 1, redis.call('PTTL', key)}
end
return {1, count, redis.call('PTTL', key)}
`

// peekScript returns {count, pttl_millis} without mutating the counter.
const peekScript = `
local count = redis.call('GET', KEYS[1])
if not count then
  return {0, tonumber(ARGV[1])}
end
return {tonumber(count), redis.call('PTTL', KEYS[1])}
`

func (s *RedisStore) Hit(ctx context.Context, key string, limit int, period time.Duration) (bool, int, time.Time, error) {
	res, err := s.client.Eval(ctx, hitScript, []string{counterKey(key)},
		limit, period.Milliseconds()).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("redis hit %s: %w", key, err)
	}
	granted, count, ttl, err := parseTriple(res)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("redis hit %s: %w", key, err)
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return granted == 1, remaining, time.Now().Add(ttl), nil
}

func (s *RedisStore) Peek(ctx context.Context, key string, limit int, period time.Duration) (int, time.Time, error) {
	res, err := s.client.Eval(ctx, peekScript, []string{counterKey(key)},
		period.Milliseconds()).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis peek %s: %w", key, err)
	}
	count, ttl, err := parsePair(res)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis peek %s: %w", key, err)
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, time.Now().Add(ttl), nil
}

func counterKey(key string) string { return "ratelimit:" + key }

func parseTriple(res any) (granted, count int, ttl time.Duration, err error) {
	vals, ok := res.([]any)
	if !ok || len(vals) != 3 {
		return 0, 0, 0, fmt.Errorf("unexpected script reply %v", res)
	}
	g, ok1 := vals[0].(int64)
	c, ok2 := vals[1].(int64)
	t, ok3 := vals[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return 0, 0, 0, fmt.Errorf("unexpected script reply %v", res)
	}
	return int(g), int(c), time.Duration(t) * time.Millisecond, nil
}

func parsePair(res any) (count int, ttl time.Duration, err error) {
	vals, ok := res.([]any)
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected script reply %v", res)
	}
	c, ok1 := vals[0].(int64)
	t, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("unexpected script reply %v", res)
	}
	return int(c), time.Duration(t) * time.Millisecond, nil
}
