package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithExpiry increments the window counter and, only when this increment
// created the key, attaches the window TTL in the same atomic step. Doing
// both in one script closes the gap where a key could exist without an
// expiry and leak forever. The PTTL read lets every caller report the same
// reset time for the window.
const incrWithExpiry = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// RedisStore implements CounterStore on a shared Redis instance. State is
// consistent across all processes pointing at the same Redis; expiry is
// handled by Redis TTLs so no cleanup task is needed.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	script *redis.Script
}

// NewRedisStore creates a Redis-backed counter store. prefix namespaces the
// keys (default "limitgate"). The client is not pinged here; reachability is
// the health monitor's concern.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "limitgate"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		script: redis.NewScript(incrWithExpiry),
	}
}

var _ CounterStore = (*RedisStore)(nil)

// Increment applies one atomic increment to the key's current window.
// Transport failures are wrapped in ErrUnavailable so the caller can fail
// over without inspecting redis internals.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Usage, error) {
	result, err := s.script.Run(ctx, s.client, []string{s.prefix + ":" + key}, window.Milliseconds()).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return Usage{}, fmt.Errorf("%w: unexpected script reply %v", ErrUnavailable, result)
	}

	count, ok := values[0].(int64)
	if !ok {
		return Usage{}, fmt.Errorf("%w: non-integer count in script reply", ErrUnavailable)
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return Usage{}, fmt.Errorf("%w: non-integer ttl in script reply", ErrUnavailable)
	}

	return Usage{
		Count:     count,
		ExpiresAt: time.Now().Add(time.Duration(ttlMs) * time.Millisecond),
	}, nil
}

// Ping reports whether Redis is reachable. Used by the health monitor's
// probe loop.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
