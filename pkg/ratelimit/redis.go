package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCounterPrefix = "ratelimit:count:"
	redisBlockPrefix   = "ratelimit:block:"
)

// incrementScript returns {count, pttl}. The first hit of a window sets the
// expiry, so the key itself is the window.
var incrementScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if c == 1 or ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {c, ttl}
`)

// RedisStore shares counters between instances. Windows and blocks are
// Redis keys with a TTL, so Redis expires them without help from Cleanup.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Increment(ctx context.Context, id string, window time.Duration, now time.Time) (Counter, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{redisCounterPrefix + id}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("ratelimit: redis increment: %w", err)
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("ratelimit: redis increment: unexpected reply %v", res)
	}

	resetAt := now.Add(time.Duration(res[1]) * time.Millisecond)
	return Counter{
		Identifier:  id,
		Count:       int(res[0]),
		WindowStart: resetAt.Add(-window),
		ResetAt:     resetAt,
	}, nil
}

func (s *RedisStore) Block(ctx context.Context, id string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, redisBlockPrefix+id, until.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("ratelimit: redis block: %w", err)
	}
	return nil
}

func (s *RedisStore) BlockedUntil(ctx context.Context, id string, now time.Time) (time.Time, bool, error) {
	ttl, err := s.client.PTTL(ctx, redisBlockPrefix+id).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("ratelimit: redis block ttl: %w", err)
	}
	// -2 means missing, -1 means no expiry which Block never writes.
	if ttl <= 0 {
		return time.Time{}, false, nil
	}
	return now.Add(ttl), true, nil
}

func (s *RedisStore) Cleanup(context.Context, time.Time) (int, error) {
	return 0, nil
}
