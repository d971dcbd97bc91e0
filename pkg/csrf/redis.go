package csrf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTokenPrefix = "csrf:token:"
	redisIndexKey    = "csrf:tokens"
)

// markUsedScript flips the used flag only when the record exists, is unused
// and was issued at or after ARGV[1] (unix ms).
var markUsedScript = redis.NewScript(`
local used = redis.call('HGET', KEYS[1], 'used')
if not used or used == '1' then
	return 0
end
local issued = tonumber(redis.call('HGET', KEYS[1], 'issued_at'))
if issued == nil or issued < tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'used', '1')
return 1
`)

// insertScript creates the record hash and its index entry only when no hash
// exists for the token yet.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'issued_at', ARGV[1], 'fp', ARGV[2], 'used', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[5])
return 1
`)

// RedisStore shares records between instances. Each record is a hash with a
// TTL of the token lifetime, and a sorted set indexes tokens by issue time
// for eviction and listing.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore returns a store whose records expire after ttl.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultLifetime
	}
	return &RedisStore{client: client, ttl: ttl}
}

func tokenKey(token string) string { return redisTokenPrefix + token }

func (s *RedisStore) Get(ctx context.Context, token string) (Record, bool, error) {
	data, err := s.client.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("csrf: redis get: %w", err)
	}
	if len(data) == 0 {
		return Record{}, false, nil
	}
	return decodeRecord(token, data), true, nil
}

func (s *RedisStore) Insert(ctx context.Context, rec Record) (bool, error) {
	used := "0"
	if rec.Used {
		used = "1"
	}

	n, err := insertScript.Run(ctx, s.client,
		[]string{tokenKey(rec.Token), redisIndexKey},
		rec.IssuedAt.UnixMilli(), rec.Fingerprint, used, s.ttl.Milliseconds(), rec.Token,
	).Int()
	if err != nil {
		return false, fmt.Errorf("csrf: redis insert: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}

	keys := make([]string, len(tokens))
	members := make([]any, len(tokens))
	for i, t := range tokens {
		keys[i] = tokenKey(t)
		members[i] = t
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		p.ZRem(ctx, redisIndexKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("csrf: redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) MarkUsed(ctx context.Context, token string, issuedAfter time.Time) (bool, error) {
	n, err := markUsedScript.Run(ctx, s.client, []string{tokenKey(token)}, issuedAfter.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("csrf: redis mark used: %w", err)
	}
	return n == 1, nil
}

// List walks the index oldest first. Index members whose hash already expired
// are pruned on the way.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	tokens, err := s.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("csrf: redis list: %w", err)
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(tokens))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, t := range tokens {
			cmds[i] = p.HGetAll(ctx, tokenKey(t))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("csrf: redis list: %w", err)
	}

	out := make([]Record, 0, len(tokens))
	var stale []any
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			stale = append(stale, tokens[i])
			continue
		}
		out = append(out, decodeRecord(tokens[i], data))
	}

	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, redisIndexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("csrf: redis prune index: %w", err)
		}
	}
	return out, nil
}

// Len counts index entries younger than the TTL.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.ttl).UnixMilli()
	if err := s.client.ZRemRangeByScore(ctx, redisIndexKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, fmt.Errorf("csrf: redis prune index: %w", err)
	}

	n, err := s.client.ZCard(ctx, redisIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("csrf: redis len: %w", err)
	}
	return int(n), nil
}

func decodeRecord(token string, data map[string]string) Record {
	rec := Record{
		Token:       token,
		Fingerprint: data["fp"],
		Used:        data["used"] == "1",
	}
	if ms, err := strconv.ParseInt(data["issued_at"], 10, 64); err == nil {
		rec.IssuedAt = time.UnixMilli(ms).UTC()
	}
	return rec
}
