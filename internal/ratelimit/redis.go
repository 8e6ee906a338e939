package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisSlidingWindow is the distributed counterpart of SlidingWindow. Each
// accepted attempt is a member of a sorted set scored by its timestamp.
type RedisSlidingWindow struct {
	client redis.UniversalClient
	prefix string
	config Config
	now    func() time.Time
}

func NewRedisSlidingWindow(client redis.UniversalClient, prefix string, config Config) *RedisSlidingWindow {
	return &RedisSlidingWindow{client: client, prefix: prefix, config: config, now: time.Now}
}

func (l *RedisSlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + key
	now := l.now()
	member := uuid.NewString()
	cutoff := now.Add(-l.config.Window).UnixMilli()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, k, &redis.Z{Score: float64(now.UnixMilli()), Member: member})
	card := pipe.ZCard(ctx, k)
	pipe.PExpire(ctx, k, l.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("ratelimit: sliding window %s: %w", key, err)
	}

	count := int(card.Val())
	if count <= l.config.Max {
		return allowed(l.config, count), nil
	}

	// over the limit: the attempt does not count
	if err := l.client.ZRem(ctx, k, member).Err(); err != nil {
		return Decision{}, fmt.Errorf("ratelimit: sliding window %s: %w", key, err)
	}

	oldest, err := l.client.ZRangeWithScores(ctx, k, 0, 0).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: sliding window %s: %w", key, err)
	}
	retryAfter := l.config.Window
	if len(oldest) > 0 {
		first := time.UnixMilli(int64(oldest[0].Score))
		retryAfter = first.Add(l.config.Window).Sub(now)
	}
	return denied(l.config, retryAfter), nil
}

// fixedWindowScript counts a hit and starts the window on the first one, in a
// single step. A key left without a TTL is given one.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisFixedWindow is the distributed counterpart of FixedWindow.
type RedisFixedWindow struct {
	client redis.UniversalClient
	prefix string
	config Config
}

func NewRedisFixedWindow(client redis.UniversalClient, prefix string, config Config) *RedisFixedWindow {
	return &RedisFixedWindow{client: client, prefix: prefix, config: config}
}

func (l *RedisFixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + key

	res, err := fixedWindowScript.Run(ctx, l.client, []string{k}, l.config.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: fixed window %s: %w", key, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: fixed window %s: unexpected script reply %v", key, res)
	}

	count, remaining := int(res[0]), time.Duration(res[1])*time.Millisecond
	if count > l.config.Max {
		return denied(l.config, remaining), nil
	}
	return allowed(l.config, count), nil
}
