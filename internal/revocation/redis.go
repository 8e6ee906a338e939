package revocation

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "healthtrack:revoked:"

// RedisStore keeps revocations as keys with a native TTL, so no sweeper is
// needed. Keys are hashed to keep them short.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke sets the key only if absent; an existing key keeps its original TTL.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	return s.client.SetNX(ctx, key(token), 1, s.ttl).Err()
}

func key(token string) string {
	return redisKeyPrefix + Digest(token)
}
