package revocation

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore fronts another store with an in-process LRU of known revoked
// tokens. Only positive answers are cached: a revocation made by another
// instance must be visible on the next lookup.
type CachedStore struct {
	next  Store
	cache *lru.LRU[string, struct{}]
}

func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: lru.NewLRU[string, struct{}](size, nil, ttl),
	}
}

func (s *CachedStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if _, ok := s.cache.Get(token); ok {
		return true, nil
	}

	revoked, err := s.next.IsRevoked(ctx, token)
	if err != nil {
		return false, err
	}
	if revoked {
		s.cache.Add(token, struct{}{})
	}
	return revoked, nil
}

func (s *CachedStore) Revoke(ctx context.Context, token string) error {
	if err := s.next.Revoke(ctx, token); err != nil {
		return err
	}
	s.cache.Add(token, struct{}{})
	return nil
}

// PurgeExpired forwards to the wrapped store when it supports purging.
func (s *CachedStore) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	p, ok := s.next.(Purger)
	if !ok {
		return 0, nil
	}
	return p.PurgeExpired(ctx, olderThan)
}
