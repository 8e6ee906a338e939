// Package revocation holds the revoked-token stores. A token present in a
// store is never accepted again until the record expires.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Retention is how long a revocation record is kept. It must be at least as
// long as the longest token lifetime.
const Retention = 7 * 24 * time.Hour

type Store interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string) error
}

// Purger is implemented by stores that need an explicit expiry sweep.
type Purger interface {
	PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Digest is the hex SHA-256 of a token. Stores key records by it, so a record
// has a fixed size whatever string a client sends.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
