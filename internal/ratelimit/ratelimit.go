// Package ratelimit counts attempts per key inside a time window. Limiters
// are safe for concurrent use; a key's counter is updated atomically.
package ratelimit

import (
	"context"
	"time"
)

// Config defines a rate limit policy.
type Config struct {
	// Max is the number of attempts allowed per window
	Max int
	// Window is the length of the counting window
	Window time.Duration
}

// Decision is the outcome of a single attempt.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func allowed(cfg Config, used int) Decision {
	remaining := cfg.Max - used
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: cfg.Max, Remaining: remaining}
}

func denied(cfg Config, retryAfter time.Duration) Decision {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, Limit: cfg.Max, Remaining: 0, RetryAfter: retryAfter}
}
