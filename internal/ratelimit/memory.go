package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow keeps the timestamps of accepted attempts per key. Rejected
// attempts are not recorded, so a blocked client regains access exactly one
// window after its oldest accepted attempt.
type SlidingWindow struct {
	config Config
	hits   map[string][]time.Time
	mu     sync.Mutex
	now    func() time.Time
}

func NewSlidingWindow(config Config) *SlidingWindow {
	return &SlidingWindow{
		config: config,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *SlidingWindow) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := prune(l.hits[key], now.Add(-l.config.Window))

	if len(hits) >= l.config.Max {
		l.hits[key] = hits
		return denied(l.config, hits[0].Add(l.config.Window).Sub(now)), nil
	}

	hits = append(hits, now)
	l.hits[key] = hits
	return allowed(l.config, len(hits)), nil
}

// Cleanup drops keys with no attempts inside the window.
func (l *SlidingWindow) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.config.Window)
	for key, hits := range l.hits {
		if hits = prune(hits, cutoff); len(hits) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = hits
		}
	}
}

func (l *SlidingWindow) StartCleanup(ctx context.Context) {
	startCleanup(ctx, l.config.Window, l.Cleanup)
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// FixedWindow counts attempts per key until the window that started with the
// first attempt resets.
type FixedWindow struct {
	config  Config
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

func NewFixedWindow(config Config) *FixedWindow {
	return &FixedWindow{
		config:  config,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *FixedWindow) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.config.Window)}
		l.windows[key] = w
	}

	if w.count >= l.config.Max {
		return denied(l.config, w.resetAt.Sub(now)), nil
	}

	w.count++
	return allowed(l.config, w.count), nil
}

func (l *FixedWindow) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

func (l *FixedWindow) StartCleanup(ctx context.Context) {
	startCleanup(ctx, l.config.Window, l.Cleanup)
}

func startCleanup(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}
