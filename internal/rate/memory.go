package rate

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a per-process [Limiter] for single-instance deployments.
// Cross-instance exactness is not a goal; each process enforces its own
// budget with the same window semantics as the Redis limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	config  Config
	windows map[string]*window
	now     func() time.Time
}

// NewMemory creates a per-process limiter.
func NewMemory(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  cfg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one attempt for the key within the current fixed window.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.pruneLocked(now)
		w = &window{resetAt: now.Add(l.config.Window)}
		l.windows[key] = w
	}

	w.count++
	if w.count > l.config.MaxAttempts {
		return Result{Limited: true, RetryAfter: w.resetAt.Sub(now)}, nil
	}
	return Result{Remaining: l.config.MaxAttempts - w.count}, nil
}

// Reset clears the counter for the key.
func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	return nil
}

// pruneLocked drops spent windows so the map does not grow with one entry
// per client forever. Called on the window-roll path, which already pays
// for a map write.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
