package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Window      time.Duration
	MaxAttempts int
}

// Result reports the outcome of one attempt. RetryAfter is meaningful only
// when Limited is true and equals the remaining window.
type Result struct {
	Limited    bool
	RetryAfter time.Duration
	Remaining  int
}

// Limiter bounds attempts per client key within a fixed window.
type Limiter interface {
	// Allow records one attempt for the key and reports whether it is
	// within budget.
	Allow(ctx context.Context, key string) (Result, error)

	// Reset clears the counter for the key.
	Reset(ctx context.Context, key string) error
}

// RedisLimiter enforces the window with shared Redis counters so multiple
// instances see one budget per client key.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedis creates a [RedisLimiter] backed by the given client.
func NewRedis(client redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{redis: client, config: cfg}
}

// Allow increments the key's counter and applies the window TTL on the
// first hit. Over-budget attempts read the key's remaining TTL so the
// caller can surface an exact retry-after.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	counterKey := loginKey(key)

	count, err := l.redis.Incr(ctx, counterKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, counterKey, l.config.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		retryAfter, err := l.redis.PTTL(ctx, counterKey).Result()
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if retryAfter < 0 {
			retryAfter = l.config.Window
		}
		return Result{Limited: true, RetryAfter: retryAfter}, nil
	}

	return Result{Remaining: l.config.MaxAttempts - int(count)}, nil
}

// Reset clears the counter for the key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, loginKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func loginKey(key string) string {
	return "ak:login:" + key
}
