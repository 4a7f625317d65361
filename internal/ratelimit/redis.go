package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
}

// NewRedis returns a fixed-window limiter backed by a shared Redis counter,
// correct across multiple service instances.
func NewRedis(client *redis.Client, window time.Duration, max int) Limiter {
	return &redisLimiter{
		client: client,
		window: window,
		max:    max,
	}
}

func (l *redisLimiter) Check(ctx context.Context, key string) (Decision, error) {
	redisKey := "ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("incr rate limit counter: %w", err)
	}

	// First attempt opens the window; the key expiring closes it.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("expire rate limit counter: %w", err)
		}
	}

	if count > int64(l.max) {
		ttl, err := l.client.PTTL(ctx, redisKey).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("read rate limit ttl: %w", err)
		}
		if ttl < 0 {
			// Counter without expiry (lost EXPIRE after a crash); reset it.
			ttl = l.window
			_ = l.client.Expire(ctx, redisKey, l.window).Err()
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: l.max - int(count)}, nil
}
