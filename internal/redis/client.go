package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the shared client. One pool serves both the interval locks
// and the rate-limit counters: every booking attempt costs one SETNX plus a
// release, and every throttled check an INCR, so the pool must be sized for
// the booking endpoint's peak concurrency.
type Options struct {
	Addr     string
	Username string
	Password string
	PoolSize int
}

// New connects and verifies the server is reachable before returning. Lock
// acquisition sits on the booking critical path, so read/write timeouts are
// kept tight rather than relying on the client defaults.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
