package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("interval lock not acquired")
)

// Locker guards the booking critical section for one candidate interval.
// Only attempts targeting the same (schedule, start, end) contend for the
// same key; unrelated bookings proceed in parallel.
type Locker interface {
	WithIntervalLock(ctx context.Context, scheduleID uuid.UUID, start, end time.Time, fn func(ctx context.Context) error) error
}

type redisIntervalLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIntervalLocker creates a locker that uses one Redis key per
// candidate interval. The TTL bounds the critical section; a crashed holder
// frees the interval when the key expires.
func NewRedisIntervalLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisIntervalLocker{
		client: client,
		ttl:    ttl,
	}
}

func lockKey(scheduleID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("lock:interval:%s:%d:%d", scheduleID.String(), start.Unix(), end.Unix())
}

func (l *redisIntervalLocker) WithIntervalLock(ctx context.Context, scheduleID uuid.UUID, start, end time.Time, fn func(ctx context.Context) error) error {
	key := lockKey(scheduleID, start, end)
	token := uuid.NewString()

	// Single attempt: a busy interval means a competitor is mid-commit, and
	// the caller should fail fast rather than queue.
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire interval lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisIntervalLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release interval lock: %w", err)
	}
	return nil
}
