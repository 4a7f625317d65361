package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowState struct {
	openedAt time.Time
	count    int
}

type memoryLimiter struct {
	mu     sync.Mutex
	state  map[string]windowState
	window time.Duration
	max    int
	now    func() time.Time
}

// NewMemory returns a fixed-window limiter held in process memory. Counters
// do not survive restarts and are not shared across instances; suitable for
// single-instance deployments and tests.
func NewMemory(window time.Duration, max int) Limiter {
	return &memoryLimiter{
		state:  make(map[string]windowState),
		window: window,
		max:    max,
		now:    time.Now,
	}
}

func (l *memoryLimiter) Check(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	st, ok := l.state[key]
	if !ok || now.Sub(st.openedAt) >= l.window {
		l.state[key] = windowState{openedAt: now, count: 1}
		l.evictExpired(now)
		return Decision{Allowed: true, Remaining: l.max - 1}, nil
	}

	st.count++
	l.state[key] = st

	if st.count > l.max {
		retryAfter := l.window - now.Sub(st.openedAt)
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	return Decision{Allowed: true, Remaining: l.max - st.count}, nil
}

// evictExpired drops closed windows so the map does not grow with every
// identity ever seen. Called while holding the mutex.
func (l *memoryLimiter) evictExpired(now time.Time) {
	if len(l.state) < 1024 {
		return
	}
	for k, st := range l.state {
		if now.Sub(st.openedAt) >= l.window {
			delete(l.state, k)
		}
	}
}
