package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // how long until the window resets; 0 when allowed
}

// Limiter throttles booking attempts per identity key using a fixed window:
// at most Max attempts inside any window of Window length, counted from the
// first attempt that opens the window.
type Limiter interface {
	Check(ctx context.Context, key string) (Decision, error)
}
