package ratelimit

import (
	"context"
	"time"
)

// Limit describes a fixed-window budget for one action.
type Limit struct {
	Max    int
	Window time.Duration
}

// Result reports the outcome of a limiter check. ResetAt is always set so the
// caller can surface an exact retry moment; no request is dropped silently.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts actions per (identity, action) pair in fixed windows. The
// increment-and-compare must be atomic under concurrent callers for the same
// identity; implementations never hold a lock across I/O.
type Limiter interface {
	Check(ctx context.Context, identity, action string, limit Limit) (Result, error)
}
