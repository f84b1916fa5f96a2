package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type window struct {
	count   int
	resetAt int64 // unix nanos
}

// MemoryLimiter is a process-local fixed-window limiter. It backs tests and
// single-instance deployments where Redis is not shared.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	clock   clock.Clock
}

func NewMemoryLimiter(clk clock.Clock) *MemoryLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryLimiter{
		windows: make(map[string]*window),
		clock:   clk,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, identity, action string, limit Limit) (Result, error) {
	key := makeWindowKey(identity, action)
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.UnixNano() >= w.resetAt {
		w = &window{resetAt: now.Add(limit.Window).UnixNano()}
		l.windows[key] = w
	}
	w.count++

	remaining := limit.Max - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   w.count <= limit.Max,
		Remaining: remaining,
		ResetAt:   time.Unix(0, w.resetAt),
	}, nil
}
