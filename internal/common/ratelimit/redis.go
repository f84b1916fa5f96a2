package ratelimit

import (
	"context"
	"fmt"
	"time"

	redisplatform "nodeproof-backend/internal/platform/redis"
)

const keyPrefixWindow = "ratelimit:"

// RedisLimiter implements fixed-window counting on a shared Redis instance.
// INCR carries the atomicity; the expiry is attached once with NX semantics
// so concurrent first-requests cannot extend the window.
type RedisLimiter struct {
	client *redisplatform.Client
}

func NewRedisLimiter(client *redisplatform.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func makeWindowKey(identity, action string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefixWindow, action, identity)
}

func (l *RedisLimiter) Check(ctx context.Context, identity, action string, limit Limit) (Result, error) {
	key := makeWindowKey(identity, action)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, limit.Window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to check rate window: %w", err)
	}

	count := incr.Val()
	resetIn := ttl.Val()
	if resetIn < 0 {
		// PTTL raced the ExpireNX in an edge case; fall back to a full window.
		resetIn = limit.Window
	}
	resetAt := time.Now().Add(resetIn)

	remaining := limit.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit.Max),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
