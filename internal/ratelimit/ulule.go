package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
)

// StoreLimiter adapts a limiter.Store (fixed window) to the Strategy
// contract so the middleware can run on either implementation.
type StoreLimiter struct {
	Store limiter.Store
}

// Allow consumes one token from the store-backed limiter.
func (l StoreLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if l.Store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	lim := limiter.New(l.Store, rate)
	lctx, err := lim.Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !lctx.Reached, int(lctx.Remaining), time.Unix(lctx.Reset, 0), nil
}
