/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"
)

const keyPrefix = "beacon:ratelimit"

// Limiter is a fixed window counter shared across replicas through redis.
// The window key embeds the window start, so counters expire on their own.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewLimiter creates a limiter allowing limit events per window.
func NewLimiter(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window}
}

// Allow reports whether one more event is allowed for key in the current
// window. Redis failures allow the event, ingest availability wins over
// strict limiting.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := time.Now().Truncate(l.window).Unix()
	counterKey := fmt.Sprintf("%s:%s:%d", keyPrefix, key, windowStart)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		klog.ErrorS(err, "rate limiter unavailable, allowing request", "key", key)
		return true, err
	}
	return incr.Val() <= int64(l.limit), nil
}

// Remaining returns how many events are left in the current window.
func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	windowStart := time.Now().Truncate(l.window).Unix()
	counterKey := fmt.Sprintf("%s:%s:%d", keyPrefix, key, windowStart)

	count, err := l.rdb.Get(ctx, counterKey).Int()
	if err == redis.Nil {
		return l.limit, nil
	}
	if err != nil {
		return 0, err
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
