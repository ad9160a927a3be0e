/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gotest.tools/assert"
)

func setupLimiter(t *testing.T, limit int, window time.Duration) (*miniredis.Miniredis, *Limiter) {
	t.Helper()
	mr, err := miniredis.Run()
	assert.NilError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewLimiter(client, limit, window)
}

func TestAllowUnderLimit(t *testing.T) {
	_, limiter := setupLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "datadog-prod")
		assert.NilError(t, err)
		assert.Assert(t, ok)
	}
	ok, err := limiter.Allow(ctx, "datadog-prod")
	assert.NilError(t, err)
	assert.Assert(t, !ok)
}

func TestAllowIsPerKey(t *testing.T) {
	_, limiter := setupLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "datadog-prod")
	assert.NilError(t, err)
	assert.Assert(t, ok)

	ok, err = limiter.Allow(ctx, "newrelic-prod")
	assert.NilError(t, err)
	assert.Assert(t, ok)
}

func TestRemaining(t *testing.T) {
	_, limiter := setupLimiter(t, 5, time.Minute)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "datadog-prod")
	assert.NilError(t, err)
	assert.Equal(t, remaining, 5)

	_, err = limiter.Allow(ctx, "datadog-prod")
	assert.NilError(t, err)

	remaining, err = limiter.Remaining(ctx, "datadog-prod")
	assert.NilError(t, err)
	assert.Equal(t, remaining, 4)
}

func TestAllowFailsOpenWhenRedisDown(t *testing.T) {
	mr, limiter := setupLimiter(t, 1, time.Minute)
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "datadog-prod")
	assert.Assert(t, err != nil)
	assert.Assert(t, ok)
}
