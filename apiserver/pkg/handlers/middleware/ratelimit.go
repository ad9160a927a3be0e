/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/metrics"
	"github.com/beacon-oncall/beacon/common/pkg/ratelimit"
)

const rateLimitWindow = time.Minute

// NewIngressLimiter builds the per-integration webhook limiter from
// configuration, nil when rate limiting is disabled.
func NewIngressLimiter() *ratelimit.Limiter {
	if !commonconfig.IsRateLimitEnable() {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        commonconfig.GetRedisAddr(),
		Password:    commonconfig.GetRedisPassword(),
		DB:          commonconfig.GetRedisDB(),
		PoolSize:    commonconfig.GetRedisPoolSize(),
		DialTimeout: time.Duration(commonconfig.GetRedisDialTimeoutSecond()) * time.Second,
	})
	return ratelimit.NewLimiter(rdb, commonconfig.GetRateLimitPerMinute(), rateLimitWindow)
}

// RateLimit throttles webhook ingest per integration. Over-limit
// requests get 429 with a retry_after hint pointing at the next window.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		integrationName := c.Param("integrationName")
		allowed, err := limiter.Allow(c.Request.Context(), integrationName)
		if err != nil {
			// Limiter outage already logged, let the request through.
			c.Next()
			return
		}
		if !allowed {
			metrics.IncWebhookRateLimitedCount(integrationName)
			retryAfter := int(time.Until(time.Now().Truncate(rateLimitWindow).Add(rateLimitWindow)).Seconds()) + 1
			apiutils.AbortWithApiError(c, commonerrors.NewRateLimited(retryAfter))
			return
		}
		c.Next()
	}
}
