/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/common"
)

// Logger assigns every request an id, echoes it in the X-Request-Id
// response header and writes one access log line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(common.RequestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		c.Set(common.RequestIdHeader, requestId)
		c.Writer.Header().Set(common.RequestIdHeader, requestId)

		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)

		status := c.Writer.Status()
		if status >= 500 {
			klog.ErrorS(nil, "request failed",
				"requestId", requestId,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", status,
				"latency", latency,
				"clientIP", c.ClientIP())
			return
		}
		klog.V(2).InfoS("request completed",
			"requestId", requestId,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"clientIP", c.ClientIP())
	}
}
