/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package webhook_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/ratelimit"
)

// InitWebhookRouters registers the ingest surface. The routes live
// outside the authenticated API group: deliveries authenticate with
// their HMAC signature and the test probe is deliberately open.
func InitWebhookRouters(e *gin.Engine, h *Handler, limiter *ratelimit.Limiter) {
	webhooks := e.Group("/webhooks/alerts")
	{
		webhooks.POST("/:integrationName", middleware.RateLimit(limiter), h.Ingest)
		webhooks.GET("/:integrationName/test", h.Test)
	}
}
