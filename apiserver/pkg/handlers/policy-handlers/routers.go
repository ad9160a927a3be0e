/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package policy_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/common"
)

// InitPolicyRouters registers the escalation policy routes.
func InitPolicyRouters(e *gin.Engine, h *Handler, auth gin.HandlerFunc) {
	policies := e.Group(common.BeaconRouterRootPath+"/escalation-policies", auth)
	{
		policies.GET("", h.ListPolicy)
		policies.GET("/:id", h.GetPolicy)
		policies.GET("/:id/levels", h.ListLevels)
		policies.POST("", middleware.RequireWriter(), middleware.Audit("escalation_policy", "create"), h.CreatePolicy)
		policies.PUT("/:id", middleware.RequireWriter(), middleware.Audit("escalation_policy", "update"), h.UpdatePolicy)
		policies.PUT("/:id/levels", middleware.RequireWriter(), middleware.Audit("escalation_policy", "replace_levels"), h.ReplaceLevels)
		policies.DELETE("/:id", middleware.RequireWriter(), middleware.Audit("escalation_policy", "delete"), h.DeletePolicy)
	}
}
