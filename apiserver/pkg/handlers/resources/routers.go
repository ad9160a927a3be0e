/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/common"
)

// InitResourceRouters registers the administration routes: integrations,
// teams, users, API keys, audit trails, notifications and alert search.
func InitResourceRouters(e *gin.Engine, h *Handler, auth gin.HandlerFunc) {
	integrations := e.Group(common.BeaconRouterRootPath+"/integrations", auth)
	{
		integrations.GET("", h.ListIntegration)
		integrations.GET("/:id", h.GetIntegration)
		integrations.POST("", middleware.RequireAdmin(), middleware.Audit("integration", "create"), h.CreateIntegration)
		integrations.PUT("/:id", middleware.RequireAdmin(), middleware.Audit("integration", "update"), h.UpdateIntegration)
		integrations.POST("/:id/rotate-secret", middleware.RequireAdmin(), middleware.Audit("integration", "rotate-secret"), h.RotateIntegrationSecret)
		integrations.DELETE("/:id", middleware.RequireAdmin(), middleware.Audit("integration", "delete"), h.DeleteIntegration)
	}

	teams := e.Group(common.BeaconRouterRootPath+"/teams", auth)
	{
		teams.GET("", h.ListTeam)
		teams.GET("/:id", h.GetTeam)
		teams.POST("", middleware.RequireAdmin(), middleware.Audit("team", "create"), h.CreateTeam)
	}

	users := e.Group(common.BeaconRouterRootPath+"/users", auth)
	{
		users.GET("", h.ListUser)
		users.GET("/:id", h.GetUser)
		users.POST("", middleware.RequireAdmin(), middleware.Audit("user", "create"), h.CreateUser)
		users.PUT("/:id", middleware.RequireAdmin(), middleware.Audit("user", "update"), h.UpdateUser)
	}

	apiKeys := e.Group(common.BeaconRouterRootPath+"/apikeys", auth)
	{
		apiKeys.GET("", h.ListApiKey)
		apiKeys.POST("", middleware.Audit("apikey", "create"), h.CreateApiKey)
		apiKeys.DELETE("/:id", middleware.Audit("apikey", "delete"), h.DeleteApiKey)
	}

	auditLogs := e.Group(common.BeaconRouterRootPath+"/audit-logs", auth)
	{
		auditLogs.GET("", middleware.RequireAdmin(), h.ListAuditLog)
	}
	auditEvents := e.Group(common.BeaconRouterRootPath+"/audit-events", auth)
	{
		auditEvents.GET("", middleware.RequireAdmin(), h.ListAuditEvent)
	}

	notifications := e.Group(common.BeaconRouterRootPath+"/notifications", auth)
	{
		notifications.GET("", h.ListNotification)
	}

	searchGroup := e.Group(common.BeaconRouterRootPath+"/search", auth)
	{
		searchGroup.GET("/alerts", h.SearchAlert)
	}
}
