/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package incident_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/common"
)

// InitIncidentRouters registers the incident lifecycle routes.
// Write operations have audit middleware added individually for clarity.
func InitIncidentRouters(e *gin.Engine, h *Handler, auth gin.HandlerFunc) {
	incidents := e.Group(common.BeaconRouterRootPath+"/incidents", auth)
	{
		incidents.GET("", h.ListIncident)
		incidents.GET("/:id", h.GetIncident)
		incidents.GET("/:id/alerts", h.ListIncidentAlerts)
		incidents.POST("/:id/acknowledge", middleware.RequireWriter(), middleware.Audit("incident", "acknowledge"), h.AcknowledgeIncident)
		incidents.POST("/:id/resolve", middleware.RequireWriter(), middleware.Audit("incident", "resolve"), h.ResolveIncident)
		incidents.POST("/:id/assign", middleware.RequireWriter(), middleware.Audit("incident", "assign"), h.AssignIncident)
	}
}
