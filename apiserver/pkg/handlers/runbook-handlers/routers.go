/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runbook_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/common"
)

// InitRunbookRouters registers the runbook routes. Approval transitions
// are admin only; other writes need the responder role.
func InitRunbookRouters(e *gin.Engine, h *Handler, auth gin.HandlerFunc) {
	group := e.Group(common.BeaconRouterRootPath+"/runbooks", auth)

	group.GET("", h.ListRunbook)
	group.GET("/:id", h.GetRunbook)
	group.GET("/:id/versions", h.ListVersions)
	group.GET("/:id/executions", h.ListExecutions)

	group.POST("", middleware.RequireWriter(), middleware.Audit("runbook", "create"), h.CreateRunbook)
	group.PUT("/:id", middleware.RequireWriter(), middleware.Audit("runbook", "update"), h.UpdateRunbook)
	group.DELETE("/:id", middleware.RequireWriter(), middleware.Audit("runbook", "delete"), h.DeleteRunbook)
	group.POST("/:id/rollback", middleware.RequireWriter(), middleware.Audit("runbook", "rollback"), h.RollbackRunbook)
	group.POST("/:id/execute", middleware.RequireWriter(), middleware.Audit("runbook", "execute"), h.ExecuteRunbook)

	group.POST("/:id/approve", middleware.RequireAdmin(), middleware.Audit("runbook", "approve"), h.ApproveRunbook)
	group.POST("/:id/deprecate", middleware.RequireAdmin(), middleware.Audit("runbook", "deprecate"), h.DeprecateRunbook)
}
