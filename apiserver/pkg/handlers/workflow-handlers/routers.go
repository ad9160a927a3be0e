/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/common"
)

// InitWorkflowRouters registers the workflow and template routes.
// Template mutations are restricted to platform admins.
func InitWorkflowRouters(e *gin.Engine, h *Handler, auth gin.HandlerFunc) {
	workflows := e.Group(common.BeaconRouterRootPath+"/workflows", auth)
	{
		workflows.GET("", h.ListWorkflow)
		workflows.GET("/:id", h.GetWorkflow)
		workflows.GET("/:id/export", h.ExportWorkflow)
		workflows.GET("/:id/versions", h.ListVersions)
		workflows.GET("/:id/executions", h.ListExecutions)
		workflows.GET("/:id/analytics", h.GetAnalytics)
		workflows.POST("", middleware.RequireWriter(), middleware.Audit("workflow", "create"), h.CreateWorkflow)
		workflows.POST("/import", middleware.RequireWriter(), middleware.Audit("workflow", "import"), h.ImportWorkflow)
		workflows.PUT("/:id", middleware.RequireWriter(), middleware.Audit("workflow", "update"), h.UpdateWorkflow)
		workflows.PATCH("/:id/toggle", middleware.RequireWriter(), middleware.Audit("workflow", "toggle"), h.ToggleWorkflow)
		workflows.POST("/:id/duplicate", middleware.RequireWriter(), middleware.Audit("workflow", "duplicate"), h.DuplicateWorkflow)
		workflows.POST("/:id/rollback", middleware.RequireWriter(), middleware.Audit("workflow", "rollback"), h.RollbackWorkflow)
		workflows.POST("/:id/execute", middleware.RequireWriter(), middleware.Audit("workflow", "execute"), h.ExecuteWorkflow)
		workflows.DELETE("/:id", middleware.RequireWriter(), middleware.Audit("workflow", "delete"), h.DeleteWorkflow)
	}

	templates := e.Group(common.BeaconRouterRootPath+"/workflow-templates", auth)
	{
		templates.GET("", h.ListTemplates)
		templates.GET("/:id", h.GetTemplate)
		templates.POST("/:id/use", middleware.RequireWriter(), middleware.Audit("workflow_template", "use"), h.UseTemplate)
		templates.POST("", middleware.RequireAdmin(), middleware.Audit("workflow_template", "save"), h.SaveTemplate)
		templates.DELETE("/:id", middleware.RequireAdmin(), middleware.Audit("workflow_template", "delete"), h.DeleteTemplate)
	}
}
