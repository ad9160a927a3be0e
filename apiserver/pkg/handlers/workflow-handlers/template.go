/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow_handlers

import (
	"fmt"
	"net/http"
	"strings"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

// ListTemplates lists the template gallery, optionally by category.
func (h *Handler) ListTemplates(c *gin.Context) {
	handle(c, h.listTemplates)
}

// GetTemplate returns one template with its definition.
func (h *Handler) GetTemplate(c *gin.Context) {
	handle(c, h.getTemplate)
}

// UseTemplate instantiates a template into a new workflow.
func (h *Handler) UseTemplate(c *gin.Context) {
	handle(c, h.useTemplate)
}

// SaveTemplate creates or refreshes a gallery template. Admin only.
func (h *Handler) SaveTemplate(c *gin.Context) {
	handle(c, h.saveTemplate)
}

// DeleteTemplate removes a gallery template. Admin only.
func (h *Handler) DeleteTemplate(c *gin.Context) {
	handle(c, h.deleteTemplate)
}

func (h *Handler) listTemplates(c *gin.Context) (interface{}, error) {
	tags := dbclient.GetWorkflowFieldTags()
	conditions := sqrl.And{sqrl.Eq{dbclient.GetFieldTag(tags, "IsTemplate"): true}}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "TemplateCategory"): category})
	}
	orderBy := []string{dbclient.GetFieldTag(tags, "Name") + " " + dbclient.ASC}

	records, err := h.dbClient.SelectWorkflows(c.Request.Context(), conditions, orderBy, DefaultQueryLimit, 0)
	if err != nil {
		klog.ErrorS(err, "failed to select workflow templates")
		return nil, commonerrors.NewInternalError("failed to list workflow templates")
	}
	items := make([]WorkflowResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToWorkflowResponseItem(record, false))
	}
	return gin.H{"items": items}, nil
}

func (h *Handler) getTemplate(c *gin.Context) (interface{}, error) {
	record, err := h.loadTemplate(c)
	if err != nil {
		return nil, err
	}
	return convertToWorkflowResponseItem(record, true), nil
}

func (h *Handler) useTemplate(c *gin.Context) (interface{}, error) {
	template, err := h.loadTemplate(c)
	if err != nil {
		return nil, err
	}
	var req UseTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	scope := req.Scope
	if scope == "" {
		scope = string(constvar.ScopeGlobal)
	}

	ctx := c.Request.Context()
	record := &dbclient.Workflow{
		Name:        req.Name,
		Description: template.Description,
		Scope:       scope,
		Definition:  template.Definition,
		CreatedBy:   dbutils.NullString(apiutils.RequestUser(c)),
	}
	if scope == string(constvar.ScopeTeam) {
		if req.TeamId <= 0 {
			return nil, commonerrors.NewBadRequest("teamId is required for team scope")
		}
		if _, err := h.dbClient.GetTeam(ctx, req.TeamId); err != nil {
			return nil, err
		}
		record.TeamId = dbutils.NullInt64(req.TeamId)
	}
	if err := h.checkWorkflowName(c, req.Name); err != nil {
		return nil, err
	}

	id, err := h.dbClient.InsertWorkflow(ctx, record, fmt.Sprintf("created from template %q", template.Name))
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to create workflow from template")
	}
	klog.Infof("workflow %d %q created from template %d", id, req.Name, template.Id)

	c.Status(http.StatusCreated)
	return convertToWorkflowResponseItem(record, true), nil
}

func (h *Handler) saveTemplate(c *gin.Context) (interface{}, error) {
	var req SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	definition, err := validateDefinition(req.Definition)
	if err != nil {
		return nil, err
	}

	template := &dbclient.Workflow{
		Name:             req.Name,
		Description:      dbutils.NullString(req.Description),
		Scope:            string(constvar.ScopeGlobal),
		Definition:       definition,
		IsTemplate:       true,
		TemplateCategory: dbutils.NullString(req.Category),
		CreatedBy:        dbutils.NullString(apiutils.RequestUser(c)),
	}
	if err := h.dbClient.UpsertWorkflowTemplate(c.Request.Context(), template); err != nil {
		klog.ErrorS(err, "failed to upsert workflow template", "name", req.Name)
		return nil, commonerrors.NewInternalError("failed to save workflow template")
	}
	klog.Infof("workflow template %q saved in category %q", req.Name, req.Category)
	return convertToWorkflowResponseItem(template, true), nil
}

func (h *Handler) deleteTemplate(c *gin.Context) (interface{}, error) {
	record, err := h.loadTemplate(c)
	if err != nil {
		return nil, err
	}
	if err := h.dbClient.DeleteWorkflow(c.Request.Context(), record.Id); err != nil {
		return nil, commonerrors.NewInternalError("failed to delete workflow template")
	}
	klog.Infof("workflow template %d %q deleted", record.Id, record.Name)
	return gin.H{"id": record.Id}, nil
}

// loadTemplate fetches the :id row and requires it to be a template.
func (h *Handler) loadTemplate(c *gin.Context) (*dbclient.Workflow, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	record, err := h.dbClient.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !record.IsTemplate {
		return nil, commonerrors.NewNotFound("workflow_template", fmt.Sprintf("%d", id))
	}
	return record, nil
}
