/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow_handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"k8s.io/klog/v2"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
	jsonutils "github.com/beacon-oncall/beacon/utils/pkg/json"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

const (
	// DefaultQueryLimit caps listings when no limit is given
	DefaultQueryLimit = 50
	// DefaultAnalyticsWindowDay is the analytics lookback when none is given
	DefaultAnalyticsWindowDay = 30
	// MaxAnalyticsWindowDay bounds the analytics lookback
	MaxAnalyticsWindowDay = 365
)

// CreateWorkflow creates a workflow at version 1.
func (h *Handler) CreateWorkflow(c *gin.Context) {
	handle(c, h.createWorkflow)
}

// ListWorkflow lists workflows. Templates are not included.
func (h *Handler) ListWorkflow(c *gin.Context) {
	handle(c, h.listWorkflow)
}

// GetWorkflow returns one workflow with its definition.
func (h *Handler) GetWorkflow(c *gin.Context) {
	handle(c, h.getWorkflow)
}

// UpdateWorkflow updates a workflow, bumping its version.
func (h *Handler) UpdateWorkflow(c *gin.Context) {
	handle(c, h.updateWorkflow)
}

// DeleteWorkflow removes a workflow and its version history.
func (h *Handler) DeleteWorkflow(c *gin.Context) {
	handle(c, h.deleteWorkflow)
}

// ToggleWorkflow flips the enabled flag idempotently.
func (h *Handler) ToggleWorkflow(c *gin.Context) {
	handle(c, h.toggleWorkflow)
}

// DuplicateWorkflow copies a workflow under a new name.
func (h *Handler) DuplicateWorkflow(c *gin.Context) {
	handle(c, h.duplicateWorkflow)
}

// ExportWorkflow returns the portable form of a workflow.
func (h *Handler) ExportWorkflow(c *gin.Context) {
	handle(c, h.exportWorkflow)
}

// ImportWorkflow creates a workflow from an exported document.
func (h *Handler) ImportWorkflow(c *gin.Context) {
	handle(c, h.importWorkflow)
}

// ListVersions lists a workflow's snapshots, newest first.
func (h *Handler) ListVersions(c *gin.Context) {
	handle(c, h.listVersions)
}

// RollbackWorkflow restores an earlier definition as a new version.
func (h *Handler) RollbackWorkflow(c *gin.Context) {
	handle(c, h.rollbackWorkflow)
}

// ExecuteWorkflow enqueues a manual run.
func (h *Handler) ExecuteWorkflow(c *gin.Context) {
	handle(c, h.executeWorkflow)
}

// ListExecutions lists a workflow's executions.
func (h *Handler) ListExecutions(c *gin.Context) {
	handle(c, h.listExecutions)
}

// GetAnalytics aggregates a workflow's executions over a window.
func (h *Handler) GetAnalytics(c *gin.Context) {
	handle(c, h.getAnalytics)
}

func (h *Handler) createWorkflow(c *gin.Context) (interface{}, error) {
	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	definition, err := validateDefinition(req.Definition)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	record := &dbclient.Workflow{
		Name:        req.Name,
		Description: dbutils.NullString(req.Description),
		Scope:       req.Scope,
		Enabled:     req.Enabled,
		Definition:  definition,
		CreatedBy:   dbutils.NullString(apiutils.RequestUser(c)),
	}
	if req.Scope == string(constvar.ScopeTeam) {
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

	id, err := h.dbClient.InsertWorkflow(ctx, record, "created")
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to create workflow")
	}
	klog.Infof("workflow %d %q created", id, req.Name)

	c.Status(http.StatusCreated)
	return convertToWorkflowResponseItem(record, true), nil
}

func (h *Handler) listWorkflow(c *gin.Context) (interface{}, error) {
	req := &ListWorkflowRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = DefaultQueryLimit
	}
	if req.Order == "" {
		req.Order = dbclient.DESC
	}

	tags := dbclient.GetWorkflowFieldTags()
	conditions := sqrl.And{sqrl.Eq{dbclient.GetFieldTag(tags, "IsTemplate"): false}}
	if req.Name != "" {
		conditions = append(conditions, sqrl.ILike{dbclient.GetFieldTag(tags, "Name"): "%" + req.Name + "%"})
	}
	if req.Scope != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Scope"): req.Scope})
	}
	if req.TeamId > 0 {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "TeamId"): req.TeamId})
	}
	if req.Enabled != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Enabled"): req.Enabled == "true"})
	}

	var orderBy []string
	if sortBy := dbclient.GetFieldTag(tags, req.SortBy); sortBy != "" {
		orderBy = append(orderBy, sortBy+" "+req.Order)
	}
	createTime := dbclient.GetFieldTag(tags, "CreateTime")
	if len(orderBy) == 0 || !strings.Contains(orderBy[0], createTime) {
		orderBy = append(orderBy, createTime+" "+dbclient.DESC)
	}

	totalCount, err := h.dbClient.CountWorkflows(c.Request.Context(), conditions)
	if err != nil {
		klog.ErrorS(err, "failed to count workflows")
		return nil, commonerrors.NewInternalError("failed to list workflows")
	}
	records, err := h.dbClient.SelectWorkflows(c.Request.Context(), conditions, orderBy, req.Limit, req.Offset)
	if err != nil {
		klog.ErrorS(err, "failed to select workflows")
		return nil, commonerrors.NewInternalError("failed to list workflows")
	}

	items := make([]WorkflowResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToWorkflowResponseItem(record, false))
	}
	return &ListWorkflowResponse{TotalCount: totalCount, Items: items}, nil
}

func (h *Handler) getWorkflow(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	return convertToWorkflowResponseItem(record, true), nil
}

func (h *Handler) updateWorkflow(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	var req UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	if req.Name != "" && req.Name != record.Name {
		if err := h.checkWorkflowName(c, req.Name); err != nil {
			return nil, err
		}
		record.Name = req.Name
	}
	if req.Description != "" {
		record.Description = dbutils.NullString(req.Description)
	}
	if len(req.Definition) > 0 {
		definition, err := validateDefinition(req.Definition)
		if err != nil {
			return nil, err
		}
		record.Definition = definition
	}
	record.UpdatedBy = dbutils.NullString(apiutils.RequestUser(c))

	changeNote := req.ChangeNote
	if changeNote == "" {
		changeNote = "updated"
	}
	if err := h.dbClient.UpdateWorkflowWithVersion(c.Request.Context(), record, changeNote); err != nil {
		return nil, commonerrors.NewInternalError("failed to update workflow")
	}
	return convertToWorkflowResponseItem(record, true), nil
}

func (h *Handler) deleteWorkflow(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	if err := h.dbClient.DeleteWorkflow(c.Request.Context(), record.Id); err != nil {
		return nil, commonerrors.NewInternalError("failed to delete workflow")
	}
	klog.Infof("workflow %d %q deleted", record.Id, record.Name)
	return gin.H{"id": record.Id}, nil
}

func (h *Handler) toggleWorkflow(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	var req ToggleWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	changed, err := h.dbClient.ToggleWorkflow(c.Request.Context(), record.Id, *req.Enabled, apiutils.RequestUser(c))
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to toggle workflow")
	}
	return &ToggleWorkflowResponse{Id: record.Id, Enabled: *req.Enabled, Changed: changed}, nil
}

func (h *Handler) duplicateWorkflow(c *gin.Context) (interface{}, error) {
	source, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	var req DuplicateWorkflowRequest
	if _, err := apiutils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	name := req.Name
	if name == "" {
		name = source.Name + " (copy)"
	}
	if err := h.checkWorkflowName(c, name); err != nil {
		return nil, err
	}

	// Copies start disabled so a duplicate never fires unreviewed.
	copied := &dbclient.Workflow{
		Name:        name,
		Description: source.Description,
		Scope:       source.Scope,
		TeamId:      source.TeamId,
		Enabled:     false,
		Definition:  source.Definition,
		CreatedBy:   dbutils.NullString(apiutils.RequestUser(c)),
	}
	id, err := h.dbClient.InsertWorkflow(c.Request.Context(), copied, fmt.Sprintf("duplicated from workflow %d", source.Id))
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to duplicate workflow")
	}
	klog.Infof("workflow %d duplicated as %d %q", source.Id, id, name)

	c.Status(http.StatusCreated)
	return convertToWorkflowResponseItem(copied, true), nil
}

func (h *Handler) exportWorkflow(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	doc := &ExportDocument{
		Name:       record.Name,
		Scope:      record.Scope,
		Definition: json.RawMessage(record.Definition),
	}
	if record.Description.Valid {
		doc.Description = record.Description.String
	}
	if record.TeamId.Valid {
		doc.TeamId = record.TeamId.Int64
	}
	if c.Query("format") == "yaml" {
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, commonerrors.NewInternalError("failed to export workflow")
		}
		rendered, err := jsonutils.ParseJsonToYaml(data)
		if err != nil {
			return nil, commonerrors.NewInternalError("failed to export workflow")
		}
		c.Header("Content-Type", common.YamlContentType)
		return rendered, nil
	}
	return doc, nil
}

func (h *Handler) importWorkflow(c *gin.Context) (interface{}, error) {
	doc, err := bindImportDocument(c)
	if err != nil {
		return nil, err
	}
	definition, err := validateDefinition(doc.Definition)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	record := &dbclient.Workflow{
		Name:        doc.Name,
		Description: dbutils.NullString(doc.Description),
		Scope:       doc.Scope,
		Definition:  definition,
		CreatedBy:   dbutils.NullString(apiutils.RequestUser(c)),
	}
	if doc.Scope == string(constvar.ScopeTeam) {
		if doc.TeamId <= 0 {
			return nil, commonerrors.NewBadRequest("teamId is required for team scope")
		}
		if _, err := h.dbClient.GetTeam(ctx, doc.TeamId); err != nil {
			return nil, err
		}
		record.TeamId = dbutils.NullInt64(doc.TeamId)
	}
	if err := h.checkWorkflowName(c, doc.Name); err != nil {
		return nil, err
	}

	id, err := h.dbClient.InsertWorkflow(ctx, record, "imported")
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to import workflow")
	}
	klog.Infof("workflow %d %q imported", id, doc.Name)

	c.Status(http.StatusCreated)
	return convertToWorkflowResponseItem(record, true), nil
}

func (h *Handler) listVersions(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	versions, err := h.dbClient.SelectWorkflowVersions(c.Request.Context(), record.Id)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list workflow versions")
	}
	items := make([]VersionResponseItem, 0, len(versions))
	for _, version := range versions {
		item := VersionResponseItem{
			Version:    version.Version,
			Definition: json.RawMessage(version.Definition),
		}
		if version.ChangeNote.Valid {
			item.ChangeNote = version.ChangeNote.String
		}
		if version.ChangedBy.Valid {
			item.ChangedBy = version.ChangedBy.String
		}
		if version.CreateTime.Valid {
			item.CreateTime = timeutil.FormatRFC3339(version.CreateTime.Time)
		}
		items = append(items, item)
	}
	return gin.H{"versions": items}, nil
}

func (h *Handler) rollbackWorkflow(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	var req RollbackWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if req.Version == record.Version {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("workflow is already at version %d", req.Version))
	}

	ctx := c.Request.Context()
	snapshot, err := h.dbClient.GetWorkflowVersion(ctx, record.Id, req.Version)
	if err != nil {
		return nil, err
	}
	record.Definition = snapshot.Definition
	record.UpdatedBy = dbutils.NullString(apiutils.RequestUser(c))
	changeNote := fmt.Sprintf("rolled back to version %d", req.Version)
	if err := h.dbClient.UpdateWorkflowWithVersion(ctx, record, changeNote); err != nil {
		return nil, commonerrors.NewInternalError("failed to roll back workflow")
	}
	klog.Infof("workflow %d rolled back to version %d, now at version %d", record.Id, req.Version, record.Version)
	return convertToWorkflowResponseItem(record, true), nil
}

func (h *Handler) executeWorkflow(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	if !record.Enabled {
		return nil, commonerrors.NewConflict("workflow is disabled")
	}
	var req ExecuteWorkflowRequest
	if _, err := apiutils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	var incident *dbclient.Incident
	if req.IncidentId > 0 {
		incident, err = h.dbClient.GetIncident(ctx, req.IncidentId)
		if err != nil {
			return nil, err
		}
	}
	executionId, err := h.dispatcher.ExecuteManual(ctx, record, incident)
	if err != nil {
		klog.ErrorS(err, "failed to enqueue manual execution", "workflow", record.Id)
		return nil, commonerrors.NewInternalError("failed to execute workflow")
	}
	klog.Infof("workflow %d manually executed, execution %d", record.Id, executionId)

	c.Status(http.StatusAccepted)
	return &ExecuteWorkflowResponse{ExecutionId: executionId, Status: string(constvar.ExecutionStatusPending)}, nil
}

func (h *Handler) listExecutions(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	req := &ListExecutionRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = DefaultQueryLimit
	}

	tags := dbclient.GetWorkflowExecutionFieldTags()
	conditions := sqrl.And{sqrl.Eq{dbclient.GetFieldTag(tags, "WorkflowId"): record.Id}}
	if req.Status != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Status"): strings.ToUpper(req.Status)})
	}
	orderBy := []string{dbclient.GetFieldTag(tags, "CreateTime") + " " + dbclient.DESC}

	totalCount, err := h.dbClient.CountWorkflowExecutions(c.Request.Context(), conditions)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list workflow executions")
	}
	records, err := h.dbClient.SelectWorkflowExecutions(c.Request.Context(), conditions, orderBy, req.Limit, req.Offset)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list workflow executions")
	}

	items := make([]ExecutionResponseItem, 0, len(records))
	for _, execution := range records {
		items = append(items, convertToExecutionResponseItem(execution))
	}
	return &ListExecutionResponse{TotalCount: totalCount, Items: items}, nil
}

func (h *Handler) getAnalytics(c *gin.Context) (interface{}, error) {
	record, err := h.loadWorkflow(c)
	if err != nil {
		return nil, err
	}
	days := DefaultAnalyticsWindowDay
	if raw := c.Query("days"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil || parsed > MaxAnalyticsWindowDay {
			return nil, commonerrors.NewBadRequest(fmt.Sprintf("days must be between 1 and %d", MaxAnalyticsWindowDay))
		}
		days = parsed
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := h.dbClient.AggregateWorkflowExecutionStats(c.Request.Context(), record.Id, since)
	if err != nil {
		klog.ErrorS(err, "failed to aggregate executions", "workflow", record.Id)
		return nil, commonerrors.NewInternalError("failed to aggregate workflow executions")
	}

	response := &AnalyticsResponse{
		WorkflowId: record.Id,
		WindowDays: days,
		ByStatus:   map[string]int{},
	}
	var terminal, completed int
	var terminalDuration float64
	for _, stat := range stats {
		response.Total += stat.Count
		response.ByStatus[stat.Status] = stat.Count
		if constvar.IsTerminalExecutionStatus(constvar.ExecutionStatus(stat.Status)) {
			terminal += stat.Count
			terminalDuration += stat.AvgDurationSecond * float64(stat.Count)
			if stat.Status == string(constvar.ExecutionStatusCompleted) {
				completed = stat.Count
			}
		}
	}
	if terminal > 0 {
		response.SuccessRate = float64(completed) / float64(terminal)
		response.AvgDurationSecond = terminalDuration / float64(terminal)
	}
	return response, nil
}

// loadWorkflow fetches the :id workflow, hiding template rows from the
// workflow surface.
func (h *Handler) loadWorkflow(c *gin.Context) (*dbclient.Workflow, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	record, err := h.dbClient.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if record.IsTemplate {
		return nil, commonerrors.NewNotFound("workflow", fmt.Sprintf("%d", id))
	}
	return record, nil
}

func (h *Handler) checkWorkflowName(c *gin.Context, name string) error {
	tags := dbclient.GetWorkflowFieldTags()
	count, err := h.dbClient.CountWorkflows(c.Request.Context(), sqrl.Eq{dbclient.GetFieldTag(tags, "Name"): name})
	if err != nil {
		return commonerrors.NewInternalError("failed to check workflow name")
	}
	if count > 0 {
		return commonerrors.NewAlreadyExist(fmt.Sprintf("workflow %q already exists", name))
	}
	return nil
}

// bindImportDocument decodes an export document from the request body.
// YAML bodies are accepted alongside JSON.
func bindImportDocument(c *gin.Context) (*ExportDocument, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, commonerrors.NewBadRequest("failed to read request body")
	}
	if strings.Contains(c.ContentType(), "yaml") {
		obj, err := jsonutils.ParseYamlToJson(string(body))
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid yaml document: " + err.Error())
		}
		body = jsonutils.MarshalSilently(obj)
	}
	var doc ExportDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if doc.Name == "" || len(doc.Definition) == 0 {
		return nil, commonerrors.NewBadRequest("name and definition are required")
	}
	if doc.Scope != string(constvar.ScopeTeam) && doc.Scope != string(constvar.ScopeGlobal) {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown scope %q", doc.Scope))
	}
	return &doc, nil
}

func validateDefinition(raw json.RawMessage) (string, error) {
	definition := string(raw)
	parsed, err := workflow.Parse(definition)
	if err != nil {
		return "", commonerrors.NewBadRequest("definition is not valid JSON: " + err.Error())
	}
	if err := workflow.Validate(parsed); err != nil {
		return "", err
	}
	return definition, nil
}

func parsePositiveInt(raw string) (int, error) {
	var value int
	if _, err := fmt.Sscanf(raw, "%d", &value); err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return value, nil
}

func convertToWorkflowResponseItem(record *dbclient.Workflow, withDefinition bool) WorkflowResponseItem {
	item := WorkflowResponseItem{
		Id:      record.Id,
		Name:    record.Name,
		Scope:   record.Scope,
		Version: record.Version,
		Enabled: record.Enabled,
	}
	if withDefinition {
		item.Definition = json.RawMessage(record.Definition)
	}
	if record.Description.Valid {
		item.Description = record.Description.String
	}
	if record.TeamId.Valid {
		item.TeamId = record.TeamId.Int64
	}
	if record.TemplateCategory.Valid {
		item.TemplateCategory = record.TemplateCategory.String
	}
	if record.CreatedBy.Valid {
		item.CreatedBy = record.CreatedBy.String
	}
	if record.UpdatedBy.Valid {
		item.UpdatedBy = record.UpdatedBy.String
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	if record.UpdateTime.Valid {
		item.UpdateTime = timeutil.FormatRFC3339(record.UpdateTime.Time)
	}
	return item
}

func convertToExecutionResponseItem(record *dbclient.WorkflowExecution) ExecutionResponseItem {
	item := ExecutionResponseItem{
		Id:          record.Id,
		WorkflowId:  record.WorkflowId,
		Status:      record.Status,
		TriggerType: record.TriggerType,
	}
	if record.IncidentId.Valid {
		item.IncidentId = record.IncidentId.Int64
	}
	if record.CurrentNodeId.Valid {
		item.CurrentNodeId = record.CurrentNodeId.String
	}
	if record.CompletedNodes.Valid {
		item.CompletedNodes = json.RawMessage(record.CompletedNodes.String)
	}
	if record.ErrorMessage.Valid {
		item.ErrorMessage = record.ErrorMessage.String
	}
	if record.StartTime.Valid {
		item.StartTime = timeutil.FormatRFC3339(record.StartTime.Time)
	}
	if record.EndTime.Valid {
		item.EndTime = timeutil.FormatRFC3339(record.EndTime.Time)
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	return item
}
