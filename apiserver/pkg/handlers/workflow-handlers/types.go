/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow_handlers

import "encoding/json"

// CreateWorkflowRequest represents the request body for creating a workflow
type CreateWorkflowRequest struct {
	// Name is the workflow display name, globally unique
	Name string `json:"name" binding:"required,max=256"`
	// Description is optional free text
	Description string `json:"description" binding:"omitempty,max=1024"`
	// Scope is team or global
	Scope string `json:"scope" binding:"required,oneof=team global"`
	// TeamId is required for team scope
	TeamId int64 `json:"teamId" binding:"omitempty,min=1"`
	// Enabled arms the workflow for trigger matching
	Enabled bool `json:"enabled"`
	// Definition is the DAG document
	Definition json.RawMessage `json:"definition" binding:"required"`
}

// UpdateWorkflowRequest represents the request body for updating a workflow.
// Any change bumps the version and appends a snapshot.
type UpdateWorkflowRequest struct {
	Name        string          `json:"name" binding:"omitempty,max=256"`
	Description string          `json:"description" binding:"omitempty,max=1024"`
	Definition  json.RawMessage `json:"definition"`
	// ChangeNote is recorded on the version snapshot
	ChangeNote string `json:"changeNote" binding:"omitempty,max=1024"`
}

// ToggleWorkflowRequest represents the request body for toggling a workflow
type ToggleWorkflowRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ToggleWorkflowResponse reports the resulting state. Changed is false
// when the flag already had the requested value.
type ToggleWorkflowResponse struct {
	Id      int64 `json:"id"`
	Enabled bool  `json:"enabled"`
	Changed bool  `json:"changed"`
}

// DuplicateWorkflowRequest represents the request body for duplicating a
// workflow. The copy starts disabled.
type DuplicateWorkflowRequest struct {
	Name string `json:"name" binding:"omitempty,max=256"`
}

// RollbackWorkflowRequest represents the request body for rolling back to
// an earlier version
type RollbackWorkflowRequest struct {
	Version int `json:"version" binding:"required,min=1"`
}

// ExecuteWorkflowRequest represents the request body for a manual run
type ExecuteWorkflowRequest struct {
	// IncidentId scopes the run to an incident; optional
	IncidentId int64 `json:"incidentId" binding:"omitempty,min=1"`
}

// ExecuteWorkflowResponse carries the enqueued execution id
type ExecuteWorkflowResponse struct {
	ExecutionId int64  `json:"executionId"`
	Status      string `json:"status"`
}

// ExportDocument is the portable form of a workflow. Importing one
// yields a workflow whose definition equals the exported one.
type ExportDocument struct {
	Name        string          `json:"name" binding:"required,max=256"`
	Description string          `json:"description,omitempty" binding:"omitempty,max=1024"`
	Scope       string          `json:"scope" binding:"required,oneof=team global"`
	TeamId      int64           `json:"teamId,omitempty" binding:"omitempty,min=1"`
	Definition  json.RawMessage `json:"definition" binding:"required"`
}

// UseTemplateRequest represents the request body for instantiating a
// template into a workflow
type UseTemplateRequest struct {
	Name   string `json:"name" binding:"required,max=256"`
	Scope  string `json:"scope" binding:"omitempty,oneof=team global"`
	TeamId int64  `json:"teamId" binding:"omitempty,min=1"`
}

// SaveTemplateRequest represents the admin request body for creating or
// updating a gallery template
type SaveTemplateRequest struct {
	Name        string          `json:"name" binding:"required,max=256"`
	Description string          `json:"description" binding:"omitempty,max=1024"`
	Category    string          `json:"category" binding:"required,max=32"`
	Definition  json.RawMessage `json:"definition" binding:"required"`
}

// ListWorkflowRequest represents the query parameters for listing workflows
type ListWorkflowRequest struct {
	Name    string `form:"name"`
	Scope   string `form:"scope" binding:"omitempty,oneof=team global"`
	TeamId  int64  `form:"teamId" binding:"omitempty,min=1"`
	Enabled string `form:"enabled" binding:"omitempty,oneof=true false"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
	Limit   int    `form:"limit" binding:"omitempty,min=1"`
	SortBy  string `form:"sortBy"`
	Order   string `form:"order" binding:"omitempty,oneof=desc asc"`
}

// ListWorkflowResponse represents the response for listing workflows
type ListWorkflowResponse struct {
	TotalCount int                    `json:"totalCount"`
	Items      []WorkflowResponseItem `json:"items"`
}

// WorkflowResponseItem represents one workflow in API responses
type WorkflowResponseItem struct {
	Id               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Scope            string          `json:"scope"`
	TeamId           int64           `json:"teamId,omitempty"`
	Version          int             `json:"version"`
	Enabled          bool            `json:"enabled"`
	Definition       json.RawMessage `json:"definition,omitempty"`
	TemplateCategory string          `json:"templateCategory,omitempty"`
	CreatedBy        string          `json:"createdBy,omitempty"`
	UpdatedBy        string          `json:"updatedBy,omitempty"`
	CreateTime       string          `json:"createTime,omitempty"`
	UpdateTime       string          `json:"updateTime,omitempty"`
}

// VersionResponseItem represents one version snapshot in API responses
type VersionResponseItem struct {
	Version    int             `json:"version"`
	Definition json.RawMessage `json:"definition"`
	ChangeNote string          `json:"changeNote,omitempty"`
	ChangedBy  string          `json:"changedBy,omitempty"`
	CreateTime string          `json:"createTime,omitempty"`
}

// ListExecutionRequest represents the query parameters for listing a
// workflow's executions
type ListExecutionRequest struct {
	Status string `form:"status"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}

// ListExecutionResponse represents the response for listing executions
type ListExecutionResponse struct {
	TotalCount int                     `json:"totalCount"`
	Items      []ExecutionResponseItem `json:"items"`
}

// ExecutionResponseItem represents one execution in API responses
type ExecutionResponseItem struct {
	Id             int64           `json:"id"`
	WorkflowId     int64           `json:"workflowId"`
	IncidentId     int64           `json:"incidentId,omitempty"`
	Status         string          `json:"status"`
	TriggerType    string          `json:"triggerType"`
	CurrentNodeId  string          `json:"currentNodeId,omitempty"`
	CompletedNodes json.RawMessage `json:"completedNodes,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	StartTime      string          `json:"startTime,omitempty"`
	EndTime        string          `json:"endTime,omitempty"`
	CreateTime     string          `json:"createTime,omitempty"`
}

// AnalyticsResponse aggregates a workflow's executions over a window
type AnalyticsResponse struct {
	WorkflowId int64 `json:"workflowId"`
	WindowDays int   `json:"windowDays"`
	// Total counts every execution in the window, running ones included
	Total int `json:"total"`
	// ByStatus maps execution status to its count
	ByStatus map[string]int `json:"byStatus"`
	// SuccessRate is completed over terminal executions, 0 when none
	SuccessRate float64 `json:"successRate"`
	// AvgDurationSecond is the mean wall time of terminal executions
	AvgDurationSecond float64 `json:"avgDurationSecond"`
}
