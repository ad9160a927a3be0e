/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runbook_handlers

import "encoding/json"

// CreateRunbookRequest represents the request body for creating a runbook.
// New runbooks always start in DRAFT.
type CreateRunbookRequest struct {
	// Name is the runbook display name, globally unique
	Name string `json:"name" binding:"required,max=256"`
	// Description is optional free text
	Description string `json:"description" binding:"omitempty,max=1024"`
	// WebhookUrl is the endpoint the runbook fires
	WebhookUrl string `json:"webhookUrl" binding:"required,url,max=1024"`
	// HttpMethod is POST, PUT or PATCH
	HttpMethod string `json:"httpMethod" binding:"required,oneof=POST PUT PATCH"`
	// Headers is a JSON object of extra request headers
	Headers json.RawMessage `json:"headers"`
	// AuthType is one of none, bearer, basic, headers
	AuthType string `json:"authType" binding:"omitempty,oneof=none bearer basic headers"`
	// AuthConfig carries the credentials for AuthType; stored encrypted
	AuthConfig json.RawMessage `json:"authConfig"`
	// ParameterSchema is the flat schema execution parameters are checked
	// against
	ParameterSchema json.RawMessage `json:"parameterSchema"`
	// PayloadTemplate is interpolated against the parameters on execute
	PayloadTemplate string `json:"payloadTemplate" binding:"omitempty,max=8192"`
	// TimeoutSecond bounds the webhook call
	TimeoutSecond int `json:"timeoutSecond" binding:"omitempty,min=1,max=900"`
	// TeamId is the owning team; optional
	TeamId int64 `json:"teamId" binding:"omitempty,min=1"`
}

// UpdateRunbookRequest represents the request body for updating a runbook.
// Editing any definition field of an APPROVED runbook demotes it to DRAFT.
type UpdateRunbookRequest struct {
	Name            string          `json:"name" binding:"omitempty,max=256"`
	Description     string          `json:"description" binding:"omitempty,max=1024"`
	WebhookUrl      string          `json:"webhookUrl" binding:"omitempty,url,max=1024"`
	HttpMethod      string          `json:"httpMethod" binding:"omitempty,oneof=POST PUT PATCH"`
	Headers         json.RawMessage `json:"headers"`
	AuthType        string          `json:"authType" binding:"omitempty,oneof=none bearer basic headers"`
	AuthConfig      json.RawMessage `json:"authConfig"`
	ParameterSchema json.RawMessage `json:"parameterSchema"`
	PayloadTemplate *string         `json:"payloadTemplate" binding:"omitempty"`
	TimeoutSecond   int             `json:"timeoutSecond" binding:"omitempty,min=1,max=900"`
	// ChangeNote is recorded on the version snapshot
	ChangeNote string `json:"changeNote" binding:"omitempty,max=1024"`
}

// DeprecateRunbookRequest represents the request body for deprecating a
// runbook
type DeprecateRunbookRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=1024"`
}

// RollbackRunbookRequest represents the request body for rolling a
// runbook back to an earlier version
type RollbackRunbookRequest struct {
	Version int `json:"version" binding:"required,min=1"`
}

// ExecuteRunbookRequest represents the request body for a manual run
type ExecuteRunbookRequest struct {
	// IncidentId scopes the run to an incident; optional
	IncidentId int64 `json:"incidentId" binding:"omitempty,min=1"`
	// Parameters are checked against the runbook's parameter schema
	Parameters map[string]interface{} `json:"parameters"`
}

// ListRunbookRequest represents the query parameters for listing runbooks
type ListRunbookRequest struct {
	Name           string `form:"name"`
	ApprovalStatus string `form:"approvalStatus" binding:"omitempty,oneof=DRAFT APPROVED DEPRECATED"`
	TeamId         int64  `form:"teamId" binding:"omitempty,min=1"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
	Limit          int    `form:"limit" binding:"omitempty,min=1"`
	SortBy         string `form:"sortBy"`
	Order          string `form:"order" binding:"omitempty,oneof=desc asc"`
}

// ListRunbookResponse represents the response for listing runbooks
type ListRunbookResponse struct {
	TotalCount int                   `json:"totalCount"`
	Items      []RunbookResponseItem `json:"items"`
}

// RunbookResponseItem represents one runbook in API responses. The auth
// configuration never leaves the server.
type RunbookResponseItem struct {
	Id              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	WebhookUrl      string          `json:"webhookUrl"`
	HttpMethod      string          `json:"httpMethod"`
	Headers         json.RawMessage `json:"headers,omitempty"`
	AuthType        string          `json:"authType,omitempty"`
	ParameterSchema json.RawMessage `json:"parameterSchema,omitempty"`
	PayloadTemplate string          `json:"payloadTemplate,omitempty"`
	TimeoutSecond   int             `json:"timeoutSecond"`
	TeamId          int64           `json:"teamId,omitempty"`
	Version         int             `json:"version"`
	ApprovalStatus  string          `json:"approvalStatus"`
	ApprovedBy      string          `json:"approvedBy,omitempty"`
	ApprovedAt      string          `json:"approvedAt,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	CreateTime      string          `json:"createTime,omitempty"`
	UpdateTime      string          `json:"updateTime,omitempty"`
}

// RunbookVersionResponseItem represents one version snapshot in API
// responses
type RunbookVersionResponseItem struct {
	Version    int             `json:"version"`
	Definition json.RawMessage `json:"definition"`
	ChangeNote string          `json:"changeNote,omitempty"`
	ChangedBy  string          `json:"changedBy,omitempty"`
	CreateTime string          `json:"createTime,omitempty"`
}

// ListRunbookExecutionRequest represents the query parameters for listing
// a runbook's executions
type ListRunbookExecutionRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING RUNNING SUCCESS FAILED"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}

// ListRunbookExecutionResponse represents the response for listing
// executions
type ListRunbookExecutionResponse struct {
	TotalCount int                            `json:"totalCount"`
	Items      []RunbookExecutionResponseItem `json:"items"`
}

// RunbookExecutionResponseItem represents one execution in API responses
type RunbookExecutionResponseItem struct {
	Id            int64           `json:"id"`
	RunbookId     int64           `json:"runbookId"`
	IncidentId    int64           `json:"incidentId,omitempty"`
	Parameters    json.RawMessage `json:"parameters,omitempty"`
	TriggeredBy   string          `json:"triggeredBy"`
	TriggeredUser string          `json:"triggeredUser,omitempty"`
	Status        string          `json:"status"`
	StatusCode    int64           `json:"statusCode,omitempty"`
	Result        string          `json:"result,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	DurationMs    int64           `json:"durationMs,omitempty"`
	StartTime     string          `json:"startTime,omitempty"`
	EndTime       string          `json:"endTime,omitempty"`
	CreateTime    string          `json:"createTime,omitempty"`
}
