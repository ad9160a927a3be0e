/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package incident_handlers

// ListIncidentRequest represents the query parameters for listing incidents
type ListIncidentRequest struct {
	// Status filters by incident status (comma-separated, e.g., OPEN,ACKNOWLEDGED)
	Status string `form:"status"`
	// Severity filters by severity (comma-separated)
	Severity string `form:"severity"`
	// Priority filters by priority (comma-separated)
	Priority string `form:"priority"`
	// TeamId filters by owning team
	TeamId int64 `form:"teamId" binding:"omitempty,min=1"`
	// Service is a partial match on the affected service
	Service string `form:"service"`
	// AssignedUserId filters by assigned responder
	AssignedUserId int64 `form:"assignedUserId" binding:"omitempty,min=1"`
	// StartTime bounds create_time from below (RFC3339)
	StartTime string `form:"startTime"`
	// EndTime bounds create_time from above (RFC3339)
	EndTime string `form:"endTime"`
	// Offset is the pagination offset
	Offset int `form:"offset" binding:"omitempty,min=0"`
	// Limit is the pagination limit
	Limit int `form:"limit" binding:"omitempty,min=1"`
	// SortBy is the field to sort by (e.g., createTime, priority)
	SortBy string `form:"sortBy"`
	// Order is the sort order (desc or asc)
	Order string `form:"order" binding:"omitempty,oneof=desc asc"`
}

// ListIncidentResponse represents the response for listing incidents
type ListIncidentResponse struct {
	TotalCount int                    `json:"totalCount"`
	Items      []IncidentResponseItem `json:"items"`
}

// IncidentResponseItem represents one incident in API responses
type IncidentResponseItem struct {
	Id                 int64  `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	Priority           string `json:"priority"`
	Severity           string `json:"severity"`
	Status             string `json:"status"`
	TeamId             int64  `json:"teamId"`
	Service            string `json:"service,omitempty"`
	Source             string `json:"source,omitempty"`
	AssignedUserId     int64  `json:"assignedUserId,omitempty"`
	EscalationPolicyId int64  `json:"escalationPolicyId,omitempty"`
	CurrentLevel       int    `json:"currentLevel"`
	RepeatCycle        int    `json:"repeatCycle"`
	AlertCount         int    `json:"alertCount"`
	AcknowledgedBy     string `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt     string `json:"acknowledgedAt,omitempty"`
	ResolvedBy         string `json:"resolvedBy,omitempty"`
	ResolvedAt         string `json:"resolvedAt,omitempty"`
	ResolutionNote     string `json:"resolutionNote,omitempty"`
	CreateTime         string `json:"createTime,omitempty"`
	UpdateTime         string `json:"updateTime,omitempty"`
}

// GetIncidentResponse is the detail view with linked alerts included
type GetIncidentResponse struct {
	IncidentResponseItem
	Alerts []AlertResponseItem `json:"alerts"`
}

// AlertResponseItem represents one alert in API responses
type AlertResponseItem struct {
	Id            int64  `json:"id"`
	IntegrationId int64  `json:"integrationId"`
	IncidentId    int64  `json:"incidentId,omitempty"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Severity      string `json:"severity"`
	Status        string `json:"status"`
	Source        string `json:"source,omitempty"`
	Service       string `json:"service,omitempty"`
	ExternalId    string `json:"externalId,omitempty"`
	Fingerprint   string `json:"fingerprint"`
	Tags          string `json:"tags,omitempty"`
	Metadata      string `json:"metadata,omitempty"`
	TriggeredAt   string `json:"triggeredAt,omitempty"`
	CreateTime    string `json:"createTime,omitempty"`
}

// ListAlertResponse represents the response for listing an incident's alerts
type ListAlertResponse struct {
	TotalCount int                 `json:"totalCount"`
	Items      []AlertResponseItem `json:"items"`
}

// ResolveIncidentRequest represents the resolve request body
type ResolveIncidentRequest struct {
	// Note is an optional free-text resolution note
	Note string `json:"note" binding:"omitempty,max=4096"`
}

// AssignIncidentRequest represents the assign request body
type AssignIncidentRequest struct {
	// UserId is the responder the incident is assigned to
	UserId int64 `json:"userId" binding:"required,min=1"`
}
