/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package view

// ListAuditLogRequest filters the HTTP-level audit trail.
type ListAuditLogRequest struct {
	Offset       int    `form:"offset" binding:"omitempty,min=0"`
	Limit        int    `form:"limit" binding:"omitempty,min=1"`
	UserId       string `form:"userId" binding:"omitempty"`
	Action       string `form:"action" binding:"omitempty"`
	ResourceType string `form:"resourceType" binding:"omitempty"`
	// StartTime and EndTime bound create_time, RFC3339.
	StartTime string `form:"startTime" binding:"omitempty"`
	EndTime   string `form:"endTime" binding:"omitempty"`
}

type ListAuditLogResponse struct {
	TotalCount int                    `json:"totalCount"`
	Items      []AuditLogResponseItem `json:"items"`
}

type AuditLogResponseItem struct {
	Id             int64  `json:"id"`
	UserId         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	UserType       string `json:"userType,omitempty"`
	ClientIP       string `json:"clientIp,omitempty"`
	HttpMethod     string `json:"httpMethod"`
	RequestPath    string `json:"requestPath"`
	Action         string `json:"action,omitempty"`
	ResourceType   string `json:"resourceType,omitempty"`
	ResourceName   string `json:"resourceName,omitempty"`
	ResponseStatus int    `json:"responseStatus"`
	LatencyMs      int64  `json:"latencyMs,omitempty"`
	TraceId        string `json:"traceId,omitempty"`
	CreateTime     string `json:"createTime,omitempty"`
}

// ListAuditEventRequest filters the domain audit trail.
type ListAuditEventRequest struct {
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	Limit     int    `form:"limit" binding:"omitempty,min=1"`
	Action    string `form:"action" binding:"omitempty"`
	Severity  string `form:"severity" binding:"omitempty,oneof=CRITICAL HIGH MEDIUM LOW INFO"`
	TeamId    int64  `form:"teamId" binding:"omitempty,min=1"`
	StartTime string `form:"startTime" binding:"omitempty"`
	EndTime   string `form:"endTime" binding:"omitempty"`
}

type ListAuditEventResponse struct {
	TotalCount int                      `json:"totalCount"`
	Items      []AuditEventResponseItem `json:"items"`
}

type AuditEventResponseItem struct {
	Id           int64                  `json:"id"`
	Action       string                 `json:"action"`
	Actor        string                 `json:"actor,omitempty"`
	TeamId       int64                  `json:"teamId,omitempty"`
	ResourceType string                 `json:"resourceType,omitempty"`
	ResourceId   string                 `json:"resourceId,omitempty"`
	Severity     string                 `json:"severity"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreateTime   string                 `json:"createTime,omitempty"`
}
