/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package view

// SearchAlertRequest is a full-text query over the alert index.
type SearchAlertRequest struct {
	Q        string `form:"q" binding:"omitempty,max=512"`
	Severity string `form:"severity" binding:"omitempty,oneof=CRITICAL HIGH MEDIUM LOW INFO"`
	Service  string `form:"service" binding:"omitempty"`
	TeamId   int64  `form:"teamId" binding:"omitempty,min=1"`
	// Since and Until bound the triggeredAt range, RFC3339. The window
	// defaults to the last seven days.
	Since string `form:"since" binding:"omitempty"`
	Until string `form:"until" binding:"omitempty"`
}

type SearchAlertResponse struct {
	TotalCount int                       `json:"totalCount"`
	Items      []SearchAlertResponseItem `json:"items"`
}

type SearchAlertResponseItem struct {
	AlertId     int64  `json:"alertId"`
	IncidentId  int64  `json:"incidentId,omitempty"`
	TeamId      int64  `json:"teamId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
	Service     string `json:"service,omitempty"`
	Source      string `json:"source,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	TriggeredAt string `json:"triggeredAt,omitempty"`
}
