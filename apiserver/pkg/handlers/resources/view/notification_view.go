/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package view

// ListNotificationRequest filters the notification outbox. IncidentId
// narrows the listing to escalation notifications of one incident.
type ListNotificationRequest struct {
	IncidentId int64  `form:"incidentId" binding:"omitempty,min=1"`
	Topic      string `form:"topic" binding:"omitempty"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING SENT FAILED"`
}

type ListNotificationResponse struct {
	TotalCount int                        `json:"totalCount"`
	Items      []NotificationResponseItem `json:"items"`
}

type NotificationResponseItem struct {
	Id           int64                  `json:"id"`
	Topic        string                 `json:"topic"`
	Uid          string                 `json:"uid"`
	Status       string                 `json:"status"`
	Retry        int                    `json:"retry"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	SentAt       string                 `json:"sentAt,omitempty"`
	CreateTime   string                 `json:"createTime,omitempty"`
}
