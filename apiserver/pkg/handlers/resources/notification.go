/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/resources/view"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/notification"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

// ListNotification lists the notification outbox, newest first.
func (h *Handler) ListNotification(c *gin.Context) {
	handle(c, h.listNotification)
}

func (h *Handler) listNotification(c *gin.Context) (interface{}, error) {
	req := &view.ListNotificationRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}

	query := notification.Query{
		Topic:  req.Topic,
		Status: req.Status,
	}
	// Escalation uids embed the incident id, so the prefix narrows the
	// outbox to one incident's pages.
	if req.IncidentId > 0 {
		query.UidPrefix = fmt.Sprintf("escalation:%d:", req.IncidentId)
	}

	records, err := h.notifier.List(c.Request.Context(), query)
	if err != nil {
		return nil, err
	}
	items := make([]view.NotificationResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToNotificationResponseItem(record))
	}
	return &view.ListNotificationResponse{TotalCount: len(items), Items: items}, nil
}

func convertToNotificationResponseItem(record *dbclient.Notification) view.NotificationResponseItem {
	item := view.NotificationResponseItem{
		Id:           record.Id,
		Topic:        record.Topic,
		Uid:          record.Uid,
		Status:       record.Status,
		Retry:        record.Retry,
		ErrorMessage: dbutils.ParseNullString(record.ErrorMessage),
	}
	if record.Data != "" {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(record.Data), &data); err == nil {
			item.Data = data
		}
	}
	if record.SentAt.Valid {
		item.SentAt = timeutil.FormatRFC3339(record.SentAt.Time)
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	return item
}
