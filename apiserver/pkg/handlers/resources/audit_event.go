/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"encoding/json"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/resources/view"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

// ListAuditEvent lists the domain audit trail: who approved which
// runbook, which secrets were rotated and so on. Admin only.
func (h *Handler) ListAuditEvent(c *gin.Context) {
	handle(c, h.listAuditEvent)
}

func (h *Handler) listAuditEvent(c *gin.Context) (interface{}, error) {
	req := &view.ListAuditEventRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = view.DefaultQueryLimit
	}

	tags := dbclient.GetAuditEventFieldTags()
	var conditions sqrl.And
	if req.Action != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Action"): req.Action})
	}
	if req.Severity != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Severity"): req.Severity})
	}
	if req.TeamId > 0 {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "TeamId"): req.TeamId})
	}
	createTime := dbclient.GetFieldTag(tags, "CreateTime")
	if req.StartTime != "" {
		startTime, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid startTime format, expected RFC3339")
		}
		conditions = append(conditions, sqrl.GtOrEq{createTime: startTime})
	}
	if req.EndTime != "" {
		endTime, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid endTime format, expected RFC3339")
		}
		conditions = append(conditions, sqrl.LtOrEq{createTime: endTime})
	}

	ctx := c.Request.Context()
	totalCount, err := h.dbClient.CountAuditEvents(ctx, conditions)
	if err != nil {
		return nil, err
	}
	records, err := h.dbClient.SelectAuditEvents(ctx, conditions,
		[]string{createTime + " " + dbclient.DESC}, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	items := make([]view.AuditEventResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToAuditEventResponseItem(record))
	}
	return &view.ListAuditEventResponse{TotalCount: totalCount, Items: items}, nil
}

func convertToAuditEventResponseItem(record *dbclient.AuditEvent) view.AuditEventResponseItem {
	item := view.AuditEventResponseItem{
		Id:           record.Id,
		Action:       record.Action,
		Actor:        dbutils.ParseNullString(record.Actor),
		ResourceType: dbutils.ParseNullString(record.ResourceType),
		ResourceId:   dbutils.ParseNullString(record.ResourceId),
		Severity:     record.Severity,
	}
	if record.TeamId.Valid {
		item.TeamId = record.TeamId.Int64
	}
	if record.Metadata.Valid && record.Metadata.String != "" {
		var metadata map[string]interface{}
		if err := json.Unmarshal([]byte(record.Metadata.String), &metadata); err == nil {
			item.Metadata = metadata
		}
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	return item
}
