/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
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

// ListAuditLog lists the HTTP request audit trail. Admin only.
func (h *Handler) ListAuditLog(c *gin.Context) {
	handle(c, h.listAuditLog)
}

func (h *Handler) listAuditLog(c *gin.Context) (interface{}, error) {
	req := &view.ListAuditLogRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = view.DefaultQueryLimit
	}

	tags := dbclient.GetAuditLogFieldTags()
	var conditions sqrl.And
	if req.UserId != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "UserId"): req.UserId})
	}
	if req.Action != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Action"): req.Action})
	}
	if req.ResourceType != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "ResourceType"): req.ResourceType})
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
	totalCount, err := h.dbClient.CountAuditLogs(ctx, conditions)
	if err != nil {
		return nil, err
	}
	records, err := h.dbClient.SelectAuditLogs(ctx, conditions,
		[]string{createTime + " " + dbclient.DESC}, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	items := make([]view.AuditLogResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToAuditLogResponseItem(record))
	}
	return &view.ListAuditLogResponse{TotalCount: totalCount, Items: items}, nil
}

func convertToAuditLogResponseItem(record *dbclient.AuditLog) view.AuditLogResponseItem {
	item := view.AuditLogResponseItem{
		Id:             record.Id,
		UserId:         record.UserId,
		UserName:       dbutils.ParseNullString(record.UserName),
		UserType:       dbutils.ParseNullString(record.UserType),
		ClientIP:       dbutils.ParseNullString(record.ClientIP),
		HttpMethod:     record.HttpMethod,
		RequestPath:    record.RequestPath,
		Action:         record.Action,
		ResourceType:   dbutils.ParseNullString(record.ResourceType),
		ResourceName:   dbutils.ParseNullString(record.ResourceName),
		ResponseStatus: record.ResponseStatus,
		TraceId:        dbutils.ParseNullString(record.TraceId),
	}
	if record.LatencyMs.Valid {
		item.LatencyMs = record.LatencyMs.Int64
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	return item
}
