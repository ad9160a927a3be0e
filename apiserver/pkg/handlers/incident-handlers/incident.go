/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package incident_handlers

import (
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"k8s.io/klog/v2"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/metrics"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

// DefaultQueryLimit caps incident listings when no limit is given.
const DefaultQueryLimit = 50

// maxLinkedAlerts bounds how many alerts a detail view returns.
const maxLinkedAlerts = 500

// ListIncident handles listing incidents with filters and pagination.
func (h *Handler) ListIncident(c *gin.Context) {
	handle(c, h.listIncident)
}

// GetIncident returns one incident with its linked alerts.
func (h *Handler) GetIncident(c *gin.Context) {
	handle(c, h.getIncident)
}

// ListIncidentAlerts lists the alerts grouped onto one incident.
func (h *Handler) ListIncidentAlerts(c *gin.Context) {
	handle(c, h.listIncidentAlerts)
}

// AcknowledgeIncident moves an OPEN incident to ACKNOWLEDGED and stops
// its escalation timers.
func (h *Handler) AcknowledgeIncident(c *gin.Context) {
	handle(c, h.acknowledgeIncident)
}

// ResolveIncident moves an incident to RESOLVED and stops its
// escalation timers.
func (h *Handler) ResolveIncident(c *gin.Context) {
	handle(c, h.resolveIncident)
}

// AssignIncident sets the assigned responder.
func (h *Handler) AssignIncident(c *gin.Context) {
	handle(c, h.assignIncident)
}

func (h *Handler) listIncident(c *gin.Context) (interface{}, error) {
	req, err := parseListIncidentQuery(c)
	if err != nil {
		return nil, err
	}

	tags := dbclient.GetIncidentFieldTags()
	var conditions sqrl.And
	if req.Status != "" {
		conditions = append(conditions, inCondition(dbclient.GetFieldTag(tags, "Status"), req.Status))
	}
	if req.Severity != "" {
		conditions = append(conditions, inCondition(dbclient.GetFieldTag(tags, "Severity"), req.Severity))
	}
	if req.Priority != "" {
		conditions = append(conditions, inCondition(dbclient.GetFieldTag(tags, "Priority"), req.Priority))
	}
	if req.TeamId > 0 {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "TeamId"): req.TeamId})
	}
	if req.Service != "" {
		conditions = append(conditions, sqrl.ILike{dbclient.GetFieldTag(tags, "Service"): "%" + req.Service + "%"})
	}
	if req.AssignedUserId > 0 {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "AssignedUserId"): req.AssignedUserId})
	}
	if req.StartTime != "" {
		startTime, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid startTime format, expected RFC3339")
		}
		conditions = append(conditions, sqrl.GtOrEq{dbclient.GetFieldTag(tags, "CreateTime"): startTime})
	}
	if req.EndTime != "" {
		endTime, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid endTime format, expected RFC3339")
		}
		conditions = append(conditions, sqrl.LtOrEq{dbclient.GetFieldTag(tags, "CreateTime"): endTime})
	}

	var query sqrl.Sqlizer
	if len(conditions) > 0 {
		query = conditions
	}
	orderBy := buildListIncidentOrderBy(req, tags)

	totalCount, err := h.dbClient.CountIncidents(c.Request.Context(), query)
	if err != nil {
		klog.ErrorS(err, "failed to count incidents")
		return nil, commonerrors.NewInternalError("failed to list incidents")
	}
	records, err := h.dbClient.SelectIncidents(c.Request.Context(), query, orderBy, req.Limit, req.Offset)
	if err != nil {
		klog.ErrorS(err, "failed to select incidents")
		return nil, commonerrors.NewInternalError("failed to list incidents")
	}

	items := make([]IncidentResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToIncidentResponseItem(record))
	}
	return &ListIncidentResponse{TotalCount: totalCount, Items: items}, nil
}

func (h *Handler) getIncident(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	incident, err := h.dbClient.GetIncident(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}

	alerts, err := h.selectIncidentAlerts(c, id)
	if err != nil {
		return nil, err
	}
	items := make([]AlertResponseItem, 0, len(alerts))
	for _, alert := range alerts {
		items = append(items, convertToAlertResponseItem(alert))
	}
	return &GetIncidentResponse{
		IncidentResponseItem: convertToIncidentResponseItem(incident),
		Alerts:               items,
	}, nil
}

func (h *Handler) listIncidentAlerts(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	if _, err := h.dbClient.GetIncident(c.Request.Context(), id); err != nil {
		return nil, err
	}

	alerts, err := h.selectIncidentAlerts(c, id)
	if err != nil {
		return nil, err
	}
	items := make([]AlertResponseItem, 0, len(alerts))
	for _, alert := range alerts {
		items = append(items, convertToAlertResponseItem(alert))
	}
	return &ListAlertResponse{TotalCount: len(items), Items: items}, nil
}

func (h *Handler) selectIncidentAlerts(c *gin.Context, incidentId int64) ([]*dbclient.Alert, error) {
	tags := dbclient.GetAlertFieldTags()
	query := sqrl.Eq{dbclient.GetFieldTag(tags, "IncidentId"): incidentId}
	orderBy := []string{dbclient.GetFieldTag(tags, "CreateTime") + " " + dbclient.DESC}
	alerts, err := h.dbClient.SelectAlerts(c.Request.Context(), query, orderBy, maxLinkedAlerts, 0)
	if err != nil {
		klog.ErrorS(err, "failed to select incident alerts", "incidentId", incidentId)
		return nil, commonerrors.NewInternalError("failed to list incident alerts")
	}
	return alerts, nil
}

func (h *Handler) acknowledgeIncident(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	incident, err := h.dbClient.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	user := apiutils.RequestUser(c)
	if err := h.dbClient.AcknowledgeIncident(ctx, id, user); err != nil {
		return nil, err
	}
	h.settleIncident(c, incident, constvar.IncidentStatusAcknowledged)

	updated, err := h.dbClient.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	return convertToIncidentResponseItem(updated), nil
}

func (h *Handler) resolveIncident(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	// The resolution note is optional, an empty body is fine.
	var req ResolveIncidentRequest
	if _, err := apiutils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	incident, err := h.dbClient.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	user := apiutils.RequestUser(c)
	if err := h.dbClient.ResolveIncident(ctx, id, user, req.Note); err != nil {
		return nil, err
	}
	h.settleIncident(c, incident, constvar.IncidentStatusResolved)
	metrics.IncIncidentResolvedCount(incident.Priority)

	updated, err := h.dbClient.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	return convertToIncidentResponseItem(updated), nil
}

// settleIncident runs the shared aftermath of a state change: cancel
// pending escalation timers, sync linked alert statuses and fire
// state-change workflow triggers. Failures are logged, the state change
// itself already committed.
func (h *Handler) settleIncident(c *gin.Context, incident *dbclient.Incident, toStatus constvar.IncidentStatus) {
	ctx := c.Request.Context()
	if _, err := h.scheduler.Cancel(ctx, incident.Id); err != nil {
		klog.ErrorS(err, "failed to cancel escalation timers", "incidentId", incident.Id)
	}
	alertStatus := string(constvar.AlertStatusAcknowledged)
	if toStatus == constvar.IncidentStatusResolved {
		alertStatus = string(constvar.AlertStatusResolved)
	}
	if err := h.dbClient.UpdateAlertStatusByIncident(ctx, incident.Id, alertStatus); err != nil {
		klog.ErrorS(err, "failed to sync alert statuses", "incidentId", incident.Id)
	}

	settled := *incident
	settled.Status = string(toStatus)
	if err := h.dispatcher.Dispatch(ctx, &workflow.Event{
		Type:       constvar.TriggerStateChanged,
		Incident:   &settled,
		FromStatus: incident.Status,
		ToStatus:   string(toStatus),
	}); err != nil {
		klog.ErrorS(err, "failed to dispatch state change", "incidentId", incident.Id)
	}
}

func (h *Handler) assignIncident(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	var req AssignIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	if _, err := h.dbClient.GetIncident(ctx, id); err != nil {
		return nil, err
	}
	user, err := h.dbClient.GetUser(ctx, req.UserId)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, commonerrors.NewBadRequest("cannot assign to an inactive user")
	}

	if err := h.dbClient.AssignIncident(ctx, id, req.UserId); err != nil {
		return nil, commonerrors.NewInternalError("failed to assign incident")
	}
	klog.Infof("incident %d assigned to user %s", id, user.UserName)

	updated, err := h.dbClient.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	return convertToIncidentResponseItem(updated), nil
}

// parseListIncidentQuery parses query parameters for listing incidents.
func parseListIncidentQuery(c *gin.Context) (*ListIncidentRequest, error) {
	query := &ListIncidentRequest{}
	if err := c.ShouldBindWith(query, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if query.Limit <= 0 {
		query.Limit = DefaultQueryLimit
	}
	if query.Order == "" {
		query.Order = dbclient.DESC
	}
	if query.SortBy == "" {
		query.SortBy = dbclient.CreateTime
	} else {
		query.SortBy = strings.ToLower(query.SortBy)
	}
	return query, nil
}

// buildListIncidentOrderBy builds the ORDER BY clause for listing incidents.
func buildListIncidentOrderBy(req *ListIncidentRequest, dbTags map[string]string) []string {
	var orderBy []string
	if req.SortBy != "" {
		sortBy := dbclient.GetFieldTag(dbTags, req.SortBy)
		if sortBy != "" {
			orderBy = append(orderBy, sortBy+" "+req.Order)
		}
	}
	// Always add create_time as secondary sort
	createTime := dbclient.GetFieldTag(dbTags, "CreateTime")
	if len(orderBy) == 0 || !strings.Contains(orderBy[0], createTime) {
		orderBy = append(orderBy, createTime+" "+dbclient.DESC)
	}
	return orderBy
}

// inCondition builds an equality or IN condition from a comma-separated
// filter value.
func inCondition(column, raw string) sqrl.Sqlizer {
	values := splitAndTrim(raw)
	if len(values) == 1 {
		return sqrl.Eq{column: values[0]}
	}
	return sqrl.Eq{column: values}
}

// splitAndTrim splits a comma-separated string and trims whitespace from
// each element. Empty strings are filtered out.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// convertToIncidentResponseItem converts a database record to an API
// response item.
func convertToIncidentResponseItem(record *dbclient.Incident) IncidentResponseItem {
	item := IncidentResponseItem{
		Id:           record.Id,
		Title:        record.Title,
		Priority:     record.Priority,
		Severity:     record.Severity,
		Status:       record.Status,
		TeamId:       record.TeamId,
		CurrentLevel: record.CurrentLevel,
		RepeatCycle:  record.RepeatCycle,
		AlertCount:   record.AlertCount,
	}
	if record.Description.Valid {
		item.Description = record.Description.String
	}
	if record.Service.Valid {
		item.Service = record.Service.String
	}
	if record.Source.Valid {
		item.Source = record.Source.String
	}
	if record.AssignedUserId.Valid {
		item.AssignedUserId = record.AssignedUserId.Int64
	}
	if record.EscalationPolicyId.Valid {
		item.EscalationPolicyId = record.EscalationPolicyId.Int64
	}
	if record.AcknowledgedBy.Valid {
		item.AcknowledgedBy = record.AcknowledgedBy.String
	}
	if record.AcknowledgedAt.Valid {
		item.AcknowledgedAt = timeutil.FormatRFC3339(record.AcknowledgedAt.Time)
	}
	if record.ResolvedBy.Valid {
		item.ResolvedBy = record.ResolvedBy.String
	}
	if record.ResolvedAt.Valid {
		item.ResolvedAt = timeutil.FormatRFC3339(record.ResolvedAt.Time)
	}
	if record.ResolutionNote.Valid {
		item.ResolutionNote = record.ResolutionNote.String
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	if record.UpdateTime.Valid {
		item.UpdateTime = timeutil.FormatRFC3339(record.UpdateTime.Time)
	}
	return item
}

// convertToAlertResponseItem converts a database record to an API
// response item.
func convertToAlertResponseItem(record *dbclient.Alert) AlertResponseItem {
	item := AlertResponseItem{
		Id:            record.Id,
		IntegrationId: record.IntegrationId,
		Title:         record.Title,
		Severity:      record.Severity,
		Status:        record.Status,
		Fingerprint:   record.Fingerprint,
	}
	if record.IncidentId.Valid {
		item.IncidentId = record.IncidentId.Int64
	}
	if record.Description.Valid {
		item.Description = record.Description.String
	}
	if record.Source.Valid {
		item.Source = record.Source.String
	}
	if record.Service.Valid {
		item.Service = record.Service.String
	}
	if record.ExternalId.Valid {
		item.ExternalId = record.ExternalId.String
	}
	if record.Tags.Valid {
		item.Tags = record.Tags.String
	}
	if record.Metadata.Valid {
		item.Metadata = record.Metadata.String
	}
	if record.TriggeredAt.Valid {
		item.TriggeredAt = timeutil.FormatRFC3339(record.TriggeredAt.Time)
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	return item
}
