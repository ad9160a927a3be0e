/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runbook_handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"k8s.io/klog/v2"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/runbook"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

const (
	// DefaultQueryLimit caps listings when no limit is given
	DefaultQueryLimit = 50
	// DefaultTimeoutSecond is the webhook timeout when none is given
	DefaultTimeoutSecond = 300
)

// definitionDocument is the executable slice of a runbook frozen into
// version snapshots. Credentials are deliberately left out.
type definitionDocument struct {
	WebhookUrl      string          `json:"webhookUrl"`
	HttpMethod      string          `json:"httpMethod"`
	Headers         json.RawMessage `json:"headers,omitempty"`
	AuthType        string          `json:"authType,omitempty"`
	ParameterSchema json.RawMessage `json:"parameterSchema,omitempty"`
	PayloadTemplate string          `json:"payloadTemplate,omitempty"`
	TimeoutSecond   int             `json:"timeoutSecond"`
}

// CreateRunbook creates a runbook in DRAFT.
func (h *Handler) CreateRunbook(c *gin.Context) {
	handle(c, h.createRunbook)
}

// ListRunbook lists runbooks.
func (h *Handler) ListRunbook(c *gin.Context) {
	handle(c, h.listRunbook)
}

// GetRunbook returns one runbook. Auth credentials are redacted.
func (h *Handler) GetRunbook(c *gin.Context) {
	handle(c, h.getRunbook)
}

// UpdateRunbook updates a runbook. Definition edits demote APPROVED
// runbooks back to DRAFT.
func (h *Handler) UpdateRunbook(c *gin.Context) {
	handle(c, h.updateRunbook)
}

// DeleteRunbook removes a runbook unless an execution is running.
func (h *Handler) DeleteRunbook(c *gin.Context) {
	handle(c, h.deleteRunbook)
}

// ApproveRunbook moves a DRAFT runbook to APPROVED. Admin only.
func (h *Handler) ApproveRunbook(c *gin.Context) {
	handle(c, h.approveRunbook)
}

// DeprecateRunbook retires an APPROVED runbook. Admin only.
func (h *Handler) DeprecateRunbook(c *gin.Context) {
	handle(c, h.deprecateRunbook)
}

// ListVersions lists a runbook's snapshots, newest first.
func (h *Handler) ListVersions(c *gin.Context) {
	handle(c, h.listVersions)
}

// RollbackRunbook restores an earlier definition as a new DRAFT version.
func (h *Handler) RollbackRunbook(c *gin.Context) {
	handle(c, h.rollbackRunbook)
}

// ExecuteRunbook runs an approved runbook on operator request.
func (h *Handler) ExecuteRunbook(c *gin.Context) {
	handle(c, h.executeRunbook)
}

// ListExecutions lists a runbook's executions.
func (h *Handler) ListExecutions(c *gin.Context) {
	handle(c, h.listExecutions)
}

func (h *Handler) createRunbook(c *gin.Context) (interface{}, error) {
	var req CreateRunbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if err := validateHeaders(req.Headers); err != nil {
		return nil, err
	}
	if err := validateSchema(req.ParameterSchema); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	record := &dbclient.Runbook{
		Name:            req.Name,
		Description:     dbutils.NullString(req.Description),
		WebhookUrl:      req.WebhookUrl,
		HttpMethod:      req.HttpMethod,
		PayloadTemplate: dbutils.NullString(req.PayloadTemplate),
		TimeoutSecond:   req.TimeoutSecond,
		ApprovalStatus:  string(constvar.RunbookStatusDraft),
		CreatedBy:       dbutils.NullString(apiutils.RequestUser(c)),
	}
	if record.TimeoutSecond <= 0 {
		record.TimeoutSecond = DefaultTimeoutSecond
	}
	if len(req.Headers) > 0 {
		record.Headers = dbutils.NullString(string(req.Headers))
	}
	if len(req.ParameterSchema) > 0 {
		record.ParameterSchema = dbutils.NullString(string(req.ParameterSchema))
	}
	if err := h.applyAuth(record, req.AuthType, req.AuthConfig); err != nil {
		return nil, err
	}
	if req.TeamId > 0 {
		if _, err := h.dbClient.GetTeam(ctx, req.TeamId); err != nil {
			return nil, err
		}
		record.TeamId = dbutils.NullInt64(req.TeamId)
	}
	if err := h.checkRunbookName(c, req.Name); err != nil {
		return nil, err
	}

	definition, err := marshalDefinition(record)
	if err != nil {
		return nil, err
	}
	id, err := h.dbClient.InsertRunbook(ctx, record, definition)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to create runbook")
	}
	klog.Infof("runbook %d %q created", id, req.Name)

	c.Status(http.StatusCreated)
	return convertToRunbookResponseItem(record), nil
}

func (h *Handler) listRunbook(c *gin.Context) (interface{}, error) {
	req := &ListRunbookRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = DefaultQueryLimit
	}
	if req.Order == "" {
		req.Order = dbclient.DESC
	}

	tags := dbclient.GetRunbookFieldTags()
	conditions := sqrl.And{}
	if req.Name != "" {
		conditions = append(conditions, sqrl.ILike{dbclient.GetFieldTag(tags, "Name"): "%" + req.Name + "%"})
	}
	if req.ApprovalStatus != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "ApprovalStatus"): req.ApprovalStatus})
	}
	if req.TeamId > 0 {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "TeamId"): req.TeamId})
	}
	var query sqrl.Sqlizer
	if len(conditions) > 0 {
		query = conditions
	}

	var orderBy []string
	if sortBy := dbclient.GetFieldTag(tags, req.SortBy); sortBy != "" {
		orderBy = append(orderBy, sortBy+" "+req.Order)
	}
	createTime := dbclient.GetFieldTag(tags, "CreateTime")
	if len(orderBy) == 0 || !strings.Contains(orderBy[0], createTime) {
		orderBy = append(orderBy, createTime+" "+dbclient.DESC)
	}

	totalCount, err := h.dbClient.CountRunbooks(c.Request.Context(), query)
	if err != nil {
		klog.ErrorS(err, "failed to count runbooks")
		return nil, commonerrors.NewInternalError("failed to list runbooks")
	}
	records, err := h.dbClient.SelectRunbooks(c.Request.Context(), query, orderBy, req.Limit, req.Offset)
	if err != nil {
		klog.ErrorS(err, "failed to select runbooks")
		return nil, commonerrors.NewInternalError("failed to list runbooks")
	}

	items := make([]RunbookResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToRunbookResponseItem(record))
	}
	return &ListRunbookResponse{TotalCount: totalCount, Items: items}, nil
}

func (h *Handler) getRunbook(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	return convertToRunbookResponseItem(record), nil
}

func (h *Handler) updateRunbook(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	var req UpdateRunbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if err := validateHeaders(req.Headers); err != nil {
		return nil, err
	}
	if err := validateSchema(req.ParameterSchema); err != nil {
		return nil, err
	}

	if req.Name != "" && req.Name != record.Name {
		if err := h.checkRunbookName(c, req.Name); err != nil {
			return nil, err
		}
		record.Name = req.Name
	}
	if req.Description != "" {
		record.Description = dbutils.NullString(req.Description)
	}

	definitionChanged := false
	if req.WebhookUrl != "" && req.WebhookUrl != record.WebhookUrl {
		record.WebhookUrl = req.WebhookUrl
		definitionChanged = true
	}
	if req.HttpMethod != "" && req.HttpMethod != record.HttpMethod {
		record.HttpMethod = req.HttpMethod
		definitionChanged = true
	}
	if len(req.Headers) > 0 {
		record.Headers = dbutils.NullString(string(req.Headers))
		definitionChanged = true
	}
	if req.AuthType != "" {
		if err := h.applyAuth(record, req.AuthType, req.AuthConfig); err != nil {
			return nil, err
		}
		definitionChanged = true
	}
	if len(req.ParameterSchema) > 0 {
		record.ParameterSchema = dbutils.NullString(string(req.ParameterSchema))
		definitionChanged = true
	}
	if req.PayloadTemplate != nil {
		record.PayloadTemplate = dbutils.NullString(*req.PayloadTemplate)
		definitionChanged = true
	}
	if req.TimeoutSecond > 0 && req.TimeoutSecond != record.TimeoutSecond {
		record.TimeoutSecond = req.TimeoutSecond
		definitionChanged = true
	}

	changeNote := req.ChangeNote
	if changeNote == "" {
		changeNote = "updated"
	}
	if definitionChanged && record.ApprovalStatus != string(constvar.RunbookStatusDraft) {
		demoteNote := fmt.Sprintf("reverted from %s to DRAFT", record.ApprovalStatus)
		record.ApprovalStatus = string(constvar.RunbookStatusDraft)
		record.ApprovedBy.Valid = false
		record.ApprovedAt.Valid = false
		changeNote = changeNote + " (" + demoteNote + ")"
	}

	definition, err := marshalDefinition(record)
	if err != nil {
		return nil, err
	}
	record.Version++
	if err := h.dbClient.UpdateRunbookWithVersion(c.Request.Context(), record, definition, changeNote); err != nil {
		return nil, err
	}
	return convertToRunbookResponseItem(record), nil
}

func (h *Handler) deleteRunbook(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	running, err := h.dbClient.CountRunningRunbookExecutions(ctx, record.Id)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to check runbook executions")
	}
	if running > 0 {
		return nil, commonerrors.NewRunbookActiveExecution(
			fmt.Sprintf("runbook %d has %d running execution(s)", record.Id, running))
	}
	if err := h.dbClient.DeleteRunbook(ctx, record.Id); err != nil {
		return nil, commonerrors.NewInternalError("failed to delete runbook")
	}
	klog.Infof("runbook %d %q deleted", record.Id, record.Name)
	return gin.H{"id": record.Id}, nil
}

func (h *Handler) approveRunbook(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	if record.ApprovalStatus != string(constvar.RunbookStatusDraft) {
		return nil, commonerrors.NewConflict(
			fmt.Sprintf("runbook %q is %s, only DRAFT can be approved", record.Name, record.ApprovalStatus))
	}

	record.ApprovalStatus = string(constvar.RunbookStatusApproved)
	record.ApprovedBy = dbutils.NullString(apiutils.RequestUser(c))
	record.ApprovedAt = dbutils.NullTime(time.Now().UTC())

	definition, err := marshalDefinition(record)
	if err != nil {
		return nil, err
	}
	record.Version++
	if err := h.dbClient.UpdateRunbookWithVersion(c.Request.Context(), record, definition, "approved"); err != nil {
		return nil, err
	}
	klog.Infof("runbook %d %q approved by %s", record.Id, record.Name, record.ApprovedBy.String)
	return convertToRunbookResponseItem(record), nil
}

func (h *Handler) deprecateRunbook(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	var req DeprecateRunbookRequest
	if _, err := apiutils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if record.ApprovalStatus != string(constvar.RunbookStatusApproved) {
		return nil, commonerrors.NewConflict(
			fmt.Sprintf("runbook %q is %s, only APPROVED can be deprecated", record.Name, record.ApprovalStatus))
	}

	record.ApprovalStatus = string(constvar.RunbookStatusDeprecated)
	changeNote := "deprecated"
	if req.Reason != "" {
		changeNote = "deprecated: " + req.Reason
	}

	definition, err := marshalDefinition(record)
	if err != nil {
		return nil, err
	}
	record.Version++
	if err := h.dbClient.UpdateRunbookWithVersion(c.Request.Context(), record, definition, changeNote); err != nil {
		return nil, err
	}
	klog.Infof("runbook %d %q deprecated", record.Id, record.Name)
	return convertToRunbookResponseItem(record), nil
}

func (h *Handler) listVersions(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	versions, err := h.dbClient.SelectRunbookVersions(c.Request.Context(), record.Id)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list runbook versions")
	}
	items := make([]RunbookVersionResponseItem, 0, len(versions))
	for _, version := range versions {
		item := RunbookVersionResponseItem{
			Version:    version.Version,
			Definition: json.RawMessage(version.Definition),
		}
		if version.ChangeNote.Valid {
			item.ChangeNote = version.ChangeNote.String
		}
		if version.ChangedBy.Valid {
			item.ChangedBy = version.ChangedBy.String
		}
		if version.CreateTime.Valid {
			item.CreateTime = timeutil.FormatRFC3339(version.CreateTime.Time)
		}
		items = append(items, item)
	}
	return gin.H{"versions": items}, nil
}

func (h *Handler) rollbackRunbook(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	var req RollbackRunbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if req.Version == record.Version {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("runbook is already at version %d", req.Version))
	}

	ctx := c.Request.Context()
	snapshot, err := h.dbClient.GetRunbookVersion(ctx, record.Id, req.Version)
	if err != nil {
		return nil, err
	}
	var doc definitionDocument
	if err := json.Unmarshal([]byte(snapshot.Definition), &doc); err != nil {
		return nil, commonerrors.NewInternalError("stored definition snapshot is unreadable")
	}
	applyDefinition(record, &doc)

	// Restored definitions always need re-approval.
	record.ApprovalStatus = string(constvar.RunbookStatusDraft)
	record.ApprovedBy.Valid = false
	record.ApprovedAt.Valid = false

	record.Version++
	changeNote := fmt.Sprintf("rolled back to version %d", req.Version)
	if err := h.dbClient.UpdateRunbookWithVersion(ctx, record, snapshot.Definition, changeNote); err != nil {
		return nil, err
	}
	klog.Infof("runbook %d rolled back to version %d, now at version %d", record.Id, req.Version, record.Version)
	return convertToRunbookResponseItem(record), nil
}

func (h *Handler) executeRunbook(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	var req ExecuteRunbookRequest
	if _, err := apiutils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	if req.IncidentId > 0 {
		if _, err := h.dbClient.GetIncident(ctx, req.IncidentId); err != nil {
			return nil, err
		}
	}

	execution, err := h.executor.Execute(ctx, &runbook.Request{
		RunbookId:     id,
		IncidentId:    req.IncidentId,
		Parameters:    req.Parameters,
		TriggeredBy:   constvar.TriggeredByManual,
		TriggeredUser: apiutils.RequestUser(c),
	})
	if err != nil && execution == nil {
		return nil, err
	}
	// A finished-but-failed run still returns its row so the caller sees
	// the upstream status and error.
	if err != nil {
		klog.ErrorS(err, "runbook execution failed", "runbookId", id, "executionId", execution.Id)
	}
	c.Status(http.StatusCreated)
	return convertToRunbookExecutionResponseItem(execution), nil
}

func (h *Handler) listExecutions(c *gin.Context) (interface{}, error) {
	record, err := h.loadRunbook(c)
	if err != nil {
		return nil, err
	}
	req := &ListRunbookExecutionRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = DefaultQueryLimit
	}

	tags := dbclient.GetRunbookExecutionFieldTags()
	conditions := sqrl.And{sqrl.Eq{dbclient.GetFieldTag(tags, "RunbookId"): record.Id}}
	if req.Status != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Status"): req.Status})
	}
	orderBy := []string{dbclient.GetFieldTag(tags, "CreateTime") + " " + dbclient.DESC}

	totalCount, err := h.dbClient.CountRunbookExecutions(c.Request.Context(), conditions)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list runbook executions")
	}
	records, err := h.dbClient.SelectRunbookExecutions(c.Request.Context(), conditions, orderBy, req.Limit, req.Offset)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list runbook executions")
	}

	items := make([]RunbookExecutionResponseItem, 0, len(records))
	for _, execution := range records {
		items = append(items, convertToRunbookExecutionResponseItem(execution))
	}
	return &ListRunbookExecutionResponse{TotalCount: totalCount, Items: items}, nil
}

// applyAuth validates and encrypts the credential payload. Credentials
// are required for every auth type except none.
func (h *Handler) applyAuth(record *dbclient.Runbook, authType string, authConfig json.RawMessage) error {
	if authType == "" || authType == "none" {
		record.AuthType = dbutils.NullString(authType)
		record.AuthConfig.Valid = false
		return nil
	}
	if len(authConfig) == 0 {
		return commonerrors.NewBadRequest(fmt.Sprintf("authConfig is required for auth type %q", authType))
	}
	encrypted, err := h.cipher.Encrypt([]byte(authConfig))
	if err != nil {
		return commonerrors.NewInternalError("failed to encrypt auth config")
	}
	record.AuthType = dbutils.NullString(authType)
	record.AuthConfig = dbutils.NullString(encrypted)
	return nil
}

func (h *Handler) loadRunbook(c *gin.Context) (*dbclient.Runbook, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	return h.dbClient.GetRunbook(c.Request.Context(), id)
}

func (h *Handler) checkRunbookName(c *gin.Context, name string) error {
	tags := dbclient.GetRunbookFieldTags()
	count, err := h.dbClient.CountRunbooks(c.Request.Context(), sqrl.Eq{dbclient.GetFieldTag(tags, "Name"): name})
	if err != nil {
		return commonerrors.NewInternalError("failed to check runbook name")
	}
	if count > 0 {
		return commonerrors.NewAlreadyExist(fmt.Sprintf("runbook %q already exists", name))
	}
	return nil
}

func validateHeaders(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return commonerrors.NewBadRequest("headers must be a JSON object of strings")
	}
	return nil
}

func validateSchema(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if _, err := runbook.ParseSchema(string(raw)); err != nil {
		return err
	}
	return nil
}

func marshalDefinition(record *dbclient.Runbook) (string, error) {
	doc := definitionDocument{
		WebhookUrl:      record.WebhookUrl,
		HttpMethod:      record.HttpMethod,
		PayloadTemplate: dbutils.ParseNullString(record.PayloadTemplate),
		TimeoutSecond:   record.TimeoutSecond,
		AuthType:        dbutils.ParseNullString(record.AuthType),
	}
	if record.Headers.Valid {
		doc.Headers = json.RawMessage(record.Headers.String)
	}
	if record.ParameterSchema.Valid {
		doc.ParameterSchema = json.RawMessage(record.ParameterSchema.String)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", commonerrors.NewInternalError("failed to encode runbook definition")
	}
	return string(data), nil
}

// applyDefinition restores the executable fields from a snapshot. The
// auth credentials are not snapshotted and keep their current value.
func applyDefinition(record *dbclient.Runbook, doc *definitionDocument) {
	record.WebhookUrl = doc.WebhookUrl
	record.HttpMethod = doc.HttpMethod
	record.PayloadTemplate = dbutils.NullString(doc.PayloadTemplate)
	record.TimeoutSecond = doc.TimeoutSecond
	if doc.AuthType != "" {
		record.AuthType = dbutils.NullString(doc.AuthType)
	}
	if len(doc.Headers) > 0 {
		record.Headers = dbutils.NullString(string(doc.Headers))
	} else {
		record.Headers.Valid = false
	}
	if len(doc.ParameterSchema) > 0 {
		record.ParameterSchema = dbutils.NullString(string(doc.ParameterSchema))
	} else {
		record.ParameterSchema.Valid = false
	}
}

func convertToRunbookResponseItem(record *dbclient.Runbook) RunbookResponseItem {
	item := RunbookResponseItem{
		Id:             record.Id,
		Name:           record.Name,
		WebhookUrl:     record.WebhookUrl,
		HttpMethod:     record.HttpMethod,
		TimeoutSecond:  record.TimeoutSecond,
		Version:        record.Version,
		ApprovalStatus: record.ApprovalStatus,
	}
	if record.Description.Valid {
		item.Description = record.Description.String
	}
	if record.Headers.Valid {
		item.Headers = json.RawMessage(record.Headers.String)
	}
	if record.AuthType.Valid {
		item.AuthType = record.AuthType.String
	}
	if record.ParameterSchema.Valid {
		item.ParameterSchema = json.RawMessage(record.ParameterSchema.String)
	}
	if record.PayloadTemplate.Valid {
		item.PayloadTemplate = record.PayloadTemplate.String
	}
	if record.TeamId.Valid {
		item.TeamId = record.TeamId.Int64
	}
	if record.ApprovedBy.Valid {
		item.ApprovedBy = record.ApprovedBy.String
	}
	if record.ApprovedAt.Valid {
		item.ApprovedAt = timeutil.FormatRFC3339(record.ApprovedAt.Time)
	}
	if record.CreatedBy.Valid {
		item.CreatedBy = record.CreatedBy.String
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	if record.UpdateTime.Valid {
		item.UpdateTime = timeutil.FormatRFC3339(record.UpdateTime.Time)
	}
	return item
}

func convertToRunbookExecutionResponseItem(record *dbclient.RunbookExecution) RunbookExecutionResponseItem {
	item := RunbookExecutionResponseItem{
		Id:          record.Id,
		RunbookId:   record.RunbookId,
		TriggeredBy: record.TriggeredBy,
		Status:      record.Status,
	}
	if record.IncidentId.Valid {
		item.IncidentId = record.IncidentId.Int64
	}
	if record.Parameters.Valid {
		item.Parameters = json.RawMessage(record.Parameters.String)
	}
	if record.TriggeredUser.Valid {
		item.TriggeredUser = record.TriggeredUser.String
	}
	if record.StatusCode.Valid {
		item.StatusCode = record.StatusCode.Int64
	}
	if record.Result.Valid {
		item.Result = record.Result.String
	}
	if record.ErrorMessage.Valid {
		item.ErrorMessage = record.ErrorMessage.String
	}
	if record.DurationMs.Valid {
		item.DurationMs = record.DurationMs.Int64
	}
	if record.StartTime.Valid {
		item.StartTime = timeutil.FormatRFC3339(record.StartTime.Time)
	}
	if record.EndTime.Valid {
		item.EndTime = timeutil.FormatRFC3339(record.EndTime.Time)
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	return item
}
