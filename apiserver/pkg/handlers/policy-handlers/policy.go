/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package policy_handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"k8s.io/klog/v2"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/escalation"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

// DefaultQueryLimit caps policy listings when no limit is given.
const DefaultQueryLimit = 50

// CreatePolicy creates a policy with its levels.
func (h *Handler) CreatePolicy(c *gin.Context) {
	handle(c, h.createPolicy)
}

// ListPolicy lists policies.
func (h *Handler) ListPolicy(c *gin.Context) {
	handle(c, h.listPolicy)
}

// GetPolicy returns one policy with its levels.
func (h *Handler) GetPolicy(c *gin.Context) {
	handle(c, h.getPolicy)
}

// UpdatePolicy updates a policy and optionally replaces its levels.
func (h *Handler) UpdatePolicy(c *gin.Context) {
	handle(c, h.updatePolicy)
}

// DeletePolicy removes a policy and its levels.
func (h *Handler) DeletePolicy(c *gin.Context) {
	handle(c, h.deletePolicy)
}

// ListLevels lists a policy's escalation ladder.
func (h *Handler) ListLevels(c *gin.Context) {
	handle(c, h.listLevels)
}

// ReplaceLevels swaps a policy's ladder atomically.
func (h *Handler) ReplaceLevels(c *gin.Context) {
	handle(c, h.replaceLevels)
}

func (h *Handler) createPolicy(c *gin.Context) (interface{}, error) {
	var req CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if err := validateLevels(req.Levels); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	if _, err := h.dbClient.GetTeam(ctx, req.TeamId); err != nil {
		return nil, err
	}
	if err := h.checkPolicyName(c, req.TeamId, req.Name, 0); err != nil {
		return nil, err
	}

	policy := &dbclient.EscalationPolicy{
		Name:        req.Name,
		Description: dbutils.NullString(req.Description),
		TeamId:      req.TeamId,
		RepeatCount: req.RepeatCount,
		IsDefault:   req.IsDefault,
		CreatedBy:   dbutils.NullString(apiutils.RequestUser(c)),
	}
	levels, err := convertToLevelRecords(req.Levels)
	if err != nil {
		return nil, err
	}

	id, err := h.dbClient.InsertEscalationPolicy(ctx, policy, levels)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to create escalation policy")
	}
	// Becoming the default clears the previous default atomically.
	if req.IsDefault {
		if err := h.dbClient.SetDefaultEscalationPolicy(ctx, req.TeamId, id); err != nil {
			return nil, commonerrors.NewInternalError("failed to set default escalation policy")
		}
	}
	klog.Infof("escalation policy %d created for team %d", id, req.TeamId)

	c.Status(http.StatusCreated)
	return h.buildPolicyResponse(c, id)
}

func (h *Handler) listPolicy(c *gin.Context) (interface{}, error) {
	req := &ListPolicyRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = DefaultQueryLimit
	}
	if req.Order == "" {
		req.Order = dbclient.DESC
	}
	if req.SortBy == "" {
		req.SortBy = dbclient.CreateTime
	} else {
		req.SortBy = strings.ToLower(req.SortBy)
	}

	tags := dbclient.GetEscalationPolicyFieldTags()
	var query sqrl.Sqlizer
	if req.TeamId > 0 {
		query = sqrl.Eq{dbclient.GetFieldTag(tags, "TeamId"): req.TeamId}
	}

	var orderBy []string
	if sortBy := dbclient.GetFieldTag(tags, req.SortBy); sortBy != "" {
		orderBy = append(orderBy, sortBy+" "+req.Order)
	}
	createTime := dbclient.GetFieldTag(tags, "CreateTime")
	if len(orderBy) == 0 || !strings.Contains(orderBy[0], createTime) {
		orderBy = append(orderBy, createTime+" "+dbclient.DESC)
	}

	totalCount, err := h.dbClient.CountEscalationPolicies(c.Request.Context(), query)
	if err != nil {
		klog.ErrorS(err, "failed to count escalation policies")
		return nil, commonerrors.NewInternalError("failed to list escalation policies")
	}
	records, err := h.dbClient.SelectEscalationPolicies(c.Request.Context(), query, orderBy, req.Limit, req.Offset)
	if err != nil {
		klog.ErrorS(err, "failed to select escalation policies")
		return nil, commonerrors.NewInternalError("failed to list escalation policies")
	}

	items := make([]PolicyResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToPolicyResponseItem(record, nil))
	}
	return &ListPolicyResponse{TotalCount: totalCount, Items: items}, nil
}

func (h *Handler) getPolicy(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	return h.buildPolicyResponse(c, id)
}

func (h *Handler) updatePolicy(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	var req UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if len(req.Levels) > 0 {
		if err := validateLevels(req.Levels); err != nil {
			return nil, err
		}
	}

	ctx := c.Request.Context()
	policy, err := h.dbClient.GetEscalationPolicy(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" && req.Name != policy.Name {
		if err := h.checkPolicyName(c, policy.TeamId, req.Name, id); err != nil {
			return nil, err
		}
		policy.Name = req.Name
	}
	if req.Description != "" {
		policy.Description = dbutils.NullString(req.Description)
	}
	if req.RepeatCount != nil {
		policy.RepeatCount = *req.RepeatCount
	}
	if req.IsDefault != nil {
		policy.IsDefault = *req.IsDefault
	}
	if err := h.dbClient.UpdateEscalationPolicy(ctx, policy); err != nil {
		return nil, commonerrors.NewInternalError("failed to update escalation policy")
	}
	if req.IsDefault != nil && *req.IsDefault {
		if err := h.dbClient.SetDefaultEscalationPolicy(ctx, policy.TeamId, id); err != nil {
			return nil, commonerrors.NewInternalError("failed to set default escalation policy")
		}
	}

	if len(req.Levels) > 0 {
		levels, err := convertToLevelRecords(req.Levels)
		if err != nil {
			return nil, err
		}
		if err := h.dbClient.ReplaceEscalationLevels(ctx, id, levels); err != nil {
			return nil, commonerrors.NewInternalError("failed to replace escalation levels")
		}
	}
	return h.buildPolicyResponse(c, id)
}

func (h *Handler) deletePolicy(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	if _, err := h.dbClient.GetEscalationPolicy(ctx, id); err != nil {
		return nil, err
	}
	if err := h.dbClient.DeleteEscalationPolicy(ctx, id); err != nil {
		return nil, commonerrors.NewInternalError("failed to delete escalation policy")
	}
	klog.Infof("escalation policy %d deleted", id)
	return gin.H{"id": id}, nil
}

func (h *Handler) listLevels(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	if _, err := h.dbClient.GetEscalationPolicy(ctx, id); err != nil {
		return nil, err
	}
	records, err := h.dbClient.SelectEscalationLevels(ctx, id)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list escalation levels")
	}
	return gin.H{"levels": convertToLevelItems(records)}, nil
}

func (h *Handler) replaceLevels(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	var req ReplaceLevelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if err := validateLevels(req.Levels); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	if _, err := h.dbClient.GetEscalationPolicy(ctx, id); err != nil {
		return nil, err
	}
	levels, err := convertToLevelRecords(req.Levels)
	if err != nil {
		return nil, err
	}
	if err := h.dbClient.ReplaceEscalationLevels(ctx, id, levels); err != nil {
		return nil, commonerrors.NewInternalError("failed to replace escalation levels")
	}
	return h.buildPolicyResponse(c, id)
}

// checkPolicyName rejects a duplicate name within the team. excludeId
// skips the policy being renamed.
func (h *Handler) checkPolicyName(c *gin.Context, teamId int64, name string, excludeId int64) error {
	tags := dbclient.GetEscalationPolicyFieldTags()
	query := sqrl.Eq{
		dbclient.GetFieldTag(tags, "TeamId"): teamId,
		dbclient.GetFieldTag(tags, "Name"):   name,
	}
	existing, err := h.dbClient.SelectEscalationPolicies(c.Request.Context(), query, nil, 1, 0)
	if err != nil {
		return commonerrors.NewInternalError("failed to check policy name")
	}
	if len(existing) > 0 && existing[0].Id != excludeId {
		return commonerrors.NewAlreadyExist(fmt.Sprintf("escalation policy %q already exists in team %d", name, teamId))
	}
	return nil
}

func (h *Handler) buildPolicyResponse(c *gin.Context, id int64) (interface{}, error) {
	ctx := c.Request.Context()
	policy, err := h.dbClient.GetEscalationPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := h.dbClient.SelectEscalationLevels(ctx, id)
	if err != nil {
		return nil, commonerrors.NewInternalError("failed to list escalation levels")
	}
	return convertToPolicyResponseItem(policy, records), nil
}

// validateLevels enforces the ladder shape: numbering dense from 1 and
// every target well formed.
func validateLevels(levels []LevelItem) error {
	var problems []string
	for i, level := range levels {
		if level.Level != i+1 {
			problems = append(problems, fmt.Sprintf("level numbers must be dense starting at 1, got %d at position %d", level.Level, i+1))
			continue
		}
		for _, target := range level.Targets {
			switch constvar.TargetType(target.Type) {
			case constvar.TargetUser, constvar.TargetSchedule:
				if target.Id <= 0 {
					problems = append(problems, fmt.Sprintf("level %d: target type %s requires an id", level.Level, target.Type))
				}
			case constvar.TargetEntireTeam:
			default:
				problems = append(problems, fmt.Sprintf("level %d: unknown target type %q", level.Level, target.Type))
			}
		}
	}
	if len(problems) > 0 {
		return commonerrors.NewValidationFailed("escalation levels are invalid", problems)
	}
	return nil
}

func convertToLevelRecords(items []LevelItem) ([]*dbclient.EscalationLevel, error) {
	records := make([]*dbclient.EscalationLevel, 0, len(items))
	for _, item := range items {
		targets := make([]escalation.Target, 0, len(item.Targets))
		for _, target := range item.Targets {
			targets = append(targets, escalation.Target{
				Type: constvar.TargetType(target.Type),
				Id:   target.Id,
			})
		}
		data, err := json.Marshal(targets)
		if err != nil {
			return nil, commonerrors.NewInternalError("failed to encode targets")
		}
		records = append(records, &dbclient.EscalationLevel{
			Level:         item.Level,
			TimeoutMinute: item.TimeoutMinute,
			Targets:       string(data),
		})
	}
	return records, nil
}

func convertToLevelItems(records []*dbclient.EscalationLevel) []LevelItem {
	items := make([]LevelItem, 0, len(records))
	for _, record := range records {
		item := LevelItem{
			Level:         record.Level,
			TimeoutMinute: record.TimeoutMinute,
		}
		var targets []escalation.Target
		if err := json.Unmarshal([]byte(record.Targets), &targets); err == nil {
			for _, target := range targets {
				item.Targets = append(item.Targets, TargetItem{Type: string(target.Type), Id: target.Id})
			}
		}
		items = append(items, item)
	}
	return items
}

func convertToPolicyResponseItem(record *dbclient.EscalationPolicy, levels []*dbclient.EscalationLevel) PolicyResponseItem {
	item := PolicyResponseItem{
		Id:          record.Id,
		Name:        record.Name,
		TeamId:      record.TeamId,
		RepeatCount: record.RepeatCount,
		IsDefault:   record.IsDefault,
	}
	if record.Description.Valid {
		item.Description = record.Description.String
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
	if levels != nil {
		item.Levels = convertToLevelItems(levels)
	}
	return item
}
