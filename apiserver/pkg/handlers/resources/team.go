/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/resources/view"
	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/audit"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

// CreateTeam registers a team. Platform admin only.
func (h *Handler) CreateTeam(c *gin.Context) {
	handle(c, h.createTeam)
}

// ListTeam lists teams.
func (h *Handler) ListTeam(c *gin.Context) {
	handle(c, h.listTeam)
}

// GetTeam returns one team.
func (h *Handler) GetTeam(c *gin.Context) {
	handle(c, h.getTeam)
}

// CreateUser registers a user. Platform admin only.
func (h *Handler) CreateUser(c *gin.Context) {
	handle(c, h.createUser)
}

// ListUser lists users.
func (h *Handler) ListUser(c *gin.Context) {
	handle(c, h.listUser)
}

// GetUser returns one user.
func (h *Handler) GetUser(c *gin.Context) {
	handle(c, h.getUser)
}

// UpdateUser changes a user's profile, role, team or active flag.
// Platform admin only.
func (h *Handler) UpdateUser(c *gin.Context) {
	handle(c, h.updateUser)
}

func (h *Handler) createTeam(c *gin.Context) (interface{}, error) {
	var req view.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	if _, err := h.dbClient.GetTeamByName(ctx, req.Name); err == nil {
		return nil, commonerrors.NewAlreadyExist(fmt.Sprintf("team %q already exists", req.Name))
	}

	record := &dbclient.Team{
		Name:        req.Name,
		DisplayName: dbutils.NullString(req.DisplayName),
		Description: dbutils.NullString(req.Description),
	}
	id, err := h.dbClient.InsertTeam(ctx, record)
	if err != nil {
		klog.ErrorS(err, "failed to insert team", "name", req.Name)
		return nil, err
	}
	record.Id = id
	klog.Infof("created team, id: %d, name: %s", id, req.Name)

	h.recorder.Record(ctx, audit.Entry{
		Action:       "team.created",
		Actor:        apiutils.RequestUser(c),
		TeamId:       id,
		ResourceType: "team",
		ResourceId:   audit.ResourceId(id),
		Metadata:     map[string]interface{}{"name": req.Name},
	})

	c.Status(201)
	return convertToTeamResponseItem(record), nil
}

func (h *Handler) listTeam(c *gin.Context) (interface{}, error) {
	req := &view.ListTeamRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = view.DefaultQueryLimit
	}

	tags := dbclient.GetTeamFieldTags()
	var conditions sqrl.And
	if req.Name != "" {
		conditions = append(conditions, sqrl.ILike{dbclient.GetFieldTag(tags, "Name"): "%" + req.Name + "%"})
	}
	orderBy := []string{dbclient.GetFieldTag(tags, "Name") + " " + dbclient.ASC}

	records, err := h.dbClient.SelectTeams(c.Request.Context(), conditions, orderBy, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]view.TeamResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToTeamResponseItem(record))
	}
	return &view.ListTeamResponse{TotalCount: len(items), Items: items}, nil
}

func (h *Handler) getTeam(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	record, err := h.dbClient.GetTeam(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	return convertToTeamResponseItem(record), nil
}

func (h *Handler) createUser(c *gin.Context) (interface{}, error) {
	var req view.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	if _, err := h.dbClient.GetUserByName(ctx, req.UserName); err == nil {
		return nil, commonerrors.NewAlreadyExist(fmt.Sprintf("user %q already exists", req.UserName))
	}

	record := &dbclient.User{
		UserName:    req.UserName,
		DisplayName: dbutils.NullString(req.DisplayName),
		Email:       dbutils.NullString(req.Email),
		Role:        req.Role,
		Active:      true,
	}
	if req.TeamId > 0 {
		if _, err := h.dbClient.GetTeam(ctx, req.TeamId); err != nil {
			return nil, err
		}
		record.TeamId = dbutils.NullInt64(req.TeamId)
	}

	id, err := h.dbClient.InsertUser(ctx, record)
	if err != nil {
		klog.ErrorS(err, "failed to insert user", "userName", req.UserName)
		return nil, err
	}
	record.Id = id
	klog.Infof("created user, id: %d, userName: %s, role: %s", id, req.UserName, req.Role)

	h.recorder.Record(ctx, audit.Entry{
		Action:       "user.created",
		Actor:        apiutils.RequestUser(c),
		TeamId:       req.TeamId,
		ResourceType: "user",
		ResourceId:   audit.ResourceId(id),
		Metadata:     map[string]interface{}{"userName": req.UserName, "role": req.Role},
	})

	c.Status(201)
	return convertToUserResponseItem(record), nil
}

func (h *Handler) listUser(c *gin.Context) (interface{}, error) {
	req := &view.ListUserRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = view.DefaultQueryLimit
	}

	tags := dbclient.GetUserFieldTags()
	var conditions sqrl.And
	if req.UserName != "" {
		conditions = append(conditions, sqrl.ILike{dbclient.GetFieldTag(tags, "UserName"): "%" + req.UserName + "%"})
	}
	if req.Role != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Role"): req.Role})
	}
	if req.TeamId > 0 {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "TeamId"): req.TeamId})
	}
	if req.Active != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Active"): req.Active == "true"})
	}
	orderBy := []string{dbclient.GetFieldTag(tags, "UserName") + " " + dbclient.ASC}

	records, err := h.dbClient.SelectUsers(c.Request.Context(), conditions, orderBy, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]view.UserResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToUserResponseItem(record))
	}
	return &view.ListUserResponse{TotalCount: len(items), Items: items}, nil
}

func (h *Handler) getUser(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	record, err := h.dbClient.GetUser(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	return convertToUserResponseItem(record), nil
}

func (h *Handler) updateUser(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	var req view.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	record, err := h.dbClient.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		record.DisplayName = dbutils.NullString(*req.DisplayName)
	}
	if req.Email != nil {
		record.Email = dbutils.NullString(*req.Email)
	}
	if req.Role != "" {
		record.Role = req.Role
	}
	if req.TeamId != nil {
		if *req.TeamId > 0 {
			if _, err := h.dbClient.GetTeam(ctx, *req.TeamId); err != nil {
				return nil, err
			}
			record.TeamId = dbutils.NullInt64(*req.TeamId)
		} else {
			record.TeamId = dbutils.NullInt64(0)
		}
	}
	if req.Active != nil {
		record.Active = *req.Active
	}

	if err := h.dbClient.UpdateUser(ctx, record); err != nil {
		klog.ErrorS(err, "failed to update user", "id", id)
		return nil, err
	}

	var teamId int64
	if record.TeamId.Valid {
		teamId = record.TeamId.Int64
	}
	h.recorder.Record(ctx, audit.Entry{
		Action:       "user.updated",
		Actor:        apiutils.RequestUser(c),
		TeamId:       teamId,
		ResourceType: "user",
		ResourceId:   audit.ResourceId(id),
		Metadata:     map[string]interface{}{"userName": record.UserName, "role": record.Role, "active": record.Active},
	})
	return convertToUserResponseItem(record), nil
}

func convertToTeamResponseItem(record *dbclient.Team) view.TeamResponseItem {
	item := view.TeamResponseItem{
		Id:          record.Id,
		Name:        record.Name,
		DisplayName: dbutils.ParseNullString(record.DisplayName),
		Description: dbutils.ParseNullString(record.Description),
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	if record.UpdateTime.Valid {
		item.UpdateTime = timeutil.FormatRFC3339(record.UpdateTime.Time)
	}
	return item
}

func convertToUserResponseItem(record *dbclient.User) view.UserResponseItem {
	item := view.UserResponseItem{
		Id:          record.Id,
		UserName:    record.UserName,
		DisplayName: dbutils.ParseNullString(record.DisplayName),
		Email:       dbutils.ParseNullString(record.Email),
		Role:        record.Role,
		Active:      record.Active,
	}
	if record.TeamId.Valid {
		item.TeamId = record.TeamId.Int64
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	if record.UpdateTime.Valid {
		item.UpdateTime = timeutil.FormatRFC3339(record.UpdateTime.Time)
	}
	return item
}
