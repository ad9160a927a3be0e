/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"encoding/json"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/authority"
	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/resources/view"
	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

// CreateApiKey handles the creation of a new API key for the authenticated user.
func (h *Handler) CreateApiKey(c *gin.Context) {
	handle(c, h.createApiKey)
}

// ListApiKey handles listing API keys for the authenticated user.
func (h *Handler) ListApiKey(c *gin.Context) {
	handle(c, h.listApiKey)
}

// DeleteApiKey handles the soft deletion of an API key.
func (h *Handler) DeleteApiKey(c *gin.Context) {
	handle(c, h.deleteApiKey)
}

func (h *Handler) createApiKey(c *gin.Context) (interface{}, error) {
	userId := c.GetString(common.UserId)
	if userId == "" {
		return nil, commonerrors.NewUnauthorized("user not authenticated")
	}
	userName := c.GetString(common.UserName)

	var req view.CreateApiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if req.TTLDays < 1 || req.TTLDays > authority.MaxTTLDays {
		return nil, commonerrors.NewBadRequest("ttlDays must be between 1 and 366")
	}

	var whitelist []string
	if len(req.Whitelist) > 0 {
		var err error
		whitelist, err = authority.ValidateAndDeduplicateWhitelist(req.Whitelist)
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid whitelist: " + err.Error())
		}
	}

	apiKey, err := authority.GenerateApiKey()
	if err != nil {
		klog.ErrorS(err, "failed to generate api key")
		return nil, commonerrors.NewInternalError("failed to generate API key")
	}

	now := time.Now().UTC()
	expirationTime := now.AddDate(0, 0, req.TTLDays)

	whitelistJSON := "[]"
	if len(whitelist) > 0 {
		whitelistBytes, err := json.Marshal(whitelist)
		if err != nil {
			klog.ErrorS(err, "failed to marshal whitelist")
			return nil, commonerrors.NewInternalError("failed to process whitelist")
		}
		whitelistJSON = string(whitelistBytes)
	}

	// Only the hash is stored; the plaintext leaves in this response and
	// is gone.
	record := &dbclient.ApiKey{
		Name:           req.Name,
		UserId:         userId,
		UserName:       userName,
		ApiKey:         authority.HashApiKey(apiKey, authority.GetApiKeySecret()),
		KeyHint:        authority.GenerateKeyHint(apiKey),
		Whitelist:      whitelistJSON,
		Deleted:        false,
		ExpirationTime: pq.NullTime{Time: expirationTime, Valid: true},
		CreationTime:   pq.NullTime{Time: now, Valid: true},
	}
	if err := h.dbClient.InsertApiKey(c.Request.Context(), record); err != nil {
		klog.ErrorS(err, "failed to insert api key", "name", req.Name, "userId", userId)
		return nil, commonerrors.NewInternalError("failed to create API key")
	}

	klog.Infof("created api key, id: %d, name: %s, userId: %s, expiration: %s",
		record.Id, req.Name, userId, timeutil.FormatRFC3339(expirationTime))

	c.Status(201)
	return &view.CreateApiKeyResponse{
		Id:             record.Id,
		Name:           req.Name,
		UserId:         userId,
		ApiKey:         apiKey,
		ExpirationTime: timeutil.FormatRFC3339(expirationTime),
		CreationTime:   timeutil.FormatRFC3339(now),
		Whitelist:      whitelist,
	}, nil
}

func (h *Handler) listApiKey(c *gin.Context) (interface{}, error) {
	userId := c.GetString(common.UserId)
	if userId == "" {
		return nil, commonerrors.NewUnauthorized("user not authenticated")
	}

	req := &view.ListApiKeyRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = view.DefaultQueryLimit
	}
	if req.Order == "" {
		req.Order = dbclient.DESC
	}
	req.UserId = userId

	// Callers only ever see their own keys, deleted ones excluded.
	tags := dbclient.GetApiKeyFieldTags()
	query := sqrl.And{
		sqrl.Eq{dbclient.GetFieldTag(tags, "UserId"): req.UserId},
		sqrl.Eq{dbclient.GetFieldTag(tags, "Deleted"): false},
	}

	orderBy := []string{dbclient.GetFieldTag(tags, "CreationTime") + " " + dbclient.DESC}
	if req.SortBy != "" {
		if field := dbclient.GetFieldTag(tags, strings.ToLower(req.SortBy)); field != "" {
			orderBy = []string{field + " " + req.Order}
		}
	}

	ctx := c.Request.Context()
	totalCount, err := h.dbClient.CountApiKeys(ctx, query)
	if err != nil {
		klog.ErrorS(err, "failed to count api keys", "userId", userId)
		return nil, commonerrors.NewInternalError("failed to list API keys")
	}
	records, err := h.dbClient.SelectApiKeys(ctx, query, orderBy, req.Limit, req.Offset)
	if err != nil {
		klog.ErrorS(err, "failed to select api keys", "userId", userId)
		return nil, commonerrors.NewInternalError("failed to list API keys")
	}

	items := make([]view.ApiKeyResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToApiKeyResponseItem(record))
	}
	return &view.ListApiKeyResponse{TotalCount: totalCount, Items: items}, nil
}

func (h *Handler) deleteApiKey(c *gin.Context) (interface{}, error) {
	userId := c.GetString(common.UserId)
	if userId == "" {
		return nil, commonerrors.NewUnauthorized("user not authenticated")
	}

	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}

	record, err := h.dbClient.GetApiKeyById(c.Request.Context(), id)
	if err != nil {
		return nil, commonerrors.NewNotFoundWithMessage("API key not found")
	}
	if record.UserId != userId {
		return nil, commonerrors.NewForbidden("not authorized to delete this API key")
	}
	if record.Deleted {
		return nil, commonerrors.NewBadRequest("API key already deleted")
	}

	if err := h.dbClient.SetApiKeyDeleted(c.Request.Context(), userId, id); err != nil {
		klog.ErrorS(err, "failed to delete api key", "id", id, "userId", userId)
		return nil, commonerrors.NewInternalError("failed to delete API key")
	}

	klog.Infof("deleted api key, id: %d, userId: %s", id, userId)
	return nil, nil
}

func convertToApiKeyResponseItem(record *dbclient.ApiKey) view.ApiKeyResponseItem {
	item := view.ApiKeyResponseItem{
		Id:      record.Id,
		Name:    record.Name,
		UserId:  record.UserId,
		KeyHint: authority.FormatKeyHint(record.KeyHint),
		Deleted: record.Deleted,
	}
	if record.ExpirationTime.Valid {
		item.ExpirationTime = timeutil.FormatRFC3339(record.ExpirationTime.Time)
	}
	if record.CreationTime.Valid {
		item.CreationTime = timeutil.FormatRFC3339(record.CreationTime.Time)
	}
	if record.Whitelist != "" && record.Whitelist != "[]" && record.Whitelist != "null" {
		var whitelist []string
		if err := json.Unmarshal([]byte(record.Whitelist), &whitelist); err == nil {
			item.Whitelist = whitelist
		}
	}
	if item.Whitelist == nil {
		item.Whitelist = []string{}
	}
	return item
}
