/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TApiKey = "api_keys"
)

var (
	insertApiKeyFormat  = `INSERT INTO ` + TApiKey + ` (%s) VALUES (%s)`
	setApiKeyDeletedCmd = fmt.Sprintf(`UPDATE %s
		SET deleted = true
		WHERE user_id = $1 AND id = $2`, TApiKey)
)

// ApiKeyInterface defines the database operations for service API keys.
type ApiKeyInterface interface {
	InsertApiKey(ctx context.Context, apiKey *ApiKey) error
	SelectApiKeys(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*ApiKey, error)
	CountApiKeys(ctx context.Context, query sqrl.Sqlizer) (int, error)
	GetApiKeyById(ctx context.Context, id int64) (*ApiKey, error)
	GetApiKeyByKey(ctx context.Context, hashedKey string) (*ApiKey, error)
	SetApiKeyDeleted(ctx context.Context, userId string, id int64) error
}

// InsertApiKey stores a new API key record. The ApiKey field must
// already be hashed by the caller.
func (c *Client) InsertApiKey(ctx context.Context, apiKey *ApiKey) error {
	if apiKey == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	if !apiKey.CreationTime.Valid {
		apiKey.CreationTime = dbutils.NullTime(time.Now().UTC())
	}

	_, err = db.NamedExecContext(ctx, generateCommand(*apiKey, insertApiKeyFormat, "id"), apiKey)
	if err != nil {
		klog.ErrorS(err, "failed to insert api key", "name", apiKey.Name)
	}
	return err
}

// SelectApiKeys lists API keys matching the query.
func (c *Client) SelectApiKeys(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*ApiKey, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TApiKey)

	if query != nil {
		builder = builder.Where(query)
	}
	for _, order := range orderBy {
		builder = builder.OrderBy(order)
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var list []*ApiKey
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountApiKeys counts API keys matching the query.
func (c *Client) CountApiKeys(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TApiKey).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// GetApiKeyById gets an API key by id.
func (c *Client) GetApiKeyById(ctx context.Context, id int64) (*ApiKey, error) {
	dbTags := GetApiKeyFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectApiKeys(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("api_key", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// GetApiKeyByKey looks up an API key by its stored hash.
func (c *Client) GetApiKeyByKey(ctx context.Context, hashedKey string) (*ApiKey, error) {
	if hashedKey == "" {
		return nil, commonerrors.NewBadRequest("api key is empty")
	}
	dbTags := GetApiKeyFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "ApiKey"): hashedKey}
	list, err := c.SelectApiKeys(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("api_key", "by key")
	}
	return list[0], nil
}

// SetApiKeyDeleted soft-deletes a user's API key. The row is kept so
// audit history can still resolve the key hint.
func (c *Client) SetApiKeyDeleted(ctx context.Context, userId string, id int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, setApiKeyDeletedCmd, userId, id)
	if err != nil {
		klog.ErrorS(err, "failed to delete api key", "userId", userId, "id", id)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commonerrors.NewNotFound("api_key", fmt.Sprintf("%d", id))
	}
	return nil
}
