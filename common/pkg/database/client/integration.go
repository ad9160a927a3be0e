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
	TIntegration = "integrations"
)

var (
	insertIntegrationFormat = `INSERT INTO ` + TIntegration + ` (%s) VALUES (%s)`
	updateIntegrationCmd    = fmt.Sprintf(`UPDATE %s
		SET name = :name,
		    provider = :provider,
		    service = :service,
		    signature_header = :signature_header,
		    algorithm = :algorithm,
		    format = :format,
		    prefix = :prefix,
		    timestamp_header = :timestamp_header,
		    timestamp_max_age_second = :timestamp_max_age_second,
		    dedup_window_minute = :dedup_window_minute,
		    active = :active,
		    update_time = :update_time
		WHERE id = :id`, TIntegration)
	rotateIntegrationSecretCmd = fmt.Sprintf(`UPDATE %s
		SET signing_secret = :signing_secret,
		    secret_hint = :secret_hint,
		    update_time = :update_time
		WHERE id = :id`, TIntegration)
	deleteIntegrationCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TIntegration)
)

// IntegrationInterface defines the database operations for webhook integrations.
type IntegrationInterface interface {
	InsertIntegration(ctx context.Context, integration *Integration) (int64, error)
	GetIntegration(ctx context.Context, id int64) (*Integration, error)
	GetIntegrationByName(ctx context.Context, name string) (*Integration, error)
	SelectIntegrations(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Integration, error)
	CountIntegrations(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateIntegration(ctx context.Context, integration *Integration) error
	RotateIntegrationSecret(ctx context.Context, id int64, encryptedSecret, secretHint string) error
	DeleteIntegration(ctx context.Context, id int64) error
}

// InsertIntegration inserts a new integration and returns its id.
func (c *Client) InsertIntegration(ctx context.Context, integration *Integration) (int64, error) {
	if integration == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	integration.CreateTime = dbutils.NullTime(now)
	integration.UpdateTime = dbutils.NullTime(now)

	cmd := generateCommand(*integration, insertIntegrationFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, integration)
	if err != nil {
		klog.ErrorS(err, "failed to insert integration")
		return 0, err
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// GetIntegration gets an integration by id.
func (c *Client) GetIntegration(ctx context.Context, id int64) (*Integration, error) {
	dbTags := GetIntegrationFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectIntegrations(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("integration", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// GetIntegrationByName gets an integration by its unique name.
func (c *Client) GetIntegrationByName(ctx context.Context, name string) (*Integration, error) {
	if name == "" {
		return nil, commonerrors.NewBadRequest("integration name is empty")
	}
	dbTags := GetIntegrationFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Name"): name}
	list, err := c.SelectIntegrations(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewIntegrationNotFound(name)
	}
	return list[0], nil
}

// SelectIntegrations lists integrations matching the query.
func (c *Client) SelectIntegrations(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Integration, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TIntegration).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*Integration
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountIntegrations counts integrations matching the query.
func (c *Client) CountIntegrations(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TIntegration).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateIntegration updates the mutable fields of an integration. The
// signing secret is rotated separately and never travels through here.
func (c *Client) UpdateIntegration(ctx context.Context, integration *Integration) error {
	if integration == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	integration.UpdateTime = dbutils.NullTime(time.Now().UTC())

	_, err = db.NamedExecContext(ctx, updateIntegrationCmd, integration)
	if err != nil {
		klog.ErrorS(err, "failed to update integration", "id", integration.Id)
	}
	return err
}

// RotateIntegrationSecret atomically replaces the stored signing secret.
// Outstanding signatures become invalid as soon as this commits.
func (c *Client) RotateIntegrationSecret(ctx context.Context, id int64, encryptedSecret, secretHint string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	arg := map[string]interface{}{
		"id":             id,
		"signing_secret": encryptedSecret,
		"secret_hint":    secretHint,
		"update_time":    time.Now().UTC(),
	}
	_, err = db.NamedExecContext(ctx, rotateIntegrationSecretCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to rotate integration secret", "id", id)
	}
	return err
}

// DeleteIntegration removes an integration. Delivery history rows keep
// the integration id for forensics.
func (c *Client) DeleteIntegration(ctx context.Context, id int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, deleteIntegrationCmd, id)
	if err != nil {
		klog.ErrorS(err, "failed to delete integration", "id", id)
	}
	return err
}
