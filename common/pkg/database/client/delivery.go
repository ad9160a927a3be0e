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
	"github.com/cespare/xxhash/v2"
	"k8s.io/klog/v2"

	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TWebhookDelivery = "webhook_deliveries"
)

var (
	insertWebhookDeliveryFormat = `INSERT INTO ` + TWebhookDelivery + ` (%s) VALUES (%s)`
	acquireIngestLockCmd        = `SELECT pg_advisory_lock($1)`
	releaseIngestLockCmd        = `SELECT pg_advisory_unlock($1)`
)

// DeliveryInterface defines the database operations for webhook delivery receipts.
type DeliveryInterface interface {
	InsertWebhookDelivery(ctx context.Context, delivery *WebhookDelivery) (int64, error)
	SelectWebhookDeliveries(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*WebhookDelivery, error)
	CountWebhookDeliveries(ctx context.Context, query sqrl.Sqlizer) (int, error)
	FindDeliveryByIdempotencyKey(ctx context.Context, integrationId int64, key string, window time.Duration) (*WebhookDelivery, error)
	FindDeliveryByFingerprint(ctx context.Context, integrationId int64, fingerprint string, window time.Duration) (*WebhookDelivery, error)
	WithIngestLock(ctx context.Context, integrationId int64, fingerprint string, fn func(context.Context) error) error
	DeleteWebhookDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ingestLockKey maps (integration, content fingerprint) onto the 64-bit
// advisory lock keyspace.
func ingestLockKey(integrationId int64, fingerprint string) int64 {
	return int64(xxhash.Sum64String(fmt.Sprintf("%d:%s", integrationId, fingerprint)))
}

// WithIngestLock runs fn while holding a session advisory lock on
// (integration, content fingerprint). The ingest pipeline wraps its
// duplicate check and alert insert in it, so two concurrent deliveries
// of the same content serialize instead of both passing the check.
func (c *Client) WithIngestLock(ctx context.Context, integrationId int64, fingerprint string, fn func(context.Context) error) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	// The lock is session-scoped, it has to be taken and released on the
	// same connection.
	conn, err := db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	key := ingestLockKey(integrationId, fingerprint)
	if _, err := conn.ExecContext(ctx, acquireIngestLockCmd, key); err != nil {
		return err
	}
	defer func() {
		// The unlock must run even when ctx is already canceled, or the
		// lock outlives the request on the pooled connection.
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), releaseIngestLockCmd, key); err != nil {
			klog.ErrorS(err, "failed to release ingest lock", "integrationId", integrationId)
		}
	}()
	return fn(ctx)
}

// InsertWebhookDelivery writes the receipt for one inbound request.
// Deliveries are immutable; there is no update path.
func (c *Client) InsertWebhookDelivery(ctx context.Context, delivery *WebhookDelivery) (int64, error) {
	if delivery == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	if !delivery.CreateTime.Valid {
		delivery.CreateTime = dbutils.NullTime(time.Now().UTC())
	}

	cmd := generateCommand(*delivery, insertWebhookDeliveryFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, delivery)
	if err != nil {
		klog.ErrorS(err, "failed to insert webhook delivery", "integrationId", delivery.IntegrationId)
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

// SelectWebhookDeliveries lists delivery receipts matching the query.
func (c *Client) SelectWebhookDeliveries(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*WebhookDelivery, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TWebhookDelivery).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*WebhookDelivery
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountWebhookDeliveries counts delivery receipts matching the query.
func (c *Client) CountWebhookDeliveries(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TWebhookDelivery).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// FindDeliveryByIdempotencyKey finds the most recent successful delivery
// carrying the same idempotency key inside the window. Only deliveries
// that produced an alert count as duplicates.
func (c *Client) FindDeliveryByIdempotencyKey(ctx context.Context, integrationId int64, key string, window time.Duration) (*WebhookDelivery, error) {
	if key == "" {
		return nil, commonerrors.NewBadRequest("idempotency key is empty")
	}
	since := time.Now().UTC().Add(-window)
	query := sqrl.And{
		sqrl.Eq{"integration_id": integrationId},
		sqrl.Eq{"idempotency_key": key},
		sqrl.GtOrEq{"create_time": since},
		sqrl.NotEq{"alert_id": nil},
	}
	list, err := c.SelectWebhookDeliveries(ctx, query, []string{fmt.Sprintf("%s %s", CreateTime, DESC)}, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteWebhookDeliveriesBefore prunes delivery receipts older than the
// cutoff. The retention sweep exports them first when archival is on.
func (c *Client) DeleteWebhookDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Delete(TWebhookDelivery).PlaceholderFormat(sqrl.Dollar).
		Where(sqrl.Lt{CreateTime: cutoff}).ToSql()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, sql, args...)
	if err != nil {
		klog.ErrorS(err, "failed to prune webhook deliveries", "cutoff", cutoff)
		return 0, err
	}
	return result.RowsAffected()
}

// FindDeliveryByFingerprint finds the most recent successful delivery
// with the same content fingerprint inside the window.
func (c *Client) FindDeliveryByFingerprint(ctx context.Context, integrationId int64, fingerprint string, window time.Duration) (*WebhookDelivery, error) {
	if fingerprint == "" {
		return nil, commonerrors.NewBadRequest("content fingerprint is empty")
	}
	since := time.Now().UTC().Add(-window)
	query := sqrl.And{
		sqrl.Eq{"integration_id": integrationId},
		sqrl.Eq{"content_fingerprint": fingerprint},
		sqrl.GtOrEq{"create_time": since},
		sqrl.NotEq{"alert_id": nil},
	}
	list, err := c.SelectWebhookDeliveries(ctx, query, []string{fmt.Sprintf("%s %s", CreateTime, DESC)}, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
