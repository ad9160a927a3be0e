/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TNotification = "notifications"

	// maxNotificationRetry bounds redelivery attempts before a
	// notification stays FAILED for good.
	maxNotificationRetry = 3
)

var (
	insertNotificationFormat = `INSERT INTO ` + TNotification + ` (%s) VALUES (%s)`
	updateNotificationCmd    = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    retry = :retry,
		    error_message = :error_message,
		    sent_at = :sent_at
		WHERE id = :id`, TNotification)
)

// NotificationInterface defines the database operations for the
// notification outbox.
type NotificationInterface interface {
	SubmitNotification(ctx context.Context, notification *Notification) error
	SelectNotifications(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Notification, error)
	ListUnprocessedNotifications(ctx context.Context) ([]*Notification, error)
	UpdateNotification(ctx context.Context, notification *Notification) error
}

// SubmitNotification enqueues a notification for dispatch. The uid
// dedupes repeated submissions for the same event: an undispatched row
// with the same topic and uid absorbs the submit.
func (c *Client) SubmitNotification(ctx context.Context, notification *Notification) error {
	if notification == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	query := sqrl.Eq{
		"topic":  notification.Topic,
		"uid":    notification.Uid,
		"status": string(constvar.NotificationStatusPending),
	}
	cnt, err := c.countNotifications(ctx, query)
	if err != nil {
		return err
	}
	if cnt > 0 {
		// Notification already queued
		return nil
	}

	notification.Status = string(constvar.NotificationStatusPending)
	notification.CreateTime = dbutils.NullTime(time.Now().UTC())

	_, err = db.NamedExecContext(ctx, generateCommand(*notification, insertNotificationFormat, "id"), notification)
	if err != nil {
		klog.ErrorS(err, "failed to submit notification", "topic", notification.Topic, "uid", notification.Uid)
	}
	return err
}

// SelectNotifications retrieves notifications based on query conditions.
func (c *Client) SelectNotifications(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Notification, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TNotification)

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
		return nil, fmt.Errorf("failed to build select notifications query: %v", err)
	}

	var list []*Notification
	err = db.SelectContext(ctx, &list, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select notifications from db: %v", err)
	}
	return list, nil
}

// ListUnprocessedNotifications returns pending notifications oldest
// first, including failed ones that still have retries left.
func (c *Client) ListUnprocessedNotifications(ctx context.Context) ([]*Notification, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	query := sqrl.Or{
		sqrl.Eq{"status": string(constvar.NotificationStatusPending)},
		sqrl.And{
			sqrl.Eq{"status": string(constvar.NotificationStatusFailed)},
			sqrl.Lt{"retry": maxNotificationRetry},
		},
	}
	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TNotification).
		Where(query).
		OrderBy(fmt.Sprintf("%s %s", CreateTime, ASC)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*Notification
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateNotification persists the dispatch outcome of a notification.
func (c *Client) UpdateNotification(ctx context.Context, notification *Notification) error {
	if notification == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	_, err = db.NamedExecContext(ctx, updateNotificationCmd, notification)
	if err != nil {
		klog.ErrorS(err, "failed to update notification", "id", notification.Id)
	}
	return err
}

func (c *Client) countNotifications(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TNotification).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}
