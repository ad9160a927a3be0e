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

	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TAuditEvent = "audit_events"
)

var (
	insertAuditEventFormat = `INSERT INTO ` + TAuditEvent + ` (%s) VALUES (%s);`
)

// AuditEventInterface defines the database operations for domain audit
// events.
type AuditEventInterface interface {
	InsertAuditEvent(ctx context.Context, event *AuditEvent) error
	SelectAuditEvents(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*AuditEvent, error)
	CountAuditEvents(ctx context.Context, query sqrl.Sqlizer) (int, error)
	DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// InsertAuditEvent appends an immutable domain audit event.
func (c *Client) InsertAuditEvent(ctx context.Context, event *AuditEvent) error {
	if event == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	if !event.CreateTime.Valid {
		event.CreateTime = dbutils.NullTime(time.Now().UTC())
	}

	_, err = db.NamedExecContext(ctx, generateCommand(*event, insertAuditEventFormat, "id"), event)
	if err != nil {
		return fmt.Errorf("failed to insert audit_event to db: %v", err)
	}
	return nil
}

// SelectAuditEvents retrieves audit events based on query conditions.
func (c *Client) SelectAuditEvents(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*AuditEvent, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TAuditEvent)

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
		return nil, fmt.Errorf("failed to build select audit_events query: %v", err)
	}

	var events []*AuditEvent
	err = db.SelectContext(ctx, &events, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit_events from db: %v", err)
	}
	return events, nil
}

// DeleteAuditEventsBefore prunes audit events older than the cutoff.
// Only the retention sweep may call this; audit events are otherwise
// immutable.
func (c *Client) DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Delete(TAuditEvent).PlaceholderFormat(sqrl.Dollar).
		Where(sqrl.Lt{CreateTime: cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build prune audit_events query: %v", err)
	}
	result, err := db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit_events from db: %v", err)
	}
	return result.RowsAffected()
}

// CountAuditEvents counts audit events based on query conditions.
func (c *Client) CountAuditEvents(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("COUNT(*)").From(TAuditEvent)

	if query != nil {
		builder = builder.Where(query)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count audit_events query: %v", err)
	}

	var count int
	err = db.GetContext(ctx, &count, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit_events from db: %v", err)
	}
	return count, nil
}
