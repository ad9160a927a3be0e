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
	TAlert = "alerts"
)

var (
	insertAlertFormat = `INSERT INTO ` + TAlert + ` (%s) VALUES (%s)`
	updateAlertCmd    = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    incident_id = :incident_id,
		    metadata = :metadata,
		    update_time = :update_time
		WHERE id = :id`, TAlert)
	linkAlertIncidentCmd = fmt.Sprintf(`UPDATE %s
		SET incident_id = :incident_id,
		    update_time = :update_time
		WHERE id = :id`, TAlert)
	updateAlertStatusByIncidentCmd = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    update_time = :update_time
		WHERE incident_id = :incident_id`, TAlert)
)

// AlertInterface defines the database operations for alerts.
type AlertInterface interface {
	InsertAlert(ctx context.Context, alert *Alert) (int64, error)
	GetAlert(ctx context.Context, id int64) (*Alert, error)
	SelectAlerts(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Alert, error)
	CountAlerts(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateAlert(ctx context.Context, alert *Alert) error
	LinkAlertToIncident(ctx context.Context, alertId, incidentId int64) error
	UpdateAlertStatusByIncident(ctx context.Context, incidentId int64, status string) error
}

// InsertAlert inserts a new alert and returns its id.
func (c *Client) InsertAlert(ctx context.Context, alert *Alert) (int64, error) {
	if alert == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	alert.CreateTime = dbutils.NullTime(now)
	alert.UpdateTime = dbutils.NullTime(now)
	if !alert.TriggeredAt.Valid {
		alert.TriggeredAt = dbutils.NullTime(now)
	}

	cmd := generateCommand(*alert, insertAlertFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, alert)
	if err != nil {
		klog.ErrorS(err, "failed to insert alert", "title", alert.Title)
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

// GetAlert gets an alert by id.
func (c *Client) GetAlert(ctx context.Context, id int64) (*Alert, error) {
	dbTags := GetAlertFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectAlerts(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("alert", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// SelectAlerts lists alerts matching the query.
func (c *Client) SelectAlerts(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Alert, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TAlert).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*Alert
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountAlerts counts alerts matching the query.
func (c *Client) CountAlerts(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TAlert).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateAlert updates the mutable fields of an alert.
func (c *Client) UpdateAlert(ctx context.Context, alert *Alert) error {
	if alert == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	alert.UpdateTime = dbutils.NullTime(time.Now().UTC())

	_, err = db.NamedExecContext(ctx, updateAlertCmd, alert)
	if err != nil {
		klog.ErrorS(err, "failed to update alert", "id", alert.Id)
	}
	return err
}

// LinkAlertToIncident attaches an alert to an incident.
func (c *Client) LinkAlertToIncident(ctx context.Context, alertId, incidentId int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	arg := map[string]interface{}{
		"id":          alertId,
		"incident_id": incidentId,
		"update_time": time.Now().UTC(),
	}
	_, err = db.NamedExecContext(ctx, linkAlertIncidentCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to link alert to incident", "alertId", alertId, "incidentId", incidentId)
	}
	return err
}

// UpdateAlertStatusByIncident moves every alert of an incident to the
// given status. Used when an incident is acknowledged or resolved.
func (c *Client) UpdateAlertStatusByIncident(ctx context.Context, incidentId int64, status string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	arg := map[string]interface{}{
		"incident_id": incidentId,
		"status":      status,
		"update_time": time.Now().UTC(),
	}
	_, err = db.NamedExecContext(ctx, updateAlertStatusByIncidentCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to update alert status by incident", "incidentId", incidentId)
	}
	return err
}
