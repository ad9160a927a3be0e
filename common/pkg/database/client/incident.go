/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/cespare/xxhash/v2"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TIncident = "incidents"
)

var (
	insertIncidentFormat = `INSERT INTO ` + TIncident + ` (%s) VALUES (%s)`
	updateIncidentCmd    = fmt.Sprintf(`UPDATE %s
		SET title = :title,
		    description = :description,
		    priority = :priority,
		    severity = :severity,
		    status = :status,
		    assigned_user_id = :assigned_user_id,
		    escalation_policy_id = :escalation_policy_id,
		    current_level = :current_level,
		    repeat_cycle = :repeat_cycle,
		    alert_count = :alert_count,
		    update_time = :update_time
		WHERE id = :id`, TIncident)
	acknowledgeIncidentCmd = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    acknowledged_by = :acknowledged_by,
		    acknowledged_at = :acknowledged_at,
		    update_time = :update_time
		WHERE id = :id AND status = :expect_status`, TIncident)
	resolveIncidentCmd = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    resolved_by = :resolved_by,
		    resolved_at = :resolved_at,
		    resolution_note = :resolution_note,
		    update_time = :update_time
		WHERE id = :id AND status != :status`, TIncident)
	advanceIncidentLevelCmd = fmt.Sprintf(`UPDATE %s
		SET current_level = :current_level,
		    repeat_cycle = :repeat_cycle,
		    update_time = :update_time
		WHERE id = :id AND status = :expect_status`, TIncident)
	assignIncidentCmd = fmt.Sprintf(`UPDATE %s
		SET assigned_user_id = :assigned_user_id,
		    update_time = :update_time
		WHERE id = :id`, TIncident)
	// The advisory lock serializes concurrent webhooks racing to open an
	// incident for the same (fingerprint, team). FOR UPDATE alone is not
	// enough: it locks nothing when no OPEN incident exists yet, and two
	// first deliveries would both insert.
	lockIncidentFingerprintCmd = `SELECT pg_advisory_xact_lock($1)`
	lockOpenIncidentCmd        = fmt.Sprintf(`SELECT * FROM %s
		WHERE fingerprint = $1 AND team_id = $2 AND status = $3 AND create_time >= $4
		ORDER BY create_time DESC LIMIT 1 FOR UPDATE`, TIncident)
	bumpIncidentAlertCountCmd = fmt.Sprintf(`UPDATE %s
		SET alert_count = alert_count + 1, update_time = $2
		WHERE id = $1`, TIncident)
)

// IncidentInterface defines the database operations for incidents.
type IncidentInterface interface {
	InsertIncident(ctx context.Context, incident *Incident) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	SelectIncidents(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Incident, error)
	CountIncidents(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateIncident(ctx context.Context, incident *Incident) error
	FindOrCreateOpenIncident(ctx context.Context, candidate *Incident, window time.Duration) (*Incident, bool, error)
	AcknowledgeIncident(ctx context.Context, id int64, user string) error
	ResolveIncident(ctx context.Context, id int64, user, note string) error
	AdvanceIncidentLevel(ctx context.Context, id int64, level, cycle int) (bool, error)
	AssignIncident(ctx context.Context, id int64, userId int64) error
}

// InsertIncident inserts a new incident and returns its id.
func (c *Client) InsertIncident(ctx context.Context, incident *Incident) (int64, error) {
	if incident == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	incident.CreateTime = dbutils.NullTime(now)
	incident.UpdateTime = dbutils.NullTime(now)

	cmd := generateCommand(*incident, insertIncidentFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, incident)
	if err != nil {
		klog.ErrorS(err, "failed to insert incident", "fingerprint", incident.Fingerprint)
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

// GetIncident gets an incident by id.
func (c *Client) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	dbTags := GetIncidentFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectIncidents(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("incident", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// SelectIncidents lists incidents matching the query.
func (c *Client) SelectIncidents(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Incident, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TIncident).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*Incident
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountIncidents counts incidents matching the query.
func (c *Client) CountIncidents(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TIncident).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateIncident updates the mutable fields of an incident.
func (c *Client) UpdateIncident(ctx context.Context, incident *Incident) error {
	if incident == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	incident.UpdateTime = dbutils.NullTime(time.Now().UTC())

	_, err = db.NamedExecContext(ctx, updateIncidentCmd, incident)
	if err != nil {
		klog.ErrorS(err, "failed to update incident", "id", incident.Id)
	}
	return err
}

// incidentLockKey maps (fingerprint, team) onto the 64-bit advisory
// lock keyspace.
func incidentLockKey(fingerprint string, teamId int64) int64 {
	return int64(xxhash.Sum64String(fmt.Sprintf("%s:%d", fingerprint, teamId)))
}

// FindOrCreateOpenIncident finds the OPEN incident with the candidate's
// fingerprint on the candidate's team inside the dedup window and bumps
// its alert count, or inserts the candidate when none exists. The whole
// step runs in one transaction under an advisory lock on (fingerprint,
// team), so two concurrent webhooks can never both open an incident for
// the same fingerprint.
//
// Returns the surviving incident and whether the alert was grouped into
// an existing one.
func (c *Client) FindOrCreateOpenIncident(ctx context.Context, candidate *Incident, window time.Duration) (*Incident, bool, error) {
	if candidate == nil {
		return nil, false, commonerrors.NewBadRequest("the input is empty")
	}

	var result *Incident
	grouped := false
	since := time.Now().UTC().Add(-window)

	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, lockIncidentFingerprintCmd,
			incidentLockKey(candidate.Fingerprint, candidate.TeamId)); err != nil {
			return err
		}

		var existing Incident
		err := tx.GetContext(ctx, &existing, lockOpenIncidentCmd,
			candidate.Fingerprint, candidate.TeamId, string(constvar.IncidentStatusOpen), since)
		if err == nil {
			now := time.Now().UTC()
			if _, err := tx.ExecContext(ctx, bumpIncidentAlertCountCmd, existing.Id, now); err != nil {
				return err
			}
			existing.AlertCount++
			result = &existing
			grouped = true
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		now := time.Now().UTC()
		candidate.CreateTime = dbutils.NullTime(now)
		candidate.UpdateTime = dbutils.NullTime(now)

		cmd := generateCommand(*candidate, insertIncidentFormat, "id")
		cmd += " RETURNING id"
		rows, err := tx.NamedQuery(cmd, candidate)
		if err != nil {
			return err
		}
		defer rows.Close()
		if rows.Next() {
			if err := rows.Scan(&candidate.Id); err != nil {
				return err
			}
		}
		result = candidate
		return nil
	})
	if err != nil {
		klog.ErrorS(err, "failed to find or create incident", "fingerprint", candidate.Fingerprint)
		return nil, false, err
	}
	return result, grouped, nil
}

// AcknowledgeIncident moves an OPEN incident to ACKNOWLEDGED. Returns a
// conflict error when the incident is not OPEN anymore.
func (c *Client) AcknowledgeIncident(ctx context.Context, id int64, user string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	arg := map[string]interface{}{
		"id":              id,
		"status":          string(constvar.IncidentStatusAcknowledged),
		"expect_status":   string(constvar.IncidentStatusOpen),
		"acknowledged_by": user,
		"acknowledged_at": now,
		"update_time":     now,
	}
	res, err := db.NamedExecContext(ctx, acknowledgeIncidentCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to acknowledge incident", "id", id)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commonerrors.NewConflict(fmt.Sprintf("incident %d is not open", id))
	}
	return nil
}

// ResolveIncident moves an incident to RESOLVED from any non-resolved
// state. Returns a conflict error when it is already resolved.
func (c *Client) ResolveIncident(ctx context.Context, id int64, user, note string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	arg := map[string]interface{}{
		"id":              id,
		"status":          string(constvar.IncidentStatusResolved),
		"resolved_by":     user,
		"resolved_at":     now,
		"resolution_note": dbutils.NullString(note),
		"update_time":     now,
	}
	res, err := db.NamedExecContext(ctx, resolveIncidentCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to resolve incident", "id", id)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commonerrors.NewConflict(fmt.Sprintf("incident %d is already resolved", id))
	}
	return nil
}

// AdvanceIncidentLevel records a fired escalation step. The status
// guard makes a late timer a no-op once the incident is acknowledged or
// resolved. Returns whether the level actually advanced.
func (c *Client) AdvanceIncidentLevel(ctx context.Context, id int64, level, cycle int) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}

	arg := map[string]interface{}{
		"id":            id,
		"current_level": level,
		"repeat_cycle":  cycle,
		"expect_status": string(constvar.IncidentStatusOpen),
		"update_time":   time.Now().UTC(),
	}
	res, err := db.NamedExecContext(ctx, advanceIncidentLevelCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to advance incident level", "id", id, "level", level)
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AssignIncident sets the assigned responder.
func (c *Client) AssignIncident(ctx context.Context, id int64, userId int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	arg := map[string]interface{}{
		"id":               id,
		"assigned_user_id": userId,
		"update_time":      time.Now().UTC(),
	}
	_, err = db.NamedExecContext(ctx, assignIncidentCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to assign incident", "id", id, "userId", userId)
	}
	return err
}
