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
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TRunbook        = "runbooks"
	TRunbookVersion = "runbook_versions"
)

var (
	insertRunbookFormat        = `INSERT INTO ` + TRunbook + ` (%s) VALUES (%s)`
	insertRunbookVersionFormat = `INSERT INTO ` + TRunbookVersion + ` (%s) VALUES (%s)`
	// The version guard makes the update optimistic: a concurrent edit
	// that already bumped the version turns this into a no-op.
	updateRunbookCmd = fmt.Sprintf(`UPDATE %s
		SET name = :name,
		    description = :description,
		    webhook_url = :webhook_url,
		    http_method = :http_method,
		    headers = :headers,
		    auth_type = :auth_type,
		    auth_config = :auth_config,
		    parameter_schema = :parameter_schema,
		    payload_template = :payload_template,
		    timeout_second = :timeout_second,
		    version = :version,
		    approval_status = :approval_status,
		    approved_by = :approved_by,
		    approved_at = :approved_at,
		    update_time = :update_time
		WHERE id = :id AND version = :version - 1`, TRunbook)
	deleteRunbookCmd         = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TRunbook)
	deleteRunbookVersionsCmd = fmt.Sprintf(`DELETE FROM %s WHERE runbook_id = $1`, TRunbookVersion)
)

// RunbookInterface defines the database operations for runbooks and
// their version history.
type RunbookInterface interface {
	InsertRunbook(ctx context.Context, runbook *Runbook, definition string) (int64, error)
	GetRunbook(ctx context.Context, id int64) (*Runbook, error)
	SelectRunbooks(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Runbook, error)
	CountRunbooks(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateRunbookWithVersion(ctx context.Context, runbook *Runbook, definition, changeNote string) error
	DeleteRunbook(ctx context.Context, id int64) error
	SelectRunbookVersions(ctx context.Context, runbookId int64) ([]*RunbookVersion, error)
	GetRunbookVersion(ctx context.Context, runbookId int64, version int) (*RunbookVersion, error)
}

// InsertRunbook inserts a runbook and its version-1 snapshot in one
// transaction, returning the runbook id.
func (c *Client) InsertRunbook(ctx context.Context, runbook *Runbook, definition string) (int64, error) {
	if runbook == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}

	now := time.Now().UTC()
	runbook.Version = 1
	runbook.CreateTime = dbutils.NullTime(now)
	runbook.UpdateTime = dbutils.NullTime(now)

	var id int64
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		cmd := generateCommand(*runbook, insertRunbookFormat, "id")
		cmd += " RETURNING id"
		rows, err := tx.NamedQuery(cmd, runbook)
		if err != nil {
			return err
		}
		if rows.Next() {
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
		}
		rows.Close()

		version := &RunbookVersion{
			RunbookId:  id,
			Version:    1,
			Definition: definition,
			ChangedBy:  runbook.CreatedBy,
			CreateTime: dbutils.NullTime(now),
		}
		_, err = tx.NamedExec(generateCommand(*version, insertRunbookVersionFormat, "id"), version)
		return err
	})
	if err != nil {
		klog.ErrorS(err, "failed to insert runbook", "name", runbook.Name)
		return 0, err
	}
	runbook.Id = id
	return id, nil
}

// GetRunbook gets a runbook by id.
func (c *Client) GetRunbook(ctx context.Context, id int64) (*Runbook, error) {
	dbTags := GetRunbookFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectRunbooks(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("runbook", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// SelectRunbooks lists runbooks matching the query.
func (c *Client) SelectRunbooks(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Runbook, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TRunbook).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*Runbook
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountRunbooks counts runbooks matching the query.
func (c *Client) CountRunbooks(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TRunbook).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateRunbookWithVersion bumps the version, persists the runbook
// including its approval state, and writes the definition snapshot in
// the same transaction. The caller must have incremented
// runbook.Version by exactly one; a concurrent edit loses the race and
// gets a conflict error.
func (c *Client) UpdateRunbookWithVersion(ctx context.Context, runbook *Runbook, definition, changeNote string) error {
	if runbook == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}

	now := time.Now().UTC()
	runbook.UpdateTime = dbutils.NullTime(now)

	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExec(updateRunbookCmd, runbook)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return commonerrors.NewConflict(fmt.Sprintf("runbook %d was modified concurrently", runbook.Id))
		}
		version := &RunbookVersion{
			RunbookId:  runbook.Id,
			Version:    runbook.Version,
			Definition: definition,
			ChangeNote: dbutils.NullString(changeNote),
			ChangedBy:  runbook.CreatedBy,
			CreateTime: dbutils.NullTime(now),
		}
		_, err = tx.NamedExec(generateCommand(*version, insertRunbookVersionFormat, "id"), version)
		return err
	})
	if err != nil {
		klog.ErrorS(err, "failed to update runbook", "id", runbook.Id)
	}
	return err
}

// DeleteRunbook removes a runbook and its version history. Callers must
// reject the delete while an execution is RUNNING.
func (c *Client) DeleteRunbook(ctx context.Context, id int64) error {
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteRunbookVersionsCmd, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteRunbookCmd, id)
		return err
	})
	if err != nil {
		klog.ErrorS(err, "failed to delete runbook", "id", id)
	}
	return err
}

// SelectRunbookVersions lists a runbook's snapshots, newest first.
func (c *Client) SelectRunbookVersions(ctx context.Context, runbookId int64) ([]*RunbookVersion, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TRunbookVersion).
		Where(sqrl.Eq{"runbook_id": runbookId}).
		OrderBy("version desc").ToSql()
	if err != nil {
		return nil, err
	}

	var list []*RunbookVersion
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// GetRunbookVersion gets one numbered snapshot of a runbook.
func (c *Client) GetRunbookVersion(ctx context.Context, runbookId int64, version int) (*RunbookVersion, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TRunbookVersion).
		Where(sqrl.Eq{"runbook_id": runbookId, "version": version}).
		Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*RunbookVersion
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("runbook_version", fmt.Sprintf("runbook=%d version=%d", runbookId, version))
	}
	return list[0], nil
}
