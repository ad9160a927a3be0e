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

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TRunbookExecution = "runbook_executions"
)

var (
	insertRunbookExecutionFormat = `INSERT INTO ` + TRunbookExecution + ` (%s) VALUES (%s)`
	updateRunbookExecutionCmd    = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    status_code = :status_code,
		    result = :result,
		    error_message = :error_message,
		    duration_ms = :duration_ms,
		    start_time = :start_time,
		    end_time = :end_time
		WHERE id = :id`, TRunbookExecution)
)

// RunbookExecutionInterface defines the database operations for runbook
// executions.
type RunbookExecutionInterface interface {
	InsertRunbookExecution(ctx context.Context, execution *RunbookExecution) (int64, error)
	GetRunbookExecution(ctx context.Context, id int64) (*RunbookExecution, error)
	SelectRunbookExecutions(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*RunbookExecution, error)
	CountRunbookExecutions(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateRunbookExecution(ctx context.Context, execution *RunbookExecution) error
	CountRunningRunbookExecutions(ctx context.Context, runbookId int64) (int, error)
}

// InsertRunbookExecution records a new invocation and returns its id.
func (c *Client) InsertRunbookExecution(ctx context.Context, execution *RunbookExecution) (int64, error) {
	if execution == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	execution.CreateTime = dbutils.NullTime(time.Now().UTC())
	if execution.Status == "" {
		execution.Status = string(constvar.RunbookExecutionPending)
	}

	cmd := generateCommand(*execution, insertRunbookExecutionFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, execution)
	if err != nil {
		klog.ErrorS(err, "failed to insert runbook execution", "runbookId", execution.RunbookId)
		return 0, err
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
	}
	execution.Id = id
	return id, nil
}

// GetRunbookExecution gets an execution by id.
func (c *Client) GetRunbookExecution(ctx context.Context, id int64) (*RunbookExecution, error) {
	dbTags := GetRunbookExecutionFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectRunbookExecutions(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("runbook_execution", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// SelectRunbookExecutions lists executions matching the query.
func (c *Client) SelectRunbookExecutions(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*RunbookExecution, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TRunbookExecution).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*RunbookExecution
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountRunbookExecutions counts executions matching the query.
func (c *Client) CountRunbookExecutions(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TRunbookExecution).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateRunbookExecution persists the outcome of an invocation.
func (c *Client) UpdateRunbookExecution(ctx context.Context, execution *RunbookExecution) error {
	if execution == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	_, err = db.NamedExecContext(ctx, updateRunbookExecutionCmd, execution)
	if err != nil {
		klog.ErrorS(err, "failed to update runbook execution", "id", execution.Id)
	}
	return err
}

// CountRunningRunbookExecutions counts in-flight invocations of a
// runbook. Deleting a runbook is forbidden while this is non-zero.
func (c *Client) CountRunningRunbookExecutions(ctx context.Context, runbookId int64) (int, error) {
	query := sqrl.Eq{
		"runbook_id": runbookId,
		"status":     string(constvar.RunbookExecutionRunning),
	}
	return c.CountRunbookExecutions(ctx, query)
}
