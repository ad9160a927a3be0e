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
	TWorkflowExecution = "workflow_executions"
)

var (
	insertWorkflowExecutionFormat = `INSERT INTO ` + TWorkflowExecution + ` (%s) VALUES (%s)`
	updateWorkflowExecutionCmd    = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    current_node_id = :current_node_id,
		    completed_nodes = :completed_nodes,
		    error_message = :error_message,
		    start_time = :start_time,
		    end_time = :end_time,
		    update_time = :update_time
		WHERE id = :id`, TWorkflowExecution)
	claimWorkflowExecutionCmd = fmt.Sprintf(`UPDATE %s
		SET status = :status,
		    start_time = :start_time,
		    update_time = :update_time
		WHERE id = :id AND status = :expect_status`, TWorkflowExecution)
	workflowExecutionStatsCmd = fmt.Sprintf(`SELECT status,
		COUNT(*) AS count,
		COALESCE(AVG(EXTRACT(EPOCH FROM (end_time - start_time))), 0) AS avg_duration_second
		FROM %s WHERE workflow_id = $1 AND create_time >= $2 GROUP BY status`, TWorkflowExecution)
)

// WorkflowExecutionStat is one row of the per-workflow analytics
// aggregation, grouped by terminal status.
type WorkflowExecutionStat struct {
	Status            string  `db:"status"`
	Count             int     `db:"count"`
	AvgDurationSecond float64 `db:"avg_duration_second"`
}

// WorkflowExecutionInterface defines the database operations for
// workflow executions.
type WorkflowExecutionInterface interface {
	InsertWorkflowExecution(ctx context.Context, execution *WorkflowExecution) (int64, error)
	GetWorkflowExecution(ctx context.Context, id int64) (*WorkflowExecution, error)
	SelectWorkflowExecutions(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*WorkflowExecution, error)
	CountWorkflowExecutions(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateWorkflowExecution(ctx context.Context, execution *WorkflowExecution) error
	ClaimWorkflowExecution(ctx context.Context, id int64) (bool, error)
	AggregateWorkflowExecutionStats(ctx context.Context, workflowId int64, since time.Time) ([]*WorkflowExecutionStat, error)
}

// InsertWorkflowExecution enqueues an execution with its frozen
// definition snapshot and returns the execution id.
func (c *Client) InsertWorkflowExecution(ctx context.Context, execution *WorkflowExecution) (int64, error) {
	if execution == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	execution.CreateTime = dbutils.NullTime(now)
	execution.UpdateTime = dbutils.NullTime(now)
	if execution.Status == "" {
		execution.Status = string(constvar.ExecutionStatusPending)
	}

	cmd := generateCommand(*execution, insertWorkflowExecutionFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, execution)
	if err != nil {
		klog.ErrorS(err, "failed to insert workflow execution", "workflowId", execution.WorkflowId)
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

// GetWorkflowExecution gets an execution by id.
func (c *Client) GetWorkflowExecution(ctx context.Context, id int64) (*WorkflowExecution, error) {
	dbTags := GetWorkflowExecutionFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectWorkflowExecutions(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("workflow_execution", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// SelectWorkflowExecutions lists executions matching the query.
func (c *Client) SelectWorkflowExecutions(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*WorkflowExecution, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TWorkflowExecution).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*WorkflowExecution
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountWorkflowExecutions counts executions matching the query.
func (c *Client) CountWorkflowExecutions(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TWorkflowExecution).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateWorkflowExecution persists execution progress. The engine calls
// this after every node so a crash leaves an inspectable trail.
func (c *Client) UpdateWorkflowExecution(ctx context.Context, execution *WorkflowExecution) error {
	if execution == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	execution.UpdateTime = dbutils.NullTime(time.Now().UTC())

	_, err = db.NamedExecContext(ctx, updateWorkflowExecutionCmd, execution)
	if err != nil {
		klog.ErrorS(err, "failed to update workflow execution", "id", execution.Id)
	}
	return err
}

// ClaimWorkflowExecution moves a PENDING execution to RUNNING. Returns
// false when another worker already claimed it.
func (c *Client) ClaimWorkflowExecution(ctx context.Context, id int64) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	arg := map[string]interface{}{
		"id":            id,
		"status":        string(constvar.ExecutionStatusRunning),
		"expect_status": string(constvar.ExecutionStatusPending),
		"start_time":    now,
		"update_time":   now,
	}
	res, err := db.NamedExecContext(ctx, claimWorkflowExecutionCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to claim workflow execution", "id", id)
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AggregateWorkflowExecutionStats returns per-status execution counts
// and mean wall time for one workflow, restricted to executions created
// at or after since.
func (c *Client) AggregateWorkflowExecutionStats(ctx context.Context, workflowId int64, since time.Time) ([]*WorkflowExecutionStat, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	var stats []*WorkflowExecutionStat
	if err := db.SelectContext(ctx, &stats, workflowExecutionStatsCmd, workflowId, since); err != nil {
		return nil, fmt.Errorf("failed to aggregate workflow execution stats: %v", err)
	}
	return stats, nil
}
