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
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"

	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const (
	TWorkflow        = "workflows"
	TWorkflowVersion = "workflow_versions"
)

var (
	insertWorkflowFormat        = `INSERT INTO ` + TWorkflow + ` (%s) VALUES (%s)`
	insertWorkflowVersionFormat = `INSERT INTO ` + TWorkflowVersion + ` (%s) VALUES (%s)`
	updateWorkflowCmd           = fmt.Sprintf(`UPDATE %s
		SET name = :name,
		    description = :description,
		    scope = :scope,
		    team_id = :team_id,
		    version = :version,
		    enabled = :enabled,
		    definition = :definition,
		    template_category = :template_category,
		    updated_by = :updated_by,
		    update_time = :update_time
		WHERE id = :id`, TWorkflow)
	toggleWorkflowCmd = fmt.Sprintf(`UPDATE %s
		SET enabled = :enabled,
		    updated_by = :updated_by,
		    update_time = :update_time
		WHERE id = :id AND enabled != :enabled`, TWorkflow)
	deleteWorkflowCmd         = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TWorkflow)
	deleteWorkflowVersionsCmd = fmt.Sprintf(`DELETE FROM %s WHERE workflow_id = $1`, TWorkflowVersion)
)

// WorkflowInterface defines the database operations for workflows and
// their version history.
type WorkflowInterface interface {
	InsertWorkflow(ctx context.Context, workflow *Workflow, changeNote string) (int64, error)
	GetWorkflow(ctx context.Context, id int64) (*Workflow, error)
	SelectWorkflows(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Workflow, error)
	CountWorkflows(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateWorkflowWithVersion(ctx context.Context, workflow *Workflow, changeNote string) error
	ToggleWorkflow(ctx context.Context, id int64, enabled bool, updatedBy string) (bool, error)
	DeleteWorkflow(ctx context.Context, id int64) error
	SelectWorkflowVersions(ctx context.Context, workflowId int64) ([]*WorkflowVersion, error)
	GetWorkflowVersion(ctx context.Context, workflowId int64, version int) (*WorkflowVersion, error)
	UpsertWorkflowTemplate(ctx context.Context, template *Workflow) error
}

// InsertWorkflow inserts a workflow and its version-1 snapshot in one
// transaction, returning the workflow id.
func (c *Client) InsertWorkflow(ctx context.Context, workflow *Workflow, changeNote string) (int64, error) {
	if workflow == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}

	now := time.Now().UTC()
	workflow.Version = 1
	workflow.CreateTime = dbutils.NullTime(now)
	workflow.UpdateTime = dbutils.NullTime(now)

	var id int64
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		cmd := generateCommand(*workflow, insertWorkflowFormat, "id")
		cmd += " RETURNING id"
		rows, err := tx.NamedQuery(cmd, workflow)
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

		version := &WorkflowVersion{
			WorkflowId: id,
			Version:    1,
			Definition: workflow.Definition,
			ChangeNote: dbutils.NullString(changeNote),
			ChangedBy:  workflow.CreatedBy,
			CreateTime: dbutils.NullTime(now),
		}
		_, err = tx.NamedExec(generateCommand(*version, insertWorkflowVersionFormat, "id"), version)
		return err
	})
	if err != nil {
		klog.ErrorS(err, "failed to insert workflow", "name", workflow.Name)
		return 0, err
	}
	workflow.Id = id
	return id, nil
}

// GetWorkflow gets a workflow by id.
func (c *Client) GetWorkflow(ctx context.Context, id int64) (*Workflow, error) {
	dbTags := GetWorkflowFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectWorkflows(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("workflow", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// SelectWorkflows lists workflows matching the query.
func (c *Client) SelectWorkflows(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Workflow, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TWorkflow).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*Workflow
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountWorkflows counts workflows matching the query.
func (c *Client) CountWorkflows(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TWorkflow).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateWorkflowWithVersion bumps the workflow version and writes an
// immutable snapshot of the new definition in the same transaction.
// In-flight executions keep the snapshot they were enqueued with.
func (c *Client) UpdateWorkflowWithVersion(ctx context.Context, workflow *Workflow, changeNote string) error {
	if workflow == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}

	now := time.Now().UTC()
	workflow.Version++
	workflow.UpdateTime = dbutils.NullTime(now)

	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExec(updateWorkflowCmd, workflow); err != nil {
			return err
		}
		version := &WorkflowVersion{
			WorkflowId: workflow.Id,
			Version:    workflow.Version,
			Definition: workflow.Definition,
			ChangeNote: dbutils.NullString(changeNote),
			ChangedBy:  workflow.UpdatedBy,
			CreateTime: dbutils.NullTime(now),
		}
		_, err := tx.NamedExec(generateCommand(*version, insertWorkflowVersionFormat, "id"), version)
		return err
	})
	if err != nil {
		klog.ErrorS(err, "failed to update workflow", "id", workflow.Id)
	}
	return err
}

// ToggleWorkflow flips the enabled flag. Returns false when the flag
// already had the requested value, which lets callers keep toggle
// requests idempotent.
func (c *Client) ToggleWorkflow(ctx context.Context, id int64, enabled bool, updatedBy string) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}

	arg := map[string]interface{}{
		"id":          id,
		"enabled":     enabled,
		"updated_by":  dbutils.NullString(updatedBy),
		"update_time": time.Now().UTC(),
	}
	res, err := db.NamedExecContext(ctx, toggleWorkflowCmd, arg)
	if err != nil {
		klog.ErrorS(err, "failed to toggle workflow", "id", id, "enabled", enabled)
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteWorkflow removes a workflow and its version history.
func (c *Client) DeleteWorkflow(ctx context.Context, id int64) error {
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteWorkflowVersionsCmd, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteWorkflowCmd, id)
		return err
	})
	if err != nil {
		klog.ErrorS(err, "failed to delete workflow", "id", id)
	}
	return err
}

// SelectWorkflowVersions lists a workflow's snapshots, newest first.
func (c *Client) SelectWorkflowVersions(ctx context.Context, workflowId int64) ([]*WorkflowVersion, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TWorkflowVersion).
		Where(sqrl.Eq{"workflow_id": workflowId}).
		OrderBy("version desc").ToSql()
	if err != nil {
		return nil, err
	}

	var list []*WorkflowVersion
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// GetWorkflowVersion gets one numbered snapshot of a workflow.
func (c *Client) GetWorkflowVersion(ctx context.Context, workflowId int64, version int) (*WorkflowVersion, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TWorkflowVersion).
		Where(sqrl.Eq{"workflow_id": workflowId, "version": version}).
		Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*WorkflowVersion
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("workflow_version", fmt.Sprintf("workflow=%d version=%d", workflowId, version))
	}
	return list[0], nil
}

// UpsertWorkflowTemplate creates or refreshes a built-in workflow
// template by name. Used to seed the template gallery at startup.
func (c *Client) UpsertWorkflowTemplate(ctx context.Context, template *Workflow) error {
	if template == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	template.IsTemplate = true
	if !template.CreateTime.Valid {
		template.CreateTime = dbutils.NullTime(now)
	}
	template.UpdateTime = dbutils.NullTime(now)

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "definition", "template_category", "update_time"}),
	}).Create(template).Error
}
