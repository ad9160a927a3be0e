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
	TEscalationPolicy = "escalation_policies"
	TEscalationLevel  = "escalation_levels"
)

var (
	insertEscalationPolicyFormat = `INSERT INTO ` + TEscalationPolicy + ` (%s) VALUES (%s)`
	insertEscalationLevelFormat  = `INSERT INTO ` + TEscalationLevel + ` (%s) VALUES (%s)`
	updateEscalationPolicyCmd    = fmt.Sprintf(`UPDATE %s
		SET name = :name,
		    description = :description,
		    repeat_count = :repeat_count,
		    is_default = :is_default,
		    update_time = :update_time
		WHERE id = :id`, TEscalationPolicy)
	clearDefaultPolicyCmd = fmt.Sprintf(`UPDATE %s
		SET is_default = false, update_time = $2
		WHERE team_id = $1 AND is_default = true`, TEscalationPolicy)
	markDefaultPolicyCmd = fmt.Sprintf(`UPDATE %s
		SET is_default = true, update_time = $2
		WHERE id = $1`, TEscalationPolicy)
	deleteEscalationPolicyCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TEscalationPolicy)
	deleteLevelsByPolicyCmd   = fmt.Sprintf(`DELETE FROM %s WHERE policy_id = $1`, TEscalationLevel)
)

// EscalationPolicyInterface defines the database operations for escalation policies.
type EscalationPolicyInterface interface {
	InsertEscalationPolicy(ctx context.Context, policy *EscalationPolicy, levels []*EscalationLevel) (int64, error)
	GetEscalationPolicy(ctx context.Context, id int64) (*EscalationPolicy, error)
	GetDefaultEscalationPolicy(ctx context.Context, teamId int64) (*EscalationPolicy, error)
	SelectEscalationPolicies(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*EscalationPolicy, error)
	CountEscalationPolicies(ctx context.Context, query sqrl.Sqlizer) (int, error)
	UpdateEscalationPolicy(ctx context.Context, policy *EscalationPolicy) error
	SetDefaultEscalationPolicy(ctx context.Context, teamId, policyId int64) error
	DeleteEscalationPolicy(ctx context.Context, id int64) error
	SelectEscalationLevels(ctx context.Context, policyId int64) ([]*EscalationLevel, error)
	ReplaceEscalationLevels(ctx context.Context, policyId int64, levels []*EscalationLevel) error
	GetEscalationLevel(ctx context.Context, policyId int64, level int) (*EscalationLevel, error)
}

// InsertEscalationPolicy inserts a policy with its levels in one
// transaction and returns the policy id.
func (c *Client) InsertEscalationPolicy(ctx context.Context, policy *EscalationPolicy, levels []*EscalationLevel) (int64, error) {
	if policy == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}

	now := time.Now().UTC()
	policy.CreateTime = dbutils.NullTime(now)
	policy.UpdateTime = dbutils.NullTime(now)

	var id int64
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		cmd := generateCommand(*policy, insertEscalationPolicyFormat, "id")
		cmd += " RETURNING id"
		rows, err := tx.NamedQuery(cmd, policy)
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

		for _, level := range levels {
			level.PolicyId = id
			level.CreateTime = dbutils.NullTime(now)
			if _, err := tx.NamedExec(generateCommand(*level, insertEscalationLevelFormat, "id"), level); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		klog.ErrorS(err, "failed to insert escalation policy", "name", policy.Name)
		return 0, err
	}
	return id, nil
}

// GetEscalationPolicy gets a policy by id.
func (c *Client) GetEscalationPolicy(ctx context.Context, id int64) (*EscalationPolicy, error) {
	dbTags := GetEscalationPolicyFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectEscalationPolicies(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("escalation_policy", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// GetDefaultEscalationPolicy gets a team's default policy.
func (c *Client) GetDefaultEscalationPolicy(ctx context.Context, teamId int64) (*EscalationPolicy, error) {
	query := sqrl.Eq{"team_id": teamId, "is_default": true}
	list, err := c.SelectEscalationPolicies(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("default escalation_policy for team", fmt.Sprintf("%d", teamId))
	}
	return list[0], nil
}

// SelectEscalationPolicies lists policies matching the query.
func (c *Client) SelectEscalationPolicies(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*EscalationPolicy, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TEscalationPolicy).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*EscalationPolicy
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CountEscalationPolicies counts policies matching the query.
func (c *Client) CountEscalationPolicies(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TEscalationPolicy).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// UpdateEscalationPolicy updates the mutable fields of a policy.
func (c *Client) UpdateEscalationPolicy(ctx context.Context, policy *EscalationPolicy) error {
	if policy == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	policy.UpdateTime = dbutils.NullTime(time.Now().UTC())

	_, err = db.NamedExecContext(ctx, updateEscalationPolicyCmd, policy)
	if err != nil {
		klog.ErrorS(err, "failed to update escalation policy", "id", policy.Id)
	}
	return err
}

// SetDefaultEscalationPolicy makes policyId the team's only default.
// The previous default is cleared in the same transaction.
func (c *Client) SetDefaultEscalationPolicy(ctx context.Context, teamId, policyId int64) error {
	now := time.Now().UTC()
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, clearDefaultPolicyCmd, teamId, now); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, markDefaultPolicyCmd, policyId, now)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return commonerrors.NewNotFound("escalation_policy", fmt.Sprintf("%d", policyId))
		}
		return nil
	})
	if err != nil {
		klog.ErrorS(err, "failed to set default escalation policy", "teamId", teamId, "policyId", policyId)
	}
	return err
}

// DeleteEscalationPolicy removes a policy and its levels.
func (c *Client) DeleteEscalationPolicy(ctx context.Context, id int64) error {
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteLevelsByPolicyCmd, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteEscalationPolicyCmd, id)
		return err
	})
	if err != nil {
		klog.ErrorS(err, "failed to delete escalation policy", "id", id)
	}
	return err
}

// SelectEscalationLevels lists a policy's levels ordered by level number.
func (c *Client) SelectEscalationLevels(ctx context.Context, policyId int64) ([]*EscalationLevel, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TEscalationLevel).
		Where(sqrl.Eq{"policy_id": policyId}).
		OrderBy("level asc").ToSql()
	if err != nil {
		return nil, err
	}

	var list []*EscalationLevel
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// ReplaceEscalationLevels swaps a policy's level set atomically. Levels
// are written as a whole so the numbering stays dense.
func (c *Client) ReplaceEscalationLevels(ctx context.Context, policyId int64, levels []*EscalationLevel) error {
	now := time.Now().UTC()
	err := c.transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteLevelsByPolicyCmd, policyId); err != nil {
			return err
		}
		for _, level := range levels {
			level.PolicyId = policyId
			level.CreateTime = dbutils.NullTime(now)
			if _, err := tx.NamedExec(generateCommand(*level, insertEscalationLevelFormat, "id"), level); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		klog.ErrorS(err, "failed to replace escalation levels", "policyId", policyId)
	}
	return err
}

// GetEscalationLevel gets one numbered level of a policy.
func (c *Client) GetEscalationLevel(ctx context.Context, policyId int64, level int) (*EscalationLevel, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TEscalationLevel).
		Where(sqrl.Eq{"policy_id": policyId, "level": level}).
		Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*EscalationLevel
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("escalation_level", fmt.Sprintf("policy=%d level=%d", policyId, level))
	}
	return list[0], nil
}
