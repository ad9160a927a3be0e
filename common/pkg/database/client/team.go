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
	TTeam = "teams"
	TUser = "users"
)

var (
	insertTeamFormat = `INSERT INTO ` + TTeam + ` (%s) VALUES (%s)`
	insertUserFormat = `INSERT INTO ` + TUser + ` (%s) VALUES (%s)`
	updateUserCmd    = fmt.Sprintf(`UPDATE %s
		SET display_name = :display_name,
		    email = :email,
		    role = :role,
		    team_id = :team_id,
		    active = :active,
		    update_time = :update_time
		WHERE id = :id`, TUser)
)

// TeamInterface defines the database operations for teams and users.
type TeamInterface interface {
	InsertTeam(ctx context.Context, team *Team) (int64, error)
	GetTeam(ctx context.Context, id int64) (*Team, error)
	GetTeamByName(ctx context.Context, name string) (*Team, error)
	SelectTeams(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Team, error)
	InsertUser(ctx context.Context, user *User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByName(ctx context.Context, userName string) (*User, error)
	SelectUsers(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

// InsertTeam inserts a new team and returns its id.
func (c *Client) InsertTeam(ctx context.Context, team *Team) (int64, error) {
	if team == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	team.CreateTime = dbutils.NullTime(now)
	team.UpdateTime = dbutils.NullTime(now)

	cmd := generateCommand(*team, insertTeamFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, team)
	if err != nil {
		klog.ErrorS(err, "failed to insert team", "name", team.Name)
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

// GetTeam gets a team by id.
func (c *Client) GetTeam(ctx context.Context, id int64) (*Team, error) {
	dbTags := GetTeamFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectTeams(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("team", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// GetTeamByName gets a team by its unique name.
func (c *Client) GetTeamByName(ctx context.Context, name string) (*Team, error) {
	if name == "" {
		return nil, commonerrors.NewBadRequest("team name is empty")
	}
	dbTags := GetTeamFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Name"): name}
	list, err := c.SelectTeams(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("team", name)
	}
	return list[0], nil
}

// SelectTeams lists teams matching the query.
func (c *Client) SelectTeams(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Team, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TTeam).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*Team
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// InsertUser inserts a new user and returns its id.
func (c *Client) InsertUser(ctx context.Context, user *User) (int64, error) {
	if user == nil {
		return 0, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	user.CreateTime = dbutils.NullTime(now)
	user.UpdateTime = dbutils.NullTime(now)

	cmd := generateCommand(*user, insertUserFormat, "id")
	cmd += " RETURNING id"

	rows, err := db.NamedQueryContext(ctx, cmd, user)
	if err != nil {
		klog.ErrorS(err, "failed to insert user", "userName", user.UserName)
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

// GetUser gets a user by id.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	dbTags := GetUserFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "Id"): id}
	list, err := c.SelectUsers(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("user", fmt.Sprintf("%d", id))
	}
	return list[0], nil
}

// GetUserByName gets a user by their unique login name.
func (c *Client) GetUserByName(ctx context.Context, userName string) (*User, error) {
	if userName == "" {
		return nil, commonerrors.NewBadRequest("user name is empty")
	}
	dbTags := GetUserFieldTags()
	query := sqrl.Eq{GetFieldTag(dbTags, "UserName"): userName}
	list, err := c.SelectUsers(ctx, query, nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, commonerrors.NewNotFound("user", userName)
	}
	return list[0], nil
}

// SelectUsers lists users matching the query.
func (c *Client) SelectUsers(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*User, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TUser).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var list []*User
	if err = db.SelectContext(ctx, &list, sql, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateUser updates the mutable fields of a user.
func (c *Client) UpdateUser(ctx context.Context, user *User) error {
	if user == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}

	user.UpdateTime = dbutils.NullTime(time.Now().UTC())

	_, err = db.NamedExecContext(ctx, updateUserCmd, user)
	if err != nil {
		klog.ErrorS(err, "failed to update user", "id", user.Id)
	}
	return err
}
