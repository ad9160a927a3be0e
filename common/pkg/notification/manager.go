/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package notification is the enqueue boundary of the platform: it
// writes notification rows that an external deliverer consumes. Nothing
// in this process sends email, SMS or push.
package notification

import (
	"context"
	"encoding/json"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

const listLimit = 200

// Manager enqueues and queries notification rows.
type Manager struct {
	store client.NotificationInterface
}

func NewManager(store client.NotificationInterface) *Manager {
	return &Manager{store: store}
}

// Submit enqueues one notification. The (topic, uid) pair dedupes
// repeated submissions while a matching row is still PENDING.
func (m *Manager) Submit(ctx context.Context, topic, uid string, data map[string]interface{}) error {
	if topic == "" || uid == "" {
		return commonerrors.NewBadRequest("notification requires a topic and a uid")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return m.store.SubmitNotification(ctx, &client.Notification{
		Topic: topic,
		Uid:   uid,
		Data:  string(payload),
	})
}

// Query bounds a notification listing.
type Query struct {
	Topic  string
	Status string
	// UidPrefix matches rows whose uid starts with the prefix. Escalation
	// uids embed the incident id, so "escalation:42:" lists one
	// incident's notifications.
	UidPrefix string
}

// List returns notifications newest first.
func (m *Manager) List(ctx context.Context, q Query) ([]*client.Notification, error) {
	conditions := sqrl.And{}
	if q.Topic != "" {
		conditions = append(conditions, sqrl.Eq{"topic": q.Topic})
	}
	if q.Status != "" {
		conditions = append(conditions, sqrl.Eq{"status": q.Status})
	}
	if q.UidPrefix != "" {
		conditions = append(conditions, sqrl.Like{"uid": q.UidPrefix + "%"})
	}
	var query sqrl.Sqlizer
	if len(conditions) > 0 {
		query = conditions
	}
	return m.store.SelectNotifications(ctx, query,
		[]string{client.CreateTime + " " + client.DESC}, listLimit, 0)
}
