/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package audit records domain audit events: who did what to which
// resource, with structured metadata. Recording never fails the caller;
// a lost audit row is logged, not propagated.
package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
)

// Entry is one audit event before persistence.
type Entry struct {
	Action       string
	Actor        string
	TeamId       int64
	ResourceType string
	ResourceId   string
	Severity     constvar.Severity
	Metadata     map[string]interface{}
}

type Recorder struct {
	store client.AuditEventInterface
}

func NewRecorder(store client.AuditEventInterface) *Recorder {
	return &Recorder{store: store}
}

// Record appends one audit event. An empty actor is attributed to the
// system user; an empty severity defaults to INFO.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	actor := entry.Actor
	if actor == "" {
		actor = common.UserSystem
	}
	severity := entry.Severity
	if severity == "" {
		severity = constvar.SeverityInfo
	}

	event := &client.AuditEvent{
		Action:   entry.Action,
		Actor:    dbutils.NullString(actor),
		Severity: string(severity),
	}
	if entry.TeamId != 0 {
		event.TeamId = dbutils.NullInt64(entry.TeamId)
	}
	if entry.ResourceType != "" {
		event.ResourceType = dbutils.NullString(entry.ResourceType)
	}
	if entry.ResourceId != "" {
		event.ResourceId = dbutils.NullString(entry.ResourceId)
	}
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			klog.ErrorS(err, "failed to marshal audit metadata", "action", entry.Action)
		} else {
			event.Metadata = dbutils.NullString(string(data))
		}
	}

	if err := r.store.InsertAuditEvent(ctx, event); err != nil {
		klog.ErrorS(err, "failed to record audit event",
			"action", entry.Action, "resource", entry.ResourceId)
	}
}

// ResourceId formats a numeric row id for audit entries.
func ResourceId(id int64) string {
	return strconv.FormatInt(id, 10)
}
