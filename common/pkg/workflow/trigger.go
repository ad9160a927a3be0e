/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
)

// Event is one pipeline occurrence the dispatcher matches workflows
// against.
type Event struct {
	Type       constvar.TriggerType
	Incident   *client.Incident
	FromStatus string
	ToStatus   string
}

// TriggerStore is the slice of the database the dispatcher needs.
type TriggerStore interface {
	SelectWorkflows(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*client.Workflow, error)
	SelectIncidents(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*client.Incident, error)
	InsertWorkflowExecution(ctx context.Context, execution *client.WorkflowExecution) (int64, error)
	GetTeam(ctx context.Context, id int64) (*client.Team, error)
	GetUser(ctx context.Context, id int64) (*client.User, error)
}

// JobQueue is the slice of the job queue the dispatcher needs.
type JobQueue interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// Dispatcher matches trigger events against enabled workflows and
// enqueues executions with frozen definition and context snapshots.
type Dispatcher struct {
	store TriggerStore
	queue JobQueue
}

func NewDispatcher(store TriggerStore, q JobQueue) *Dispatcher {
	return &Dispatcher{store: store, queue: q}
}

// Dispatch enqueues one execution per enabled workflow whose trigger
// config matches the event. Matching failures on a single workflow are
// logged and do not block the others.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	workflows, err := d.store.SelectWorkflows(ctx,
		sqrl.Eq{"enabled": true, "is_template": false}, nil, 1000, 0)
	if err != nil {
		return err
	}

	for _, wf := range workflows {
		def, err := Parse(wf.Definition)
		if err != nil {
			klog.ErrorS(err, "skipping workflow with unreadable definition", "workflowId", wf.Id)
			continue
		}
		if !matches(def, wf, event) {
			continue
		}
		if _, err := d.EnqueueExecution(ctx, wf, def, event.Incident, event.Type); err != nil {
			klog.ErrorS(err, "failed to enqueue workflow execution",
				"workflowId", wf.Id, "incidentId", event.Incident.Id)
		}
	}
	return nil
}

// ExecuteManual enqueues an execution on operator request, bypassing
// trigger-condition evaluation.
func (d *Dispatcher) ExecuteManual(ctx context.Context, wf *client.Workflow, incident *client.Incident) (int64, error) {
	def, err := Parse(wf.Definition)
	if err != nil {
		return 0, err
	}
	return d.EnqueueExecution(ctx, wf, def, incident, constvar.TriggerManual)
}

// EnqueueExecution persists a PENDING execution with the current
// definition and a frozen template context, then schedules the queue job
// carrying its row id.
func (d *Dispatcher) EnqueueExecution(ctx context.Context, wf *client.Workflow, def *Definition, incident *client.Incident, trigger constvar.TriggerType) (int64, error) {
	tctx, err := d.BuildContext(ctx, wf, incident)
	if err != nil {
		return 0, err
	}
	contextData, err := json.Marshal(tctx)
	if err != nil {
		return 0, err
	}

	execution := &client.WorkflowExecution{
		WorkflowId:  wf.Id,
		Status:      string(constvar.ExecutionStatusPending),
		TriggerType: string(trigger),
		Definition:  wf.Definition,
		Context:     dbutils.NullString(string(contextData)),
	}
	if incident != nil {
		execution.IncidentId = dbutils.NullInt64(incident.Id)
	}
	id, err := d.store.InsertWorkflowExecution(ctx, execution)
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(executionPayload{ExecutionId: id})
	if err != nil {
		return 0, err
	}
	err = d.queue.Enqueue(ctx, &queue.Job{
		Id:      fmt.Sprintf("%s:%s", common.JobKindWorkflowExecution, uuid.NewString()),
		Type:    common.JobKindWorkflowExecution,
		Payload: payload,
		RunAt:   time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	klog.InfoS("workflow execution enqueued", "workflowId", wf.Id,
		"executionId", id, "trigger", trigger)
	return id, nil
}

// ScanAges emits age trigger events for open incidents. Driven by cron;
// the engine-side age threshold decides which workflows actually fire.
func (d *Dispatcher) ScanAges(ctx context.Context) error {
	incidents, err := d.store.SelectIncidents(ctx,
		sqrl.Eq{"status": string(constvar.IncidentStatusOpen)},
		[]string{"create_time asc"}, 1000, 0)
	if err != nil {
		return err
	}
	for _, incident := range incidents {
		if err := d.Dispatch(ctx, &Event{Type: constvar.TriggerAge, Incident: incident}); err != nil {
			klog.ErrorS(err, "age scan dispatch failed", "incidentId", incident.Id)
		}
	}
	return nil
}

// BuildContext assembles the template context frozen into an execution:
// the incident, its assignee and team, and the workflow itself.
func (d *Dispatcher) BuildContext(ctx context.Context, wf *client.Workflow, incident *client.Incident) (map[string]interface{}, error) {
	tctx := map[string]interface{}{
		"workflow": map[string]interface{}{
			"id":      wf.Id,
			"name":    wf.Name,
			"version": wf.Version,
		},
	}
	if incident == nil {
		return tctx, nil
	}

	tctx["incident"] = incidentContext(incident)

	if team, err := d.store.GetTeam(ctx, incident.TeamId); err == nil {
		tctx["team"] = map[string]interface{}{
			"id":          team.Id,
			"name":        team.Name,
			"displayName": dbutils.ParseNullString(team.DisplayName),
		}
	} else {
		klog.V(4).InfoS("team lookup failed for template context",
			"incidentId", incident.Id, "teamId", incident.TeamId, "err", err)
	}

	if incident.AssignedUserId.Valid {
		if user, err := d.store.GetUser(ctx, incident.AssignedUserId.Int64); err == nil {
			tctx["assignee"] = map[string]interface{}{
				"id":       user.Id,
				"userName": user.UserName,
				"email":    dbutils.ParseNullString(user.Email),
			}
		}
	}
	return tctx, nil
}

func incidentContext(incident *client.Incident) map[string]interface{} {
	return map[string]interface{}{
		"id":           incident.Id,
		"title":        incident.Title,
		"description":  dbutils.ParseNullString(incident.Description),
		"severity":     incident.Severity,
		"priority":     incident.Priority,
		"status":       incident.Status,
		"service":      dbutils.ParseNullString(incident.Service),
		"source":       dbutils.ParseNullString(incident.Source),
		"teamId":       incident.TeamId,
		"currentLevel": incident.CurrentLevel,
		"alertCount":   incident.AlertCount,
		"createdAt":    dbutils.ParseNullTimeToString(incident.CreateTime),
	}
}

// matches evaluates one workflow's trigger config against an event.
func matches(def *Definition, wf *client.Workflow, event *Event) bool {
	trigger := def.Trigger
	if trigger.Type != event.Type {
		return false
	}
	if event.Incident == nil {
		return false
	}
	// Team-scoped workflows only react to their own team's incidents.
	if wf.Scope == string(constvar.ScopeTeam) &&
		(!wf.TeamId.Valid || wf.TeamId.Int64 != event.Incident.TeamId) {
		return false
	}

	ictx := incidentContext(event.Incident)
	for field, want := range trigger.Conditions {
		got, ok := ictx[field]
		if !ok || stringify(got) != want {
			return false
		}
	}

	if event.Type == constvar.TriggerStateChanged {
		if trigger.FromStatus != "" && trigger.FromStatus != event.FromStatus {
			return false
		}
		if trigger.ToStatus != "" && trigger.ToStatus != event.ToStatus {
			return false
		}
	}

	if event.Type == constvar.TriggerAge {
		created := dbutils.ParseNullTime(event.Incident.CreateTime)
		if created.IsZero() {
			return false
		}
		age := time.Since(created)
		if age < time.Duration(trigger.AgeMinutes)*time.Minute {
			return false
		}
	}
	return true
}
