/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
)

type fakeTriggerStore struct {
	workflows  []*client.Workflow
	incidents  []*client.Incident
	executions []*client.WorkflowExecution
}

func (f *fakeTriggerStore) SelectWorkflows(_ context.Context, _ sqrl.Sqlizer, _ []string, _, _ int) ([]*client.Workflow, error) {
	return f.workflows, nil
}

func (f *fakeTriggerStore) SelectIncidents(_ context.Context, _ sqrl.Sqlizer, _ []string, _, _ int) ([]*client.Incident, error) {
	return f.incidents, nil
}

func (f *fakeTriggerStore) InsertWorkflowExecution(_ context.Context, execution *client.WorkflowExecution) (int64, error) {
	execution.Id = int64(len(f.executions) + 1)
	f.executions = append(f.executions, execution)
	return execution.Id, nil
}

func (f *fakeTriggerStore) GetTeam(_ context.Context, id int64) (*client.Team, error) {
	return &client.Team{Id: id, Name: "core"}, nil
}

func (f *fakeTriggerStore) GetUser(_ context.Context, id int64) (*client.User, error) {
	return &client.User{Id: id, UserName: "alice"}, nil
}

type fakeJobQueue struct {
	jobs []*queue.Job
}

func (f *fakeJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func storedWorkflow(t *testing.T, id int64, def *Definition, scope string, teamId int64) *client.Workflow {
	t.Helper()
	definition, err := def.Marshal()
	require.NoError(t, err)
	wf := &client.Workflow{
		Id: id, Name: "wf", Scope: scope, Enabled: true,
		Version: 1, Definition: definition,
	}
	if teamId != 0 {
		wf.TeamId = dbutils.NullInt64(teamId)
	}
	return wf
}

func openIncident(teamId int64) *client.Incident {
	return &client.Incident{
		Id: 42, TeamId: teamId, Title: "High CPU",
		Severity: "CRITICAL", Priority: "P1",
		Status:     string(constvar.IncidentStatusOpen),
		CreateTime: dbutils.NullTime(time.Now().UTC().Add(-time.Hour)),
	}
}

func TestDispatchMatchesAndEnqueues(t *testing.T) {
	def := linearDefinition()
	def.Trigger.Conditions = map[string]string{"severity": "CRITICAL"}
	store := &fakeTriggerStore{workflows: []*client.Workflow{storedWorkflow(t, 1, def, "global", 0)}}
	q := &fakeJobQueue{}
	d := NewDispatcher(store, q)

	err := d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerIncidentCreated, Incident: openIncident(3),
	})
	require.NoError(t, err)
	require.Len(t, store.executions, 1)
	require.Len(t, q.jobs, 1)

	execution := store.executions[0]
	assert.Equal(t, string(constvar.ExecutionStatusPending), execution.Status)
	assert.Equal(t, string(constvar.TriggerIncidentCreated), execution.TriggerType)
	assert.EqualValues(t, 42, execution.IncidentId.Int64)

	// The context snapshot carries incident, team and workflow sections.
	var tctx map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(execution.Context.String), &tctx))
	assert.Contains(t, tctx, "incident")
	assert.Contains(t, tctx, "team")
	assert.Contains(t, tctx, "workflow")

	job := q.jobs[0]
	assert.Equal(t, common.JobKindWorkflowExecution, job.Type)
	var payload map[string]int64
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.EqualValues(t, execution.Id, payload["executionId"])
}

func TestDispatchFiltersByCondition(t *testing.T) {
	def := linearDefinition()
	def.Trigger.Conditions = map[string]string{"severity": "CRITICAL"}
	store := &fakeTriggerStore{workflows: []*client.Workflow{storedWorkflow(t, 1, def, "global", 0)}}
	q := &fakeJobQueue{}
	d := NewDispatcher(store, q)

	incident := openIncident(3)
	incident.Severity = "LOW"
	require.NoError(t, d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerIncidentCreated, Incident: incident,
	}))
	assert.Empty(t, store.executions)
}

func TestDispatchScopesToTeam(t *testing.T) {
	def := linearDefinition()
	store := &fakeTriggerStore{workflows: []*client.Workflow{
		storedWorkflow(t, 1, def, string(constvar.ScopeTeam), 7),
	}}
	q := &fakeJobQueue{}
	d := NewDispatcher(store, q)

	// Wrong team: no match.
	require.NoError(t, d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerIncidentCreated, Incident: openIncident(3),
	}))
	assert.Empty(t, store.executions)

	// Owning team: match.
	require.NoError(t, d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerIncidentCreated, Incident: openIncident(7),
	}))
	assert.Len(t, store.executions, 1)
}

func TestDispatchStateTransition(t *testing.T) {
	def := linearDefinition()
	def.Trigger.Type = constvar.TriggerStateChanged
	def.Trigger.FromStatus = string(constvar.IncidentStatusOpen)
	def.Trigger.ToStatus = string(constvar.IncidentStatusAcknowledged)
	store := &fakeTriggerStore{workflows: []*client.Workflow{storedWorkflow(t, 1, def, "global", 0)}}
	q := &fakeJobQueue{}
	d := NewDispatcher(store, q)

	require.NoError(t, d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerStateChanged, Incident: openIncident(3),
		FromStatus: string(constvar.IncidentStatusOpen),
		ToStatus:   string(constvar.IncidentStatusResolved),
	}))
	assert.Empty(t, store.executions)

	require.NoError(t, d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerStateChanged, Incident: openIncident(3),
		FromStatus: string(constvar.IncidentStatusOpen),
		ToStatus:   string(constvar.IncidentStatusAcknowledged),
	}))
	assert.Len(t, store.executions, 1)
}

func TestDispatchAgeThreshold(t *testing.T) {
	def := linearDefinition()
	def.Trigger.Type = constvar.TriggerAge
	def.Trigger.AgeMinutes = 30
	store := &fakeTriggerStore{workflows: []*client.Workflow{storedWorkflow(t, 1, def, "global", 0)}}
	q := &fakeJobQueue{}
	d := NewDispatcher(store, q)

	young := openIncident(3)
	young.CreateTime = dbutils.NullTime(time.Now().UTC().Add(-5 * time.Minute))
	require.NoError(t, d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerAge, Incident: young,
	}))
	assert.Empty(t, store.executions)

	require.NoError(t, d.Dispatch(context.Background(), &Event{
		Type: constvar.TriggerAge, Incident: openIncident(3),
	}))
	assert.Len(t, store.executions, 1)
}

func TestExecuteManualBypassesConditions(t *testing.T) {
	def := linearDefinition()
	def.Trigger.Conditions = map[string]string{"severity": "CRITICAL"}
	wf := storedWorkflow(t, 1, def, "global", 0)
	store := &fakeTriggerStore{}
	q := &fakeJobQueue{}
	d := NewDispatcher(store, q)

	incident := openIncident(3)
	incident.Severity = "LOW"
	id, err := d.ExecuteManual(context.Background(), wf, incident)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
	assert.Equal(t, string(constvar.TriggerManual), store.executions[0].TriggerType)
}

func TestScanAgesDispatches(t *testing.T) {
	def := linearDefinition()
	def.Trigger.Type = constvar.TriggerAge
	def.Trigger.AgeMinutes = 30
	store := &fakeTriggerStore{
		workflows: []*client.Workflow{storedWorkflow(t, 1, def, "global", 0)},
		incidents: []*client.Incident{openIncident(3)},
	}
	q := &fakeJobQueue{}
	d := NewDispatcher(store, q)

	require.NoError(t, d.ScanAges(context.Background()))
	assert.Len(t, store.executions, 1)
}
