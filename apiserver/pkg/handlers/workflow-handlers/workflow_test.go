/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeWorkflowStore struct {
	dbclient.Interface

	teams     map[int64]*dbclient.Team
	incidents map[int64]*dbclient.Incident
	workflows map[int64]*dbclient.Workflow
	versions  map[int64][]*dbclient.WorkflowVersion

	executions []*dbclient.WorkflowExecution
	stats      []*dbclient.WorkflowExecutionStat

	nextId int64
}

func (f *fakeWorkflowStore) GetTeam(_ context.Context, id int64) (*dbclient.Team, error) {
	if team, ok := f.teams[id]; ok {
		return team, nil
	}
	return nil, commonerrors.NewNotFound("team", "unknown")
}

func (f *fakeWorkflowStore) GetIncident(_ context.Context, id int64) (*dbclient.Incident, error) {
	if incident, ok := f.incidents[id]; ok {
		return incident, nil
	}
	return nil, commonerrors.NewNotFound("incident", "unknown")
}

func (f *fakeWorkflowStore) InsertWorkflow(_ context.Context, record *dbclient.Workflow, changeNote string) (int64, error) {
	f.nextId++
	record.Id = f.nextId
	record.Version = 1
	f.workflows[record.Id] = record
	f.versions[record.Id] = append(f.versions[record.Id], &dbclient.WorkflowVersion{
		WorkflowId: record.Id,
		Version:    1,
		Definition: record.Definition,
		ChangeNote: dbutils.NullString(changeNote),
	})
	return record.Id, nil
}

func (f *fakeWorkflowStore) GetWorkflow(_ context.Context, id int64) (*dbclient.Workflow, error) {
	if record, ok := f.workflows[id]; ok {
		return record, nil
	}
	return nil, commonerrors.NewNotFound("workflow", "unknown")
}

func (f *fakeWorkflowStore) SelectWorkflows(_ context.Context, query sqrl.Sqlizer, _ []string, _, _ int) ([]*dbclient.Workflow, error) {
	wantTemplate := false
	if query != nil {
		if sql, args, err := query.ToSql(); err == nil && strings.Contains(sql, "is_template") && len(args) > 0 {
			if b, ok := args[0].(bool); ok {
				wantTemplate = b
			}
		}
	}
	var out []*dbclient.Workflow
	for _, record := range f.workflows {
		if record.IsTemplate == wantTemplate {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeWorkflowStore) CountWorkflows(_ context.Context, query sqrl.Sqlizer) (int, error) {
	if query != nil {
		sql, args, err := query.ToSql()
		if err == nil && strings.Contains(sql, "name") && !strings.Contains(sql, "is_template") {
			count := 0
			for _, record := range f.workflows {
				if record.Name == args[0] {
					count++
				}
			}
			return count, nil
		}
	}
	count := 0
	for _, record := range f.workflows {
		if !record.IsTemplate {
			count++
		}
	}
	return count, nil
}

func (f *fakeWorkflowStore) UpdateWorkflowWithVersion(_ context.Context, record *dbclient.Workflow, changeNote string) error {
	record.Version++
	f.workflows[record.Id] = record
	f.versions[record.Id] = append(f.versions[record.Id], &dbclient.WorkflowVersion{
		WorkflowId: record.Id,
		Version:    record.Version,
		Definition: record.Definition,
		ChangeNote: dbutils.NullString(changeNote),
	})
	return nil
}

func (f *fakeWorkflowStore) ToggleWorkflow(_ context.Context, id int64, enabled bool, _ string) (bool, error) {
	record := f.workflows[id]
	if record.Enabled == enabled {
		return false, nil
	}
	record.Enabled = enabled
	return true, nil
}

func (f *fakeWorkflowStore) DeleteWorkflow(_ context.Context, id int64) error {
	delete(f.workflows, id)
	delete(f.versions, id)
	return nil
}

func (f *fakeWorkflowStore) SelectWorkflowVersions(_ context.Context, workflowId int64) ([]*dbclient.WorkflowVersion, error) {
	snapshots := f.versions[workflowId]
	out := make([]*dbclient.WorkflowVersion, 0, len(snapshots))
	for i := len(snapshots) - 1; i >= 0; i-- {
		out = append(out, snapshots[i])
	}
	return out, nil
}

func (f *fakeWorkflowStore) GetWorkflowVersion(_ context.Context, workflowId int64, version int) (*dbclient.WorkflowVersion, error) {
	for _, snapshot := range f.versions[workflowId] {
		if snapshot.Version == version {
			return snapshot, nil
		}
	}
	return nil, commonerrors.NewNotFound("workflow_version", "unknown")
}

func (f *fakeWorkflowStore) UpsertWorkflowTemplate(_ context.Context, template *dbclient.Workflow) error {
	template.IsTemplate = true
	for _, record := range f.workflows {
		if record.Name == template.Name {
			template.Id = record.Id
			f.workflows[record.Id] = template
			return nil
		}
	}
	f.nextId++
	template.Id = f.nextId
	f.workflows[template.Id] = template
	return nil
}

func (f *fakeWorkflowStore) InsertWorkflowExecution(_ context.Context, execution *dbclient.WorkflowExecution) (int64, error) {
	execution.Id = int64(len(f.executions) + 1)
	f.executions = append(f.executions, execution)
	return execution.Id, nil
}

func (f *fakeWorkflowStore) SelectWorkflowExecutions(_ context.Context, _ sqrl.Sqlizer, _ []string, _, _ int) ([]*dbclient.WorkflowExecution, error) {
	return f.executions, nil
}

func (f *fakeWorkflowStore) CountWorkflowExecutions(_ context.Context, _ sqrl.Sqlizer) (int, error) {
	return len(f.executions), nil
}

func (f *fakeWorkflowStore) AggregateWorkflowExecutionStats(_ context.Context, _ int64, _ time.Time) ([]*dbclient.WorkflowExecutionStat, error) {
	return f.stats, nil
}

type fakeJobQueue struct {
	jobs []*queue.Job
}

func (f *fakeJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func stubAuth(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(common.UserId, "42")
		c.Set(common.UserName, "casey")
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func newWorkflowStore() *fakeWorkflowStore {
	return &fakeWorkflowStore{
		teams:     map[int64]*dbclient.Team{11: {Id: 11, Name: "payments"}},
		incidents: map[int64]*dbclient.Incident{},
		workflows: map[int64]*dbclient.Workflow{},
		versions:  map[int64][]*dbclient.WorkflowVersion{},
	}
}

func newWorkflowRouter(store *fakeWorkflowStore, q *fakeJobQueue, role string) *gin.Engine {
	dispatcher := workflow.NewDispatcher(store, q)
	e := gin.New()
	InitWorkflowRouters(e, NewHandler(store, dispatcher), stubAuth(role))
	return e
}

func validDefinition() string {
	return `{
		"nodes": [
			{"id": "start", "type": "trigger"},
			{"id": "notify", "type": "action", "action": {"kind": "webhook", "config": {"url": "https://hooks.example.com/oncall"}}}
		],
		"edges": [{"source": "start", "target": "notify"}],
		"trigger": {"type": "incident_created"},
		"settings": {"timeoutSecond": 300}
	}`
}

func createBody(name string) string {
	return fmt.Sprintf(`{"name": %q, "scope": "team", "teamId": 11, "enabled": true, "definition": %s}`, name, validDefinition())
}

func seedWorkflow(t *testing.T, router *gin.Engine, name string) WorkflowResponseItem {
	t.Helper()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewBufferString(createBody(name))))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var body WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestCreateWorkflow(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))

	created := seedWorkflow(t, router, "page-oncall")
	assert.Equal(t, 1, created.Version)
	assert.True(t, created.Enabled)
	assert.NotEmpty(t, created.Definition)
	require.Len(t, store.versions[created.Id], 1)
}

func TestCreateWorkflowRejectsInvalidDefinition(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))

	// Two trigger nodes are rejected by definition validation.
	payload := `{"name": "broken", "scope": "global", "definition": {
		"nodes": [{"id": "a", "type": "trigger"}, {"id": "b", "type": "trigger"}],
		"trigger": {"type": "incident_created"}}}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "exactly one trigger node")
	assert.Empty(t, store.workflows)
}

func TestCreateWorkflowDuplicateName(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))

	seedWorkflow(t, router, "page-oncall")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewBufferString(createBody("page-oncall"))))

	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestCreateWorkflowTeamScopeRequiresTeamId(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))

	payload := fmt.Sprintf(`{"name": "orphan", "scope": "team", "definition": %s}`, validDefinition())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "teamId is required")
}

func TestUpdateWorkflowBumpsVersion(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	payload := fmt.Sprintf(`{"definition": %s, "changeNote": "retuned retry budget"}`, validDefinition())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/workflows/%d", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Version)

	snapshots := store.versions[created.Id]
	require.Len(t, snapshots, 2)
	assert.Equal(t, 2, snapshots[1].Version)
	assert.Equal(t, "retuned retry budget", snapshots[1].ChangeNote.String)
}

func TestToggleWorkflowIdempotent(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/v1/workflows/%d/toggle", created.Id), bytes.NewBufferString(`{"enabled": false}`)))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body ToggleWorkflowResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.True(t, body.Changed)
	assert.False(t, body.Enabled)

	// Repeating the same request is a no-op.
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/v1/workflows/%d/toggle", created.Id), bytes.NewBufferString(`{"enabled": false}`)))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.False(t, body.Changed)
}

func TestDuplicateWorkflowStartsDisabled(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workflows/%d/duplicate", created.Id), nil))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var body WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "page-oncall (copy)", body.Name)
	assert.False(t, body.Enabled)
	assert.JSONEq(t, string(created.Definition), string(body.Definition))
}

func TestExportImportRoundTrip(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/workflows/%d/export", created.Id), nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var doc ExportDocument
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
	doc.Name = "page-oncall-restored"
	payload, err := json.Marshal(doc)
	require.NoError(t, err)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflows/import", bytes.NewReader(payload)))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var imported WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &imported))
	assert.JSONEq(t, string(created.Definition), string(imported.Definition))
}

func TestExportImportYamlRoundTrip(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/workflows/%d/export?format=yaml", created.Id), nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Contains(t, resp.Header().Get("Content-Type"), "yaml")
	document := strings.Replace(resp.Body.String(), "name: page-oncall", "name: page-oncall-restored", 1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/import", strings.NewReader(document))
	req.Header.Set("Content-Type", "application/yaml")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var imported WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &imported))
	assert.Equal(t, "page-oncall-restored", imported.Name)
	assert.JSONEq(t, string(created.Definition), string(imported.Definition))
}

func TestRollbackWorkflow(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")
	originalDefinition := store.workflows[created.Id].Definition

	payload := fmt.Sprintf(`{"definition": %s}`, validDefinition())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/workflows/%d", created.Id), bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workflows/%d/rollback", created.Id), bytes.NewBufferString(`{"version": 1}`)))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Version)
	assert.JSONEq(t, originalDefinition, store.workflows[created.Id].Definition)
}

func TestRollbackToCurrentVersionRejected(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workflows/%d/rollback", created.Id), bytes.NewBufferString(`{"version": 1}`)))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestExecuteWorkflow(t *testing.T) {
	store := newWorkflowStore()
	store.incidents[7] = &dbclient.Incident{Id: 7, Title: "db down", Severity: "critical", Priority: "P1", Status: string(constvar.IncidentStatusOpen), TeamId: 11}
	q := &fakeJobQueue{}
	router := newWorkflowRouter(store, q, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workflows/%d/execute", created.Id), bytes.NewBufferString(`{"incidentId": 7}`)))

	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	var body ExecuteWorkflowResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.ExecutionId)
	assert.Equal(t, string(constvar.ExecutionStatusPending), body.Status)

	require.Len(t, store.executions, 1)
	assert.Equal(t, string(constvar.TriggerManual), store.executions[0].TriggerType)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, common.JobKindWorkflowExecution, q.jobs[0].Type)
}

func TestExecuteDisabledWorkflowConflict(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")
	store.workflows[created.Id].Enabled = false

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workflows/%d/execute", created.Id), nil))

	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Empty(t, store.executions)
}

func TestWorkflowAnalytics(t *testing.T) {
	store := newWorkflowStore()
	store.stats = []*dbclient.WorkflowExecutionStat{
		{Status: string(constvar.ExecutionStatusCompleted), Count: 8, AvgDurationSecond: 12},
		{Status: string(constvar.ExecutionStatusFailed), Count: 2, AvgDurationSecond: 30},
		{Status: string(constvar.ExecutionStatusRunning), Count: 1},
	}
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleViewer))
	responderRouter := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, responderRouter, "page-oncall")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/workflows/%d/analytics?days=7", created.Id), nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body AnalyticsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 7, body.WindowDays)
	assert.Equal(t, 11, body.Total)
	assert.InDelta(t, 0.8, body.SuccessRate, 0.001)
	assert.InDelta(t, 15.6, body.AvgDurationSecond, 0.001)
	assert.Equal(t, 8, body.ByStatus[string(constvar.ExecutionStatusCompleted)])
}

func TestListWorkflowExcludesTemplates(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	seedWorkflow(t, router, "page-oncall")
	store.nextId++
	store.workflows[store.nextId] = &dbclient.Workflow{Id: store.nextId, Name: "gallery-entry", Scope: "global", IsTemplate: true, Definition: validDefinition()}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body ListWorkflowResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "page-oncall", body.Items[0].Name)
}

func TestViewerCannotMutateWorkflows(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleViewer))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewBufferString(createBody("nope"))))
	require.Equal(t, http.StatusForbidden, resp.Code)
}
