/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runbook_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/middleware"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/runbook"
	"github.com/beacon-oncall/beacon/utils/pkg/httpclient"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	// Secrets stay plaintext in fixtures.
	commonconfig.SetValue("crypto.enable", "false")
	os.Exit(m.Run())
}

type fakeRunbookStore struct {
	dbclient.Interface

	teams      map[int64]*dbclient.Team
	incidents  map[int64]*dbclient.Incident
	runbooks   map[int64]*dbclient.Runbook
	versions   map[int64][]*dbclient.RunbookVersion
	executions []*dbclient.RunbookExecution
	running    map[int64]int
	nextId     int64
	nextExecId int64
}

func (f *fakeRunbookStore) GetTeam(_ context.Context, id int64) (*dbclient.Team, error) {
	if team, ok := f.teams[id]; ok {
		return team, nil
	}
	return nil, fmt.Errorf("team %d not found", id)
}

func (f *fakeRunbookStore) GetIncident(_ context.Context, id int64) (*dbclient.Incident, error) {
	if incident, ok := f.incidents[id]; ok {
		return incident, nil
	}
	return nil, fmt.Errorf("incident %d not found", id)
}

func (f *fakeRunbookStore) InsertRunbook(_ context.Context, record *dbclient.Runbook, definition string) (int64, error) {
	f.nextId++
	record.Id = f.nextId
	record.Version = 1
	copied := *record
	f.runbooks[record.Id] = &copied
	f.versions[record.Id] = append(f.versions[record.Id], &dbclient.RunbookVersion{
		RunbookId:  record.Id,
		Version:    1,
		Definition: definition,
		ChangedBy:  record.CreatedBy,
	})
	return record.Id, nil
}

func (f *fakeRunbookStore) GetRunbook(_ context.Context, id int64) (*dbclient.Runbook, error) {
	if record, ok := f.runbooks[id]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, fmt.Errorf("runbook %d not found", id)
}

func (f *fakeRunbookStore) SelectRunbooks(_ context.Context, query sqrl.Sqlizer, _ []string, limit, offset int) ([]*dbclient.Runbook, error) {
	matched := f.filterRunbooks(query)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeRunbookStore) CountRunbooks(_ context.Context, query sqrl.Sqlizer) (int, error) {
	return len(f.filterRunbooks(query)), nil
}

func (f *fakeRunbookStore) filterRunbooks(query sqrl.Sqlizer) []*dbclient.Runbook {
	ids := make([]int64, 0, len(f.runbooks))
	for id := range f.runbooks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var nameLike, nameEq, status string
	if query != nil {
		sqlStr, args, _ := query.ToSql()
		idx := 0
		if strings.Contains(sqlStr, "name ILIKE") {
			nameLike = strings.Trim(args[idx].(string), "%")
			idx++
		} else if strings.Contains(sqlStr, "name") {
			nameEq = args[idx].(string)
			idx++
		}
		if strings.Contains(sqlStr, "approval_status") {
			status = args[idx].(string)
		}
	}

	var matched []*dbclient.Runbook
	for _, id := range ids {
		record := f.runbooks[id]
		if nameEq != "" && record.Name != nameEq {
			continue
		}
		if nameLike != "" && !strings.Contains(record.Name, nameLike) {
			continue
		}
		if status != "" && record.ApprovalStatus != status {
			continue
		}
		copied := *record
		matched = append(matched, &copied)
	}
	return matched
}

func (f *fakeRunbookStore) UpdateRunbookWithVersion(_ context.Context, record *dbclient.Runbook, definition, changeNote string) error {
	stored, ok := f.runbooks[record.Id]
	if !ok {
		return fmt.Errorf("runbook %d not found", record.Id)
	}
	if record.Version != stored.Version+1 {
		return fmt.Errorf("runbook %d was modified concurrently", record.Id)
	}
	copied := *record
	f.runbooks[record.Id] = &copied
	f.versions[record.Id] = append(f.versions[record.Id], &dbclient.RunbookVersion{
		RunbookId:  record.Id,
		Version:    record.Version,
		Definition: definition,
		ChangeNote: dbutils.NullString(changeNote),
		ChangedBy:  record.CreatedBy,
	})
	return nil
}

func (f *fakeRunbookStore) DeleteRunbook(_ context.Context, id int64) error {
	delete(f.runbooks, id)
	delete(f.versions, id)
	return nil
}

func (f *fakeRunbookStore) SelectRunbookVersions(_ context.Context, runbookId int64) ([]*dbclient.RunbookVersion, error) {
	versions := append([]*dbclient.RunbookVersion{}, f.versions[runbookId]...)
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version > versions[j].Version })
	return versions, nil
}

func (f *fakeRunbookStore) GetRunbookVersion(_ context.Context, runbookId int64, version int) (*dbclient.RunbookVersion, error) {
	for _, snapshot := range f.versions[runbookId] {
		if snapshot.Version == version {
			return snapshot, nil
		}
	}
	return nil, fmt.Errorf("runbook %d version %d not found", runbookId, version)
}

func (f *fakeRunbookStore) CountRunningRunbookExecutions(_ context.Context, runbookId int64) (int, error) {
	return f.running[runbookId], nil
}

func (f *fakeRunbookStore) InsertRunbookExecution(_ context.Context, execution *dbclient.RunbookExecution) (int64, error) {
	f.nextExecId++
	execution.Id = f.nextExecId
	copied := *execution
	f.executions = append(f.executions, &copied)
	return execution.Id, nil
}

func (f *fakeRunbookStore) UpdateRunbookExecution(_ context.Context, execution *dbclient.RunbookExecution) error {
	for i, stored := range f.executions {
		if stored.Id == execution.Id {
			copied := *execution
			f.executions[i] = &copied
			return nil
		}
	}
	return fmt.Errorf("execution %d not found", execution.Id)
}

func (f *fakeRunbookStore) SelectRunbookExecutions(_ context.Context, query sqrl.Sqlizer, _ []string, limit, offset int) ([]*dbclient.RunbookExecution, error) {
	matched := f.filterExecutions(query)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeRunbookStore) CountRunbookExecutions(_ context.Context, query sqrl.Sqlizer) (int, error) {
	return len(f.filterExecutions(query)), nil
}

func (f *fakeRunbookStore) filterExecutions(query sqrl.Sqlizer) []*dbclient.RunbookExecution {
	var runbookId int64
	var status string
	if query != nil {
		sqlStr, args, _ := query.ToSql()
		idx := 0
		if strings.Contains(sqlStr, "runbook_id") {
			runbookId = args[idx].(int64)
			idx++
		}
		if strings.Contains(sqlStr, "status") {
			status = args[idx].(string)
		}
	}
	var matched []*dbclient.RunbookExecution
	for _, execution := range f.executions {
		if runbookId != 0 && execution.RunbookId != runbookId {
			continue
		}
		if status != "" && execution.Status != status {
			continue
		}
		matched = append(matched, execution)
	}
	return matched
}

type fakeHttpClient struct {
	httpclient.Interface

	status  int
	body    string
	lastReq *http.Request
	lastRaw string
}

func (f *fakeHttpClient) Do(req *http.Request) (*httpclient.Result, error) {
	f.lastReq = req
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		f.lastRaw = string(data)
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &httpclient.Result{StatusCode: status, Body: []byte(f.body)}, nil
}

func stubAuth(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(common.UserId, "42")
		c.Set(common.UserName, "casey")
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func newRunbookStore() *fakeRunbookStore {
	return &fakeRunbookStore{
		teams:     map[int64]*dbclient.Team{11: {Id: 11, Name: "payments"}},
		incidents: map[int64]*dbclient.Incident{},
		runbooks:  map[int64]*dbclient.Runbook{},
		versions:  map[int64][]*dbclient.RunbookVersion{},
		running:   map[int64]int{},
	}
}

func newRunbookRouter(store *fakeRunbookStore, hc *fakeHttpClient, role string) *gin.Engine {
	executor := runbook.NewExecutor(store, hc)
	e := gin.New()
	InitRunbookRouters(e, NewHandler(store, executor), stubAuth(role))
	return e
}

func validCreateBody(name string) string {
	return fmt.Sprintf(`{
		"name": %q,
		"description": "restart the payments consumer",
		"webhookUrl": "https://ops.example.com/hooks/restart",
		"httpMethod": "POST",
		"headers": {"X-Source": "beacon"},
		"parameterSchema": {"service": {"type": "string", "required": true}},
		"payloadTemplate": "{\"service\": \"{{service}}\"}",
		"timeoutSecond": 60,
		"teamId": 11
	}`, name)
}

func seedRunbook(t *testing.T, router *gin.Engine, name string) RunbookResponseItem {
	t.Helper()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/runbooks", bytes.NewBufferString(validCreateBody(name))))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var body RunbookResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func approveRunbook(t *testing.T, store *fakeRunbookStore, hc *fakeHttpClient, id int64) {
	t.Helper()
	admin := newRunbookRouter(store, hc, string(constvar.RolePlatformAdmin))
	resp := httptest.NewRecorder()
	admin.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/approve", id), nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestCreateRunbookStartsDraft(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))

	created := seedRunbook(t, router, "restart-consumer")

	assert.Equal(t, "DRAFT", created.ApprovalStatus)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "casey", created.CreatedBy)
	assert.Empty(t, created.ApprovedBy)
	require.Len(t, store.versions[created.Id], 1)

	// The snapshot freezes the executable fields but never credentials.
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(store.versions[created.Id][0].Definition), &doc))
	assert.Equal(t, "https://ops.example.com/hooks/restart", doc["webhookUrl"])
	assert.NotContains(t, doc, "authConfig")
}

func TestCreateRunbookDuplicateName(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))
	seedRunbook(t, router, "restart-consumer")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/runbooks", bytes.NewBufferString(validCreateBody("restart-consumer"))))

	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
}

func TestCreateRunbookRejectsBadSchema(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))

	payload := `{
		"name": "bad-schema",
		"webhookUrl": "https://ops.example.com/hooks/restart",
		"httpMethod": "POST",
		"parameterSchema": "not an object"
	}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/runbooks", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "parameter schema")
}

func TestCreateRunbookAuthConfigRequired(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))

	payload := `{
		"name": "needs-auth",
		"webhookUrl": "https://ops.example.com/hooks/restart",
		"httpMethod": "POST",
		"authType": "bearer"
	}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/runbooks", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "authConfig is required")
}

func TestApproveRunbookRequiresAdmin(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/approve", created.Id), nil))

	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "DRAFT", store.runbooks[created.Id].ApprovalStatus)
}

func TestApproveRunbook(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")

	approveRunbook(t, store, hc, created.Id)

	stored := store.runbooks[created.Id]
	assert.Equal(t, "APPROVED", stored.ApprovalStatus)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, "casey", stored.ApprovedBy.String)
	assert.True(t, stored.ApprovedAt.Valid)
}

func TestApproveApprovedRunbookConflict(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	admin := newRunbookRouter(store, hc, string(constvar.RolePlatformAdmin))
	resp := httptest.NewRecorder()
	admin.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/approve", created.Id), nil))

	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
}

func TestEditApprovedRunbookDemotesToDraft(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	payload := `{"webhookUrl": "https://ops.example.com/hooks/restart-v2", "changeNote": "point at the new gateway"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	stored := store.runbooks[created.Id]
	assert.Equal(t, "DRAFT", stored.ApprovalStatus)
	assert.Equal(t, 3, stored.Version)
	assert.False(t, stored.ApprovedBy.Valid)
	assert.False(t, stored.ApprovedAt.Valid)

	versions := store.versions[created.Id]
	require.Len(t, versions, 3)
	note := versions[2].ChangeNote.String
	assert.Contains(t, note, "point at the new gateway")
	assert.Contains(t, note, "reverted from APPROVED to DRAFT")
}

func TestEditMetadataKeepsApproval(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	payload := `{"description": "now covers the refund consumer too"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	stored := store.runbooks[created.Id]
	assert.Equal(t, "APPROVED", stored.ApprovalStatus)
	assert.True(t, stored.ApprovedBy.Valid)
}

func TestDeprecateRunbook(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	admin := newRunbookRouter(store, hc, string(constvar.RolePlatformAdmin))
	payload := `{"reason": "replaced by the fleet restarter"}`
	resp := httptest.NewRecorder()
	admin.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/deprecate", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	stored := store.runbooks[created.Id]
	assert.Equal(t, "DEPRECATED", stored.ApprovalStatus)
	versions := store.versions[created.Id]
	assert.Contains(t, versions[len(versions)-1].ChangeNote.String, "replaced by the fleet restarter")
}

func TestDeprecateDraftRunbookConflict(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")

	admin := newRunbookRouter(store, hc, string(constvar.RolePlatformAdmin))
	resp := httptest.NewRecorder()
	admin.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/deprecate", created.Id), nil))

	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
}

func TestExecuteApprovedRunbook(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{status: http.StatusOK, body: `{"restarted": true}`}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	payload := `{"parameters": {"service": "payments-consumer"}}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/execute", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var body RunbookExecutionResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "SUCCESS", body.Status)
	assert.Equal(t, "manual", body.TriggeredBy)
	assert.Equal(t, "casey", body.TriggeredUser)
	assert.Equal(t, int64(http.StatusOK), body.StatusCode)

	require.NotNil(t, hc.lastReq)
	assert.Equal(t, http.MethodPost, hc.lastReq.Method)
	assert.Equal(t, "beacon", hc.lastReq.Header.Get("X-Source"))
	assert.JSONEq(t, `{"service": "payments-consumer"}`, hc.lastRaw)
}

func TestExecuteDraftRunbookConflict(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")

	payload := `{"parameters": {"service": "payments-consumer"}}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/execute", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "not approved")
	assert.Empty(t, store.executions)
}

func TestExecuteRejectsUnknownParameter(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	payload := `{"parameters": {"service": "payments-consumer", "force": true}}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/execute", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "unknown parameter")
}

func TestExecuteFailedWebhookReturnsRow(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{status: http.StatusBadGateway, body: "upstream down"}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	payload := `{"parameters": {"service": "payments-consumer"}}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/execute", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var body RunbookExecutionResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "FAILED", body.Status)
	assert.Equal(t, int64(http.StatusBadGateway), body.StatusCode)
	assert.Contains(t, body.ErrorMessage, "502")
}

func TestDeleteRunbookBlockedWhileRunning(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	store.running[created.Id] = 1

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), nil))

	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "running execution")
	assert.Contains(t, store.runbooks, created.Id)
}

func TestDeleteRunbook(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Empty(t, store.runbooks)
	assert.Empty(t, store.versions)
}

func TestRollbackRunbookForcesDraft(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	// Version 3 points at a new gateway; roll back to the original.
	payload := `{"webhookUrl": "https://ops.example.com/hooks/restart-v2"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/rollback", created.Id), bytes.NewBufferString(`{"version": 1}`)))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	stored := store.runbooks[created.Id]
	assert.Equal(t, 4, stored.Version)
	assert.Equal(t, "DRAFT", stored.ApprovalStatus)
	assert.Equal(t, "https://ops.example.com/hooks/restart", stored.WebhookUrl)
	versions := store.versions[created.Id]
	assert.Equal(t, "rolled back to version 1", versions[len(versions)-1].ChangeNote.String)
}

func TestRollbackToCurrentVersionRejected(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/rollback", created.Id), bytes.NewBufferString(`{"version": 1}`)))

	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestListRunbooksByStatus(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	approved := seedRunbook(t, router, "restart-consumer")
	seedRunbook(t, router, "rotate-credentials")
	approveRunbook(t, store, hc, approved.Id)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runbooks?approvalStatus=APPROVED", nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body ListRunbookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, 1, body.TotalCount)
	assert.Equal(t, "restart-consumer", body.Items[0].Name)
}

func TestGetRunbookRedactsAuthConfig(t *testing.T) {
	store := newRunbookStore()
	router := newRunbookRouter(store, &fakeHttpClient{}, string(constvar.RoleResponder))

	payload := `{
		"name": "calls-jira",
		"webhookUrl": "https://ops.example.com/hooks/jira",
		"httpMethod": "POST",
		"authType": "bearer",
		"authConfig": {"token": "s3cret"}
	}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/runbooks", bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created RunbookResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "bearer", created.AuthType)
	assert.NotContains(t, resp.Body.String(), "s3cret")
	// The stored row still carries the credentials for the executor.
	assert.Contains(t, store.runbooks[created.Id].AuthConfig.String, "s3cret")
}

func TestListExecutions(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{status: http.StatusOK, body: "ok"}
	router := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, router, "restart-consumer")
	approveRunbook(t, store, hc, created.Id)

	payload := `{"parameters": {"service": "payments-consumer"}}`
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/runbooks/%d/execute", created.Id), bytes.NewBufferString(payload)))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/runbooks/%d/executions?status=SUCCESS", created.Id), nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body ListRunbookExecutionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 2, body.TotalCount)
}

func TestViewerCannotMutateRunbooks(t *testing.T) {
	store := newRunbookStore()
	hc := &fakeHttpClient{}
	writer := newRunbookRouter(store, hc, string(constvar.RoleResponder))
	created := seedRunbook(t, writer, "restart-consumer")

	viewer := newRunbookRouter(store, hc, string(constvar.RoleViewer))
	resp := httptest.NewRecorder()
	viewer.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), nil))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = httptest.NewRecorder()
	viewer.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/runbooks/%d", created.Id), nil))
	require.Equal(t, http.StatusOK, resp.Code)
}
