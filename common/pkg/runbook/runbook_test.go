/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runbook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/utils/pkg/httpclient"
)

func restartSchema() map[string]Parameter {
	return map[string]Parameter{
		"service":  {Type: "string", Required: true},
		"replicas": {Type: "number", Default: float64(2)},
		"force":    {Type: "boolean"},
		"env":      {Type: "string", Enum: []interface{}{"staging", "production"}},
	}
}

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema(`{"service":{"type":"string","required":true}}`)
	require.NoError(t, err)
	assert.True(t, schema["service"].Required)

	schema, err = ParseSchema("")
	require.NoError(t, err)
	assert.Empty(t, schema)

	_, err = ParseSchema("{broken")
	assert.Error(t, err)
}

func TestCheckParameters(t *testing.T) {
	effective, err := CheckParameters(restartSchema(), map[string]interface{}{
		"service": "web", "force": true, "env": "staging",
	})
	require.NoError(t, err)
	assert.Equal(t, "web", effective["service"])
	assert.Equal(t, float64(2), effective["replicas"])
	assert.Equal(t, true, effective["force"])
}

func TestCheckParametersFindings(t *testing.T) {
	cases := []struct {
		name     string
		supplied map[string]interface{}
	}{
		{"missing required", map[string]interface{}{}},
		{"wrong type", map[string]interface{}{"service": 7}},
		{"unknown name", map[string]interface{}{"service": "web", "cluster": "a"}},
		{"enum violation", map[string]interface{}{"service": "web", "env": "dev"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CheckParameters(restartSchema(), tc.supplied)
			require.Error(t, err)
			assert.Equal(t, commonerrors.SlugValidationFailed, commonerrors.SlugForError(err))
		})
	}
}

type fakeStore struct {
	runbook    *client.Runbook
	executions []*client.RunbookExecution
	updated    *client.RunbookExecution
}

func (f *fakeStore) GetRunbook(_ context.Context, _ int64) (*client.Runbook, error) {
	return f.runbook, nil
}

func (f *fakeStore) InsertRunbookExecution(_ context.Context, execution *client.RunbookExecution) (int64, error) {
	execution.Id = int64(len(f.executions) + 1)
	f.executions = append(f.executions, execution)
	return execution.Id, nil
}

func (f *fakeStore) UpdateRunbookExecution(_ context.Context, execution *client.RunbookExecution) error {
	f.updated = execution
	return nil
}

type plainDecrypter struct{}

func (plainDecrypter) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

func approvedRunbook(url string) *client.Runbook {
	return &client.Runbook{
		Id:              7,
		Name:            "restart-service",
		WebhookUrl:      url,
		HttpMethod:      http.MethodPost,
		ParameterSchema: dbutils.NullString(`{"service":{"type":"string","required":true}}`),
		PayloadTemplate: dbutils.NullString(`{"action":"restart","service":"{{service}}"}`),
		TimeoutSecond:   30,
		ApprovalStatus:  string(constvar.RunbookStatusApproved),
	}
}

func newTestExecutor(store Store) *Executor {
	return &Executor{store: store, http: httpclient.NewHttpClient(), decrypt: plainDecrypter{}}
}

func TestExecuteSuccess(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf [256]byte
		n, _ := r.Body.Read(buf[:])
		gotBody = string(buf[:n])
		fmt.Fprint(w, `{"restarted":true}`)
	}))
	defer server.Close()

	store := &fakeStore{runbook: approvedRunbook(server.URL)}
	e := newTestExecutor(store)

	execution, err := e.Execute(context.Background(), &Request{
		RunbookId:     7,
		IncidentId:    42,
		Parameters:    map[string]interface{}{"service": "web"},
		TriggeredBy:   constvar.TriggeredByManual,
		TriggeredUser: "alice",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"restart","service":"web"}`, gotBody)
	assert.Equal(t, string(constvar.RunbookExecutionSuccess), execution.Status)
	assert.EqualValues(t, http.StatusOK, execution.StatusCode.Int64)
	assert.Equal(t, `{"restarted":true}`, execution.Result.String)
	assert.EqualValues(t, 42, execution.IncidentId.Int64)
	assert.Equal(t, "alice", execution.TriggeredUser.String)
	require.NotNil(t, store.updated)
	assert.True(t, store.updated.EndTime.Valid)
}

func TestExecuteRecordsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such service", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	store := &fakeStore{runbook: approvedRunbook(server.URL)}
	e := newTestExecutor(store)

	execution, err := e.Execute(context.Background(), &Request{
		RunbookId:   7,
		Parameters:  map[string]interface{}{"service": "web"},
		TriggeredBy: constvar.TriggeredByManual,
	})
	require.Error(t, err)
	require.NotNil(t, execution)
	assert.Equal(t, string(constvar.RunbookExecutionFailed), execution.Status)
	assert.EqualValues(t, http.StatusUnprocessableEntity, execution.StatusCode.Int64)
	assert.Contains(t, execution.ErrorMessage.String, "422")
}

func TestExecuteRefusesUnapproved(t *testing.T) {
	rb := approvedRunbook("https://example.com")
	rb.ApprovalStatus = string(constvar.RunbookStatusDeprecated)
	e := newTestExecutor(&fakeStore{runbook: rb})
	_, err := e.Execute(context.Background(), &Request{RunbookId: 7, TriggeredBy: constvar.TriggeredByManual})
	require.Error(t, err)
	assert.Equal(t, commonerrors.SlugConflict, commonerrors.SlugForError(err))

	rb.ApprovalStatus = string(constvar.RunbookStatusDraft)
	_, err = e.Execute(context.Background(), &Request{RunbookId: 7, TriggeredBy: constvar.TriggeredByManual})
	assert.Error(t, err)
}

func TestExecuteRejectsBadParameters(t *testing.T) {
	store := &fakeStore{runbook: approvedRunbook("https://example.com")}
	e := newTestExecutor(store)
	_, err := e.Execute(context.Background(), &Request{
		RunbookId:   7,
		Parameters:  map[string]interface{}{"service": 9},
		TriggeredBy: constvar.TriggeredByManual,
	})
	require.Error(t, err)
	// Nothing should be persisted for an invalid request.
	assert.Empty(t, store.executions)
}

func TestExecuteAppliesAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	rb := approvedRunbook(server.URL)
	rb.AuthType = dbutils.NullString("bearer")
	rb.AuthConfig = dbutils.NullString(`{"token":"rb-token"}`)
	e := newTestExecutor(&fakeStore{runbook: rb})

	_, err := e.Execute(context.Background(), &Request{
		RunbookId:   7,
		Parameters:  map[string]interface{}{"service": "web"},
		TriggeredBy: constvar.TriggeredByManual,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer rb-token", gotAuth)
}

func TestRunForWorkflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	store := &fakeStore{runbook: approvedRunbook(server.URL)}
	e := newTestExecutor(store)

	config := json.RawMessage(`{"runbookId":7,"parameters":{"service":"web"}}`)
	tctx := map[string]interface{}{
		"incident": map[string]interface{}{"id": float64(42)},
	}
	result, err := e.RunForWorkflow(context.Background(), config, tctx)
	require.NoError(t, err)
	assert.Contains(t, result, "succeeded")
	require.Len(t, store.executions, 1)
	assert.Equal(t, string(constvar.TriggeredByWorkflow), store.executions[0].TriggeredBy)
	assert.EqualValues(t, 42, store.executions[0].IncidentId.Int64)

	_, err = e.RunForWorkflow(context.Background(), json.RawMessage(`{}`), nil)
	assert.Error(t, err)
}
