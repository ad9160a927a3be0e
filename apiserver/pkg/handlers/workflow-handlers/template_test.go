/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow_handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
)

func seedTemplate(store *fakeWorkflowStore, name, category string) *dbclient.Workflow {
	store.nextId++
	template := &dbclient.Workflow{
		Id:               store.nextId,
		Name:             name,
		Scope:            string(constvar.ScopeGlobal),
		Definition:       validDefinition(),
		IsTemplate:       true,
		TemplateCategory: dbutils.NullString(category),
	}
	store.workflows[template.Id] = template
	return template
}

func TestListTemplates(t *testing.T) {
	store := newWorkflowStore()
	seedTemplate(store, "notify-slack", "notification")
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleViewer))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/workflow-templates?category=notification", nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body struct {
		Items []WorkflowResponseItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "notify-slack", body.Items[0].Name)
	assert.Equal(t, "notification", body.Items[0].TemplateCategory)
}

func TestUseTemplateCreatesWorkflow(t *testing.T) {
	store := newWorkflowStore()
	template := seedTemplate(store, "notify-slack", "notification")
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))

	payload := `{"name": "payments-notify", "scope": "team", "teamId": 11}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workflow-templates/%d/use", template.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var body WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "payments-notify", body.Name)
	assert.Equal(t, int64(11), body.TeamId)
	assert.Equal(t, 1, body.Version)
	assert.JSONEq(t, template.Definition, string(body.Definition))
	// The new workflow is a plain workflow, not a gallery entry.
	assert.False(t, store.workflows[body.Id].IsTemplate)
}

func TestUseWorkflowIdAsTemplateNotFound(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))
	created := seedWorkflow(t, router, "page-oncall")

	payload := `{"name": "from-workflow"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workflow-templates/%d/use", created.Id), bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSaveTemplateRequiresAdmin(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RoleResponder))

	payload := fmt.Sprintf(`{"name": "notify-slack", "category": "notification", "definition": %s}`, validDefinition())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflow-templates", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestSaveTemplateAsAdmin(t *testing.T) {
	store := newWorkflowStore()
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RolePlatformAdmin))

	payload := fmt.Sprintf(`{"name": "notify-slack", "category": "notification", "definition": %s}`, validDefinition())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workflow-templates", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body WorkflowResponseItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "notification", body.TemplateCategory)
	assert.True(t, store.workflows[body.Id].IsTemplate)
}

func TestDeleteTemplateAsAdmin(t *testing.T) {
	store := newWorkflowStore()
	template := seedTemplate(store, "notify-slack", "notification")
	router := newWorkflowRouter(store, &fakeJobQueue{}, string(constvar.RolePlatformAdmin))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/workflow-templates/%d", template.Id), nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Empty(t, store.workflows)
}
