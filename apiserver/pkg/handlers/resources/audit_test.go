/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
)

func TestListAuditLogRequiresAdmin(t *testing.T) {
	store := newFakeAdminStore()
	router := newAdminRouter(store, "responder")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAuditLogFilters(t *testing.T) {
	store := newFakeAdminStore()
	store.auditLogs = []*dbclient.AuditLog{
		{Id: 1, UserId: "42", HttpMethod: "POST", RequestPath: "/api/v1/runbooks", Action: "create",
			ResourceType: dbutils.NullString("runbook"), ResponseStatus: 201},
		{Id: 2, UserId: "7", HttpMethod: "DELETE", RequestPath: "/api/v1/runbooks/3", Action: "delete",
			ResourceType: dbutils.NullString("runbook"), ResponseStatus: 200},
		{Id: 3, UserId: "42", HttpMethod: "POST", RequestPath: "/api/v1/incidents/9/resolve", Action: "resolve",
			ResourceType: dbutils.NullString("incident"), ResponseStatus: 200},
	}
	router := newAdminRouter(store, "platform_admin")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs?userId=42&resourceType=runbook", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		TotalCount int `json:"totalCount"`
		Items      []struct {
			Action string `json:"action"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "create", resp.Items[0].Action)
}

func TestListAuditEventsBySeverity(t *testing.T) {
	store := newFakeAdminStore()
	store.auditEvents = []*dbclient.AuditEvent{
		{Id: 1, Action: "runbook.approved", Actor: dbutils.NullString("casey"), Severity: "INFO"},
		{Id: 2, Action: "integration.secret_rotated", Actor: dbutils.NullString("casey"), Severity: "MEDIUM",
			Metadata: dbutils.NullString(`{"name":"prom-payments"}`)},
	}
	router := newAdminRouter(store, "platform_admin")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events?severity=MEDIUM", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		TotalCount int `json:"totalCount"`
		Items      []struct {
			Action   string                 `json:"action"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "integration.secret_rotated", resp.Items[0].Action)
	assert.Equal(t, "prom-payments", resp.Items[0].Metadata["name"])
}

func TestListAuditEventsRejectsUnknownSeverity(t *testing.T) {
	store := newFakeAdminStore()
	router := newAdminRouter(store, "platform_admin")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events?severity=bogus", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
