/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/authority"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
)

func TestCreateApiKeyReturnsPlaintextOnce(t *testing.T) {
	store := newFakeAdminStore()
	router := newAdminRouter(store, "responder")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/apikeys",
		strings.NewReader(`{"name":"ci-deploy","ttlDays":30,"whitelist":["10.0.0.0/8"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	apiKey := resp["apiKey"].(string)
	assert.True(t, strings.HasPrefix(apiKey, authority.ApiKeyPrefix))

	// Only the hash hits the store.
	require.Len(t, store.apiKeys, 1)
	for _, record := range store.apiKeys {
		assert.NotEqual(t, apiKey, record.ApiKey)
		assert.Equal(t, authority.HashApiKey(apiKey, authority.GetApiKeySecret()), record.ApiKey)
		assert.Equal(t, "42", record.UserId)
		assert.True(t, record.ExpirationTime.Valid)
	}

	// The listing shows the masked hint, never the key.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/apikeys", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), apiKey)
	assert.Contains(t, w.Body.String(), "****")
}

func TestCreateApiKeyRejectsBadWhitelist(t *testing.T) {
	store := newFakeAdminStore()
	router := newAdminRouter(store, "responder")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/apikeys",
		strings.NewReader(`{"name":"ci","ttlDays":30,"whitelist":["not-an-ip"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "whitelist")
}

func TestListApiKeyOnlyOwnKeys(t *testing.T) {
	store := newFakeAdminStore()
	store.apiKeys[1] = &dbclient.ApiKey{Id: 1, Name: "mine", UserId: "42", KeyHint: "ab-cdef"}
	store.apiKeys[2] = &dbclient.ApiKey{Id: 2, Name: "theirs", UserId: "7", KeyHint: "zz-wxyz"}
	router := newAdminRouter(store, "responder")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/apikeys", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalCount int `json:"totalCount"`
		Items      []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "mine", resp.Items[0].Name)
}

func TestDeleteApiKeyOwnershipEnforced(t *testing.T) {
	store := newFakeAdminStore()
	store.apiKeys[1] = &dbclient.ApiKey{Id: 1, Name: "theirs", UserId: "7"}
	router := newAdminRouter(store, "responder")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/apikeys/1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, store.apiKeys[1].Deleted)
}

func TestDeleteApiKey(t *testing.T) {
	store := newFakeAdminStore()
	store.apiKeys[1] = &dbclient.ApiKey{Id: 1, Name: "mine", UserId: "42"}
	router := newAdminRouter(store, "responder")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/apikeys/1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.apiKeys[1].Deleted)

	// A second delete is rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/apikeys/1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
