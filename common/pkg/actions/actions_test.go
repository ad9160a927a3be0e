/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/utils/pkg/httpclient"
)

type fakeTicketStore struct {
	alert   *client.Alert
	updated *client.Alert
}

func (f *fakeTicketStore) SelectAlerts(_ context.Context, _ sqrl.Sqlizer, _ []string, _, _ int) ([]*client.Alert, error) {
	if f.alert == nil {
		return nil, nil
	}
	return []*client.Alert{f.alert}, nil
}

func (f *fakeTicketStore) UpdateAlert(_ context.Context, alert *client.Alert) error {
	f.updated = alert
	return nil
}

func newTestRunner(tickets TicketStore) *Runner {
	return NewRunner(httpclient.NewHttpClient(), tickets, nil)
}

func incidentContext(id int64) map[string]interface{} {
	return map[string]interface{}{
		"incident": map[string]interface{}{"id": float64(id)},
	}
}

func TestRunWebhook(t *testing.T) {
	var gotMethod, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		var buf [256]byte
		n, _ := r.Body.Read(buf[:])
		gotBody = string(buf[:n])
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	r := newTestRunner(nil)
	config := fmt.Sprintf(`{"url":%q,"method":"PUT","body":{"text":"hi"},"auth":{"type":"bearer","token":"tok"}}`, server.URL)
	result, err := r.Run(context.Background(), "webhook", json.RawMessage(config), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, result)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.JSONEq(t, `{"text":"hi"}`, gotBody)
}

func TestRunWebhookTruncatesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 4096))
	}))
	defer server.Close()

	r := newTestRunner(nil)
	result, err := r.Run(context.Background(), "webhook",
		json.RawMessage(fmt.Sprintf(`{"url":%q}`, server.URL)), nil)
	require.NoError(t, err)
	assert.Len(t, result, responseBodyLimit)
}

func TestRunWebhookUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	r := newTestRunner(nil)
	_, err := r.Run(context.Background(), "webhook",
		json.RawMessage(fmt.Sprintf(`{"url":%q}`, server.URL)), nil)
	require.Error(t, err)
	assert.True(t, r.Retryable(err))
}

func TestRunWebhookRejectsBadConfig(t *testing.T) {
	r := newTestRunner(nil)

	_, err := r.Run(context.Background(), "webhook", json.RawMessage(`{"method":"POST"}`), nil)
	assert.Error(t, err)

	_, err = r.Run(context.Background(), "webhook",
		json.RawMessage(`{"url":"https://example.com","method":"DELETE"}`), nil)
	assert.Error(t, err)

	_, err = r.Run(context.Background(), "webhook",
		json.RawMessage(`{"url":"https://example.com","auth":{"type":"kerberos"}}`), nil)
	assert.Error(t, err)
}

func TestRunWebhookOAuth2CachesToken(t *testing.T) {
	tokenFetches := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		tokenFetches++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"cached-token","token_type":"bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	var gotAuth string
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "ok")
	}))
	defer target.Close()

	r := newTestRunner(nil)
	config := json.RawMessage(fmt.Sprintf(
		`{"url":%q,"auth":{"type":"oauth2","tokenUrl":%q,"clientId":"cid","clientSecret":"cs"}}`,
		target.URL, tokenServer.URL+"/token"))

	for i := 0; i < 3; i++ {
		_, err := r.Run(context.Background(), "webhook", config, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, "Bearer cached-token", gotAuth)
	assert.Equal(t, 1, tokenFetches)
}

func TestRunWebhookOAuth2RefreshesRevokedToken(t *testing.T) {
	issued := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		issued++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"bearer","expires_in":3600}`, issued)
	}))
	defer tokenServer.Close()

	// The upstream rejects the first token as revoked and accepts the
	// replacement.
	var seen []string
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		seen = append(seen, auth)
		if auth == "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer target.Close()

	r := newTestRunner(nil)
	config := json.RawMessage(fmt.Sprintf(
		`{"url":%q,"auth":{"type":"oauth2","tokenUrl":%q,"clientId":"cid","clientSecret":"cs"}}`,
		target.URL, tokenServer.URL+"/token"))

	result, err := r.Run(context.Background(), "webhook", config, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	assert.Equal(t, 2, issued)
	require.Len(t, seen, 2)
	assert.Equal(t, "Bearer token-1", seen[0])
	assert.Equal(t, "Bearer token-2", seen[1])
}

func TestTokenCacheExpiry(t *testing.T) {
	fetches := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"t","token_type":"bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	now := time.Now()
	cache := newTokenCache()
	cache.now = func() time.Time { return now }

	_, err := cache.Token(context.Background(), tokenServer.URL, "cid", "cs", nil)
	require.NoError(t, err)
	_, err = cache.Token(context.Background(), tokenServer.URL, "cid", "cs", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	// The cap is 60s even when the provider grants an hour.
	now = now.Add(61 * time.Second)
	_, err = cache.Token(context.Background(), tokenServer.URL, "cid", "cs", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
}

func TestRunJiraCreatesIssueAndRecordsTicket(t *testing.T) {
	var gotPath, gotUser string
	var gotFields map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		var body struct {
			Fields map[string]interface{} `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotFields = body.Fields
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"10001","key":"OPS-42"}`)
	}))
	defer server.Close()

	store := &fakeTicketStore{alert: &client.Alert{Id: 5, IncidentId: dbutils.NullInt64(42)}}
	r := newTestRunner(store)
	config := json.RawMessage(fmt.Sprintf(
		`{"baseUrl":%q,"email":"bot@example.com","apiToken":"tok","projectKey":"OPS","summary":"High CPU","description":"on web-01","priority":"High"}`,
		server.URL))

	result, err := r.Run(context.Background(), "jira", config, incidentContext(42))
	require.NoError(t, err)
	assert.Contains(t, result, "OPS-42")
	assert.Equal(t, "/rest/api/3/issue", gotPath)
	assert.Equal(t, "bot@example.com", gotUser)
	assert.Equal(t, "High CPU", gotFields["summary"])

	// Description travels as an ADF document, not a plain string.
	description, ok := gotFields["description"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "doc", description["type"])

	require.NotNil(t, store.updated)
	var metadata map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(store.updated.Metadata.String), &metadata))
	tickets, ok := metadata["tickets"].([]interface{})
	require.True(t, ok)
	require.Len(t, tickets, 1)
	ticket := tickets[0].(map[string]interface{})
	assert.Equal(t, "jira", ticket["type"])
	assert.Equal(t, "OPS-42", ticket["key"])
}

func TestRunLinearCreatesIssue(t *testing.T) {
	var gotAuth string
	var gotInput map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Variables struct {
				Input map[string]interface{} `json:"input"`
			} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotInput = body.Variables.Input
		fmt.Fprint(w, `{"data":{"issueCreate":{"success":true,"issue":{"id":"abc","identifier":"ENG-7","url":"https://linear.app/x/ENG-7"}}}}`)
	}))
	defer server.Close()

	store := &fakeTicketStore{alert: &client.Alert{Id: 5, IncidentId: dbutils.NullInt64(42)}}
	r := newTestRunner(store)
	config := json.RawMessage(fmt.Sprintf(
		`{"endpoint":%q,"apiKey":"lin_key","teamId":"team-1","title":"High CPU","priority":2}`, server.URL))

	result, err := r.Run(context.Background(), "linear", config, incidentContext(42))
	require.NoError(t, err)
	assert.Contains(t, result, "ENG-7")
	assert.Equal(t, "lin_key", gotAuth)
	assert.Equal(t, "High CPU", gotInput["title"])
	require.NotNil(t, store.updated)
	assert.Contains(t, store.updated.Metadata.String, `"linear"`)
}

func TestRunLinearGraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"team not found"}]}`)
	}))
	defer server.Close()

	r := newTestRunner(nil)
	config := json.RawMessage(fmt.Sprintf(
		`{"endpoint":%q,"apiKey":"k","teamId":"t","title":"x"}`, server.URL))
	_, err := r.Run(context.Background(), "linear", config, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team not found")
	// GraphQL errors ride a 200; there is nothing to retry.
	assert.False(t, r.Retryable(err))
}

func TestRunUnknownKind(t *testing.T) {
	r := newTestRunner(nil)
	_, err := r.Run(context.Background(), "pager", nil, nil)
	assert.Error(t, err)

	_, err = r.Run(context.Background(), "runbook", nil, nil)
	assert.Error(t, err)
}

func TestRetryable(t *testing.T) {
	r := newTestRunner(nil)
	assert.True(t, r.Retryable(&HTTPError{StatusCode: 500}))
	assert.True(t, r.Retryable(&HTTPError{StatusCode: 429}))
	assert.True(t, r.Retryable(context.DeadlineExceeded))
	assert.False(t, r.Retryable(&HTTPError{StatusCode: 404}))
	assert.False(t, r.Retryable(fmt.Errorf("config is wrong")))
}
