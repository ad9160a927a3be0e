/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
)

func TestParseGeneric(t *testing.T) {
	payload := []byte(`{
		"title": "High CPU on api-1",
		"description": "cpu above 95% for 10m",
		"severity": "critical",
		"source": "prometheus",
		"service": "checkout",
		"external_id": "ev-123",
		"timestamp": "2026-08-24T12:00:00Z",
		"tags": ["env:prod"]
	}`)

	alert, errs := Parse(constvar.ProviderGeneric, payload)
	require.Empty(t, errs)
	assert.Equal(t, "High CPU on api-1", alert.Title)
	assert.Equal(t, constvar.SeverityCritical, alert.Severity)
	assert.Equal(t, "prometheus", alert.Source)
	assert.Equal(t, "checkout", alert.Service)
	assert.Equal(t, "ev-123", alert.ExternalId)
	assert.Equal(t, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC), alert.TriggeredAt)
	assert.Equal(t, []string{"env:prod"}, alert.Tags)
}

func TestParseGenericUnixTimestamps(t *testing.T) {
	alert, errs := Parse(constvar.ProviderGeneric,
		[]byte(`{"title":"t","severity":"high","timestamp":1736467200}`))
	require.Empty(t, errs)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), alert.TriggeredAt)

	alert, errs = Parse(constvar.ProviderGeneric,
		[]byte(`{"title":"t","severity":"high","timestamp":1736467200000}`))
	require.Empty(t, errs)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), alert.TriggeredAt)
}

func TestParseGenericMissingFields(t *testing.T) {
	_, errs := Parse(constvar.ProviderGeneric, []byte(`{"description":"no identity"}`))
	require.Len(t, errs, 3)
	fields := []string{errs[0].Field, errs[1].Field, errs[2].Field}
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "severity")
	assert.Contains(t, fields, "timestamp")
}

func TestParseGenericUnknownSeverity(t *testing.T) {
	_, errs := Parse(constvar.ProviderGeneric,
		[]byte(`{"title":"t","severity":"catastrophic","timestamp":1736467200}`))
	require.Len(t, errs, 1)
	assert.Equal(t, "severity", errs[0].Field)
}

func TestParseGenericNotJson(t *testing.T) {
	_, errs := Parse(constvar.ProviderGeneric, []byte(`plain text`))
	require.Len(t, errs, 1)
	assert.Equal(t, "payload", errs[0].Field)
}

func TestParseGenericAliases(t *testing.T) {
	alert, errs := Parse(constvar.ProviderGeneric,
		[]byte(`{"title":"t","severity":"p2","triggered_at":"2026-08-24T12:00:00Z","alert_id":"a-9","host":"db-1"}`))
	require.Empty(t, errs)
	assert.Equal(t, constvar.SeverityHigh, alert.Severity)
	assert.Equal(t, "a-9", alert.ExternalId)
	assert.Equal(t, "db-1", alert.Service)
}

func TestSeverityAliasTable(t *testing.T) {
	cases := map[string]constvar.Severity{
		"P1": constvar.SeverityCritical, "emergency": constvar.SeverityCritical,
		"p2": constvar.SeverityHigh, "Error": constvar.SeverityHigh,
		"warning": constvar.SeverityMedium, "warn": constvar.SeverityMedium,
		"p4": constvar.SeverityLow,
		"informational": constvar.SeverityInfo,
	}
	for raw, want := range cases {
		sev, ok := ParseSeverity(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, sev, raw)
	}
	_, ok := ParseSeverity("sev0")
	assert.False(t, ok)
}

func TestParseDatadog(t *testing.T) {
	payload := []byte(`{
		"title": "[Triggered] CPU high",
		"body": "%%% cpu on {{host.name}} %%%",
		"alert_type": "error",
		"date": 1736467200000,
		"hostname": "api-1",
		"alert_id": "7001",
		"event_type": "query_alert_monitor",
		"tags": "env:prod,team:core"
	}`)

	alert, errs := Parse(constvar.ProviderDatadog, payload)
	require.Empty(t, errs)
	assert.Equal(t, "[Triggered] CPU high", alert.Title)
	assert.Equal(t, constvar.SeverityHigh, alert.Severity)
	assert.Equal(t, "datadog", alert.Source)
	assert.Equal(t, "api-1", alert.Service)
	assert.Equal(t, "7001", alert.ExternalId)
	assert.Equal(t, []string{"env:prod", "team:core"}, alert.Tags)
	assert.Equal(t, "query_alert_monitor", alert.Metadata["event_type"])
}

func TestParseDatadogDefaultsSeverity(t *testing.T) {
	alert, errs := Parse(constvar.ProviderDatadog,
		[]byte(`{"title":"t","alert_type":"success","date":1736467200}`))
	require.Empty(t, errs)
	assert.Equal(t, constvar.SeverityHigh, alert.Severity)
}

func TestParseNewRelic(t *testing.T) {
	payload := []byte(`{
		"issue_title": "Apdex below threshold",
		"details": "apdex 0.62 on web transactions",
		"priority": "CRITICAL",
		"issue_id": "nr-42",
		"created_at": 1736467200000,
		"entity_name": "web-frontend",
		"alert_policy_names": ["golden-signals"]
	}`)

	alert, errs := Parse(constvar.ProviderNewRelic, payload)
	require.Empty(t, errs)
	assert.Equal(t, "Apdex below threshold", alert.Title)
	assert.Equal(t, constvar.SeverityCritical, alert.Severity)
	assert.Equal(t, "newrelic", alert.Source)
	assert.Equal(t, "web-frontend", alert.Service)
	assert.Equal(t, "nr-42", alert.ExternalId)
}

func TestParsePagerDuty(t *testing.T) {
	payload := []byte(`{
		"event": {
			"id": "evt-1",
			"event_type": "incident.triggered",
			"occurred_at": "2026-08-24T12:00:00Z",
			"data": {
				"id": "PD123",
				"title": "Checkout latency breach",
				"urgency": "high",
				"priority": {"summary": "P1"},
				"service": {"summary": "checkout"}
			}
		}
	}`)

	alert, errs := Parse(constvar.ProviderPagerDuty, payload)
	require.Empty(t, errs)
	assert.Equal(t, "Checkout latency breach", alert.Title)
	assert.Equal(t, constvar.SeverityCritical, alert.Severity)
	assert.Equal(t, "pagerduty", alert.Source)
	assert.Equal(t, "checkout", alert.Service)
	assert.Equal(t, "PD123", alert.ExternalId)
}

func TestParsePagerDutyUrgencyFallback(t *testing.T) {
	alert, errs := Parse(constvar.ProviderPagerDuty,
		[]byte(`{"event":{"occurred_at":1736467200,"data":{"title":"t","urgency":"low"}}}`))
	require.Empty(t, errs)
	assert.Equal(t, constvar.SeverityLow, alert.Severity)
}

func TestValidationErrorStrings(t *testing.T) {
	errs := []ValidationError{{Field: "title", Message: "title is required"}}
	assert.Equal(t, []string{"title: title is required"}, Strings(errs))
}
