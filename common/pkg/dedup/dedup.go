/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package dedup implements the two-level duplicate detection of the
// ingest pipeline: delivery-level suppression of retried webhooks and
// incident-level grouping of alerts for the same underlying problem.
package dedup

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/fingerprint"
	"github.com/beacon-oncall/beacon/common/pkg/normalize"
)

// idempotencyHeaders are probed in order; the first non-empty value wins.
var idempotencyHeaders = []string{
	"Idempotency-Key",
	"X-Idempotency-Key",
	"X-Delivery-Id",
	"X-Request-Id",
	"X-Github-Delivery",
	"X-Datadog-Delivery-Id",
	"X-Trace-Id",
}

// redactedValue replaces header values that may carry credentials.
const redactedValue = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"authorization":    true,
	"x-webhook-secret": true,
	"x-api-key":        true,
	"cookie":           true,
	"set-cookie":       true,
	"proxy-authorization": true,
}

// Store is the slice of the database the deduper needs.
type Store interface {
	FindDeliveryByIdempotencyKey(ctx context.Context, integrationId int64, key string, window time.Duration) (*client.WebhookDelivery, error)
	FindDeliveryByFingerprint(ctx context.Context, integrationId int64, fingerprint string, window time.Duration) (*client.WebhookDelivery, error)
	FindOrCreateOpenIncident(ctx context.Context, candidate *client.Incident, window time.Duration) (*client.Incident, bool, error)
}

// Deduper answers "have we seen this delivery" and routes accepted
// alerts onto open incidents.
type Deduper struct {
	store Store
}

func NewDeduper(store Store) *Deduper {
	return &Deduper{store: store}
}

// ExtractIdempotencyKey returns the provider-supplied delivery id, or
// empty when the request carries none.
func ExtractIdempotencyKey(headers http.Header) string {
	for _, name := range idempotencyHeaders {
		if v := strings.TrimSpace(headers.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// SanitizeHeaders serializes request headers for the delivery receipt
// with credential-bearing values redacted. Multi-valued headers keep
// only their first value.
func SanitizeHeaders(headers http.Header) string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		lower := strings.ToLower(name)
		if sensitiveHeaders[lower] ||
			strings.HasSuffix(lower, "-token") ||
			strings.HasSuffix(lower, "-signature") {
			out[name] = redactedValue
			continue
		}
		out[name] = values[0]
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// FindDuplicate looks for a previously accepted delivery of the same
// event. The idempotency key is checked first; absent a key, the content
// fingerprint decides. A nil return means the delivery is new.
func (d *Deduper) FindDuplicate(ctx context.Context, integrationId int64, idempotencyKey, contentFingerprint string, window time.Duration) (*client.WebhookDelivery, error) {
	if idempotencyKey != "" {
		dup, err := d.store.FindDeliveryByIdempotencyKey(ctx, integrationId, idempotencyKey, window)
		if err != nil || dup != nil {
			return dup, err
		}
	}
	return d.store.FindDeliveryByFingerprint(ctx, integrationId, contentFingerprint, window)
}

// RouteAlert groups the alert onto the open incident with its
// fingerprint inside the window, or opens a new incident seeded from the
// alert. Returns the surviving incident and whether the alert was
// grouped into an existing one.
func (d *Deduper) RouteAlert(ctx context.Context, alert *normalize.CanonicalAlert, integration *client.Integration, window time.Duration) (*client.Incident, bool, error) {
	service := alert.Service
	if service == "" {
		service = dbutils.ParseNullString(integration.Service)
	}
	fp := fingerprint.Incident(alert.Title, alert.Source, string(alert.Severity), service)

	candidate := &client.Incident{
		Fingerprint: fp,
		Title:       alert.Title,
		Description: dbutils.NullString(alert.Description),
		Priority:    string(constvar.PriorityForSeverity(alert.Severity)),
		Severity:    string(alert.Severity),
		Status:      string(constvar.IncidentStatusOpen),
		TeamId:      integration.TeamId,
		Service:     dbutils.NullString(service),
		Source:      dbutils.NullString(alert.Source),
		AlertCount:  1,
	}
	return d.store.FindOrCreateOpenIncident(ctx, candidate, window)
}
