/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package normalize maps provider-specific webhook payloads onto the
// canonical alert shape.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

// CanonicalAlert is the provider-independent alert record produced from a
// validated payload.
type CanonicalAlert struct {
	Title       string
	Description string
	Severity    constvar.Severity
	Source      string
	Service     string
	ExternalId  string
	TriggeredAt time.Time
	Tags        []string
	Metadata    map[string]interface{}
}

// ValidationError describes one rejected payload field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Strings flattens validation errors for the validation_errors extension.
func Strings(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.String())
	}
	return out
}

// severityAliases maps provider severity spellings onto the canonical
// levels. Lookups are case-insensitive.
var severityAliases = map[string]constvar.Severity{
	"p1": constvar.SeverityCritical, "emergency": constvar.SeverityCritical, "critical": constvar.SeverityCritical,
	"p2": constvar.SeverityHigh, "error": constvar.SeverityHigh, "high": constvar.SeverityHigh,
	"p3": constvar.SeverityMedium, "warning": constvar.SeverityMedium, "medium": constvar.SeverityMedium, "warn": constvar.SeverityMedium,
	"p4": constvar.SeverityLow, "low": constvar.SeverityLow,
	"info": constvar.SeverityInfo, "informational": constvar.SeverityInfo,
}

// ParseSeverity resolves a provider severity string, reporting whether it
// is a known alias.
func ParseSeverity(raw string) (constvar.Severity, bool) {
	sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return sev, ok
}

// Parse validates and maps the payload for the given provider kind.
// Unknown kinds fall back to the generic schema. The returned validation
// errors are nil when the payload is acceptable.
func Parse(provider constvar.ProviderType, payload []byte) (*CanonicalAlert, []ValidationError) {
	switch provider {
	case constvar.ProviderDatadog:
		return parseDatadog(payload)
	case constvar.ProviderNewRelic:
		return parseNewRelic(payload)
	case constvar.ProviderPagerDuty:
		return parsePagerDuty(payload)
	default:
		return parseGeneric(payload)
	}
}

// genericPayload is the native alert schema. Title, severity and timestamp
// are required.
type genericPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    string          `json:"severity"`
	Source      string          `json:"source"`
	Service     string          `json:"service"`
	Host        string          `json:"host"`
	ExternalId  string          `json:"external_id"`
	AlertId     string          `json:"alert_id"`
	Timestamp   json.RawMessage `json:"timestamp"`
	TriggeredAt json.RawMessage `json:"triggered_at"`
	Tags        []string        `json:"tags"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func parseGeneric(payload []byte) (*CanonicalAlert, []ValidationError) {
	var p genericPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, []ValidationError{{Field: "payload", Message: "payload is not a JSON object"}}
	}

	var errs []ValidationError
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "title is required"})
	}
	severity, ok := ParseSeverity(p.Severity)
	if !ok {
		errs = append(errs, ValidationError{Field: "severity", Message: fmt.Sprintf("unknown severity %q", p.Severity)})
	}

	rawTs := p.Timestamp
	if len(rawTs) == 0 {
		rawTs = p.TriggeredAt
	}
	if len(rawTs) == 0 {
		errs = append(errs, ValidationError{Field: "timestamp", Message: "timestamp is required"})
	}
	triggeredAt, tsErr := parseRawTimestamp(rawTs)
	if len(rawTs) > 0 && tsErr != nil {
		errs = append(errs, ValidationError{Field: "timestamp", Message: tsErr.Error()})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	externalId := p.ExternalId
	if externalId == "" {
		externalId = p.AlertId
	}
	service := p.Service
	if service == "" {
		service = p.Host
	}
	return &CanonicalAlert{
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Severity:    severity,
		Source:      p.Source,
		Service:     service,
		ExternalId:  externalId,
		TriggeredAt: triggeredAt,
		Tags:        p.Tags,
		Metadata:    p.Metadata,
	}, nil
}

// datadogPayload covers the monitor webhook template Datadog ships by
// default.
type datadogPayload struct {
	Title          string          `json:"title"`
	EventTitle     string          `json:"event_title"`
	Body           string          `json:"body"`
	AlertType      string          `json:"alert_type"`
	Priority       string          `json:"priority"`
	Date           json.RawMessage `json:"date"`
	LastUpdated    json.RawMessage `json:"last_updated"`
	Hostname       string          `json:"hostname"`
	AggregationKey string          `json:"aggreg_key"`
	AlertId        string          `json:"alert_id"`
	EventType      string          `json:"event_type"`
	Tags           string          `json:"tags"`
	Org            struct {
		Name string `json:"name"`
	} `json:"org"`
}

func parseDatadog(payload []byte) (*CanonicalAlert, []ValidationError) {
	var p datadogPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, []ValidationError{{Field: "payload", Message: "payload is not a JSON object"}}
	}

	title := p.Title
	if title == "" {
		title = p.EventTitle
	}
	if strings.TrimSpace(title) == "" {
		return nil, []ValidationError{{Field: "title", Message: "title is required"}}
	}

	severity, ok := ParseSeverity(p.AlertType)
	if !ok {
		if severity, ok = ParseSeverity(p.Priority); !ok {
			severity = constvar.SeverityHigh
		}
	}

	rawTs := p.Date
	if len(rawTs) == 0 {
		rawTs = p.LastUpdated
	}
	triggeredAt, err := parseRawTimestamp(rawTs)
	if err != nil {
		return nil, []ValidationError{{Field: "date", Message: err.Error()}}
	}

	var tags []string
	if p.Tags != "" {
		tags = strings.Split(p.Tags, ",")
	}
	metadata := map[string]interface{}{"provider": string(constvar.ProviderDatadog)}
	if p.EventType != "" {
		metadata["event_type"] = p.EventType
	}
	if p.AggregationKey != "" {
		metadata["aggregation_key"] = p.AggregationKey
	}
	return &CanonicalAlert{
		Title:       strings.TrimSpace(title),
		Description: p.Body,
		Severity:    severity,
		Source:      "datadog",
		Service:     p.Hostname,
		ExternalId:  p.AlertId,
		TriggeredAt: triggeredAt,
		Tags:        tags,
		Metadata:    metadata,
	}, nil
}

// newRelicPayload covers the workflow notification schema.
type newRelicPayload struct {
	IssueTitle  string          `json:"issue_title"`
	Title       string          `json:"title"`
	Details     string          `json:"details"`
	Priority    string          `json:"priority"`
	Severity    string          `json:"severity"`
	IssueId     string          `json:"issue_id"`
	CreatedAt   json.RawMessage `json:"created_at"`
	UpdatedAt   json.RawMessage `json:"updated_at"`
	EntityName  string          `json:"entity_name"`
	EntityType  string          `json:"entity_type"`
	PolicyNames []string        `json:"alert_policy_names"`
}

func parseNewRelic(payload []byte) (*CanonicalAlert, []ValidationError) {
	var p newRelicPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, []ValidationError{{Field: "payload", Message: "payload is not a JSON object"}}
	}

	title := p.IssueTitle
	if title == "" {
		title = p.Title
	}
	if strings.TrimSpace(title) == "" {
		return nil, []ValidationError{{Field: "issue_title", Message: "issue_title is required"}}
	}

	severity, ok := ParseSeverity(p.Priority)
	if !ok {
		if severity, ok = ParseSeverity(p.Severity); !ok {
			severity = constvar.SeverityHigh
		}
	}

	rawTs := p.CreatedAt
	if len(rawTs) == 0 {
		rawTs = p.UpdatedAt
	}
	triggeredAt, err := parseRawTimestamp(rawTs)
	if err != nil {
		return nil, []ValidationError{{Field: "created_at", Message: err.Error()}}
	}

	metadata := map[string]interface{}{"provider": string(constvar.ProviderNewRelic)}
	if p.EntityType != "" {
		metadata["entity_type"] = p.EntityType
	}
	if len(p.PolicyNames) > 0 {
		metadata["alert_policy_names"] = p.PolicyNames
	}
	return &CanonicalAlert{
		Title:       strings.TrimSpace(title),
		Description: p.Details,
		Severity:    severity,
		Source:      "newrelic",
		Service:     p.EntityName,
		ExternalId:  p.IssueId,
		TriggeredAt: triggeredAt,
		Metadata:    metadata,
	}, nil
}

// pagerDutyPayload covers the v3 webhook envelope.
type pagerDutyPayload struct {
	Event struct {
		Id         string          `json:"id"`
		EventType  string          `json:"event_type"`
		OccurredAt json.RawMessage `json:"occurred_at"`
		Data       struct {
			Id       string `json:"id"`
			Title    string `json:"title"`
			Summary  string `json:"summary"`
			Urgency  string `json:"urgency"`
			Priority struct {
				Summary string `json:"summary"`
			} `json:"priority"`
			Service struct {
				Summary string `json:"summary"`
			} `json:"service"`
		} `json:"data"`
	} `json:"event"`
}

func parsePagerDuty(payload []byte) (*CanonicalAlert, []ValidationError) {
	var p pagerDutyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, []ValidationError{{Field: "payload", Message: "payload is not a JSON object"}}
	}

	data := p.Event.Data
	title := data.Title
	if title == "" {
		title = data.Summary
	}
	if strings.TrimSpace(title) == "" {
		return nil, []ValidationError{{Field: "event.data.title", Message: "title is required"}}
	}

	severity, ok := ParseSeverity(data.Priority.Summary)
	if !ok {
		// PagerDuty urgency is binary, high urgency pages.
		if strings.EqualFold(data.Urgency, "high") {
			severity = constvar.SeverityHigh
		} else {
			severity = constvar.SeverityLow
		}
	}

	triggeredAt, err := parseRawTimestamp(p.Event.OccurredAt)
	if err != nil {
		return nil, []ValidationError{{Field: "event.occurred_at", Message: err.Error()}}
	}

	externalId := data.Id
	if externalId == "" {
		externalId = p.Event.Id
	}
	return &CanonicalAlert{
		Title:       strings.TrimSpace(title),
		Description: data.Summary,
		Severity:    severity,
		Source:      "pagerduty",
		Service:     data.Service.Summary,
		ExternalId:  externalId,
		TriggeredAt: triggeredAt,
		Metadata: map[string]interface{}{
			"provider":   string(constvar.ProviderPagerDuty),
			"event_type": p.Event.EventType,
		},
	}, nil
}

// parseRawTimestamp decodes a JSON timestamp given as an RFC 3339 string
// or a unix number in seconds or milliseconds. An absent value resolves to
// now so providers that omit event times still normalize.
func parseRawTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Now().UTC(), nil
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return timeutil.FromUnixFlexible(num), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("timestamp must be a string or a number")
	}
	ts, err := timeutil.ParseFlexible(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is not RFC 3339 or unix epoch", s)
	}
	return ts.UTC(), nil
}
