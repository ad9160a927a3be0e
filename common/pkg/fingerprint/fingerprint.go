/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package fingerprint hashes normalized payload views so that retried and
// reformatted deliveries of the same event collapse to one value.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

const (
	// longMessageLimit is the description length above which the content
	// fingerprint keeps a hash prefix instead of the text itself.
	longMessageLimit = 100
	// messageHashLen is the hex prefix length kept for long descriptions.
	messageHashLen = 16
)

// Field aliases collapsed during normalization. The first match wins.
var (
	externalIdAliases = []string{"external_id", "externalId", "id", "alert_id"}
	timestampAliases  = []string{"timestamp", "triggered_at", "event_time", "occurred_at"}
	messageAliases    = []string{"message", "description"}
)

// Content produces the 64-hex sha-256 of the normalized payload. Two
// payloads that differ only in key order, string casing, timestamp format
// or tag order fingerprint identically.
func Content(payload []byte) string {
	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		// Not a JSON object, hash the raw bytes.
		return hashHex(payload)
	}
	// encoding/json emits map keys sorted, which makes the serialization
	// deterministic without extra work.
	data, err := json.Marshal(normalize(doc))
	if err != nil {
		return hashHex(payload)
	}
	return hashHex(data)
}

// Incident produces the grouping fingerprint of an alert from the fields
// that identify the underlying problem. It is scoped per team by the
// deduper, so the team id stays out of the hash.
func Incident(title, source, severity, service string) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(source)),
		strings.ToLower(strings.TrimSpace(severity)),
		strings.ToLower(strings.TrimSpace(service)),
	}
	return hashHex([]byte(strings.Join(parts, "\x1f")))
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// normalize rewrites the payload into its canonical view: lower-cased
// identity fields, collapsed aliases, RFC 3339 UTC timestamps, hashed long
// messages and sorted tags.
func normalize(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}

	for _, field := range []string{"title", "severity", "source", "host", "service"} {
		if s, ok := out[field].(string); ok {
			out[field] = strings.ToLower(strings.TrimSpace(s))
		}
	}

	collapseAlias(out, externalIdAliases, "external_id", func(v interface{}) interface{} {
		return asString(v)
	})
	collapseAlias(out, timestampAliases, "timestamp", normalizeTimestamp)
	collapseAlias(out, messageAliases, "message", normalizeMessage)

	if tags, ok := out["tags"].([]interface{}); ok {
		normalized := make([]string, 0, len(tags))
		for _, tag := range tags {
			normalized = append(normalized, strings.ToLower(asString(tag)))
		}
		sort.Strings(normalized)
		out["tags"] = normalized
	}
	return out
}

// collapseAlias keeps the first present alias under the canonical name and
// removes the others so the serialized view is alias-independent.
func collapseAlias(doc map[string]interface{}, aliases []string, canonical string, convert func(interface{}) interface{}) {
	var value interface{}
	found := false
	for _, alias := range aliases {
		v, ok := doc[alias]
		if ok && !found {
			value = convert(v)
			found = true
		}
		delete(doc, alias)
	}
	if found {
		doc[canonical] = value
	}
}

func normalizeTimestamp(v interface{}) interface{} {
	switch ts := v.(type) {
	case string:
		parsed, err := timeutil.ParseFlexible(ts)
		if err != nil {
			return ts
		}
		return parsed.UTC().Format("2006-01-02T15:04:05Z07:00")
	case float64:
		return timeutil.FromUnixFlexible(ts).Format("2006-01-02T15:04:05Z07:00")
	default:
		return v
	}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; ids are kept integral.
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	default:
		return fmt.Sprint(v)
	}
}

func normalizeMessage(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if len(s) > longMessageLimit {
		return hashHex([]byte(s))[:messageHashLen]
	}
	return strings.ToLower(s)
}
