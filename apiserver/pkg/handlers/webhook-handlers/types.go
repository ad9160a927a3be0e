/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package webhook_handlers

// IngestResponse is the body returned for accepted deliveries.
type IngestResponse struct {
	AlertId    int64  `json:"alert_id"`
	IncidentId int64  `json:"incident_id,omitempty"`
	Status     string `json:"status"`
	Title      string `json:"title,omitempty"`
	Severity   string `json:"severity,omitempty"`
	TriggeredAt string `json:"triggered_at,omitempty"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

// TestResponse answers the unauthenticated liveness probe.
type TestResponse struct {
	Integration string `json:"integration"`
	Active      bool   `json:"active"`
	Provider    string `json:"provider"`
}
