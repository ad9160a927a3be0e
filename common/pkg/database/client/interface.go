/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"
)

// AuditLogInterface defines the database operations for api audit logs.
type AuditLogInterface interface {
	InsertAuditLog(ctx context.Context, auditLog *AuditLog) error
	SelectAuditLogs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*AuditLog, error)
	CountAuditLogs(ctx context.Context, query sqrl.Sqlizer) (int, error)
}

// Interface aggregates every per-domain database interface. Handlers and
// services depend on it rather than on *Client so tests can swap in fakes.
type Interface interface {
	TeamInterface
	IntegrationInterface
	DeliveryInterface
	AlertInterface
	IncidentInterface
	EscalationPolicyInterface
	WorkflowInterface
	WorkflowExecutionInterface
	RunbookInterface
	RunbookExecutionInterface
	AuditLogInterface
	AuditEventInterface
	NotificationInterface
	ApiKeyInterface
}

var _ Interface = (*Client)(nil)
