/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"gorm.io/gorm"
)

// autoMigrate creates or updates the schema for every persisted entity.
// Composite and unique indexes are declared on the model tags, so a
// fresh database comes up with the full index set.
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Team{},
		&User{},
		&Integration{},
		&WebhookDelivery{},
		&Alert{},
		&Incident{},
		&EscalationPolicy{},
		&EscalationLevel{},
		&Workflow{},
		&WorkflowVersion{},
		&WorkflowExecution{},
		&Runbook{},
		&RunbookVersion{},
		&RunbookExecution{},
		&AuditLog{},
		&AuditEvent{},
		&Notification{},
		&ApiKey{},
	)
}
