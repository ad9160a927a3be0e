/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package constvar

// Severity represents the normalized severity of an alert or incident.
type Severity string

const (
	// SeverityCritical represents a service-down, page-immediately condition
	SeverityCritical Severity = "CRITICAL"
	// SeverityHigh represents a major degradation that needs urgent attention
	SeverityHigh Severity = "HIGH"
	// SeverityMedium represents a degraded but functioning condition
	SeverityMedium Severity = "MEDIUM"
	// SeverityLow represents a minor issue
	SeverityLow Severity = "LOW"
	// SeverityInfo represents an informational event
	SeverityInfo Severity = "INFO"
)

// Priority is the paging priority of an incident, derived from the
// severity of its first alert.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
	PriorityP5 Priority = "P5"
)

// PriorityForSeverity maps an alert severity to an incident priority.
func PriorityForSeverity(severity Severity) Priority {
	switch severity {
	case SeverityCritical:
		return PriorityP1
	case SeverityHigh:
		return PriorityP2
	case SeverityMedium:
		return PriorityP3
	case SeverityLow:
		return PriorityP4
	default:
		return PriorityP5
	}
}

// AlertStatus represents the lifecycle state of an alert.
type AlertStatus string

const (
	// AlertStatusOpen represents a newly received alert
	AlertStatusOpen AlertStatus = "OPEN"
	// AlertStatusAcknowledged represents an alert a responder has seen
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	// AlertStatusResolved represents a fixed alert
	AlertStatusResolved AlertStatus = "RESOLVED"
	// AlertStatusClosed represents a closed alert (terminal state)
	AlertStatusClosed AlertStatus = "CLOSED"
)

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

const (
	// IncidentStatusOpen represents an incident that is paging
	IncidentStatusOpen IncidentStatus = "OPEN"
	// IncidentStatusAcknowledged represents an incident a responder owns
	IncidentStatusAcknowledged IncidentStatus = "ACKNOWLEDGED"
	// IncidentStatusResolved represents a fixed incident (terminal state)
	IncidentStatusResolved IncidentStatus = "RESOLVED"
)

// ExecutionStatus represents the state of a workflow execution.
type ExecutionStatus string

const (
	// ExecutionStatusPending represents an execution waiting to be claimed
	ExecutionStatusPending ExecutionStatus = "PENDING"
	// ExecutionStatusRunning represents an execution in progress
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	// ExecutionStatusCompleted represents a successful execution (terminal state)
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	// ExecutionStatusFailed represents a failed execution (terminal state)
	ExecutionStatusFailed ExecutionStatus = "FAILED"
	// ExecutionStatusCancelled represents an execution stopped by timeout or operator (terminal state)
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminalExecutionStatus reports whether the execution status is terminal.
func IsTerminalExecutionStatus(status ExecutionStatus) bool {
	switch status {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	}
	return false
}

// RunbookExecutionStatus represents the state of a single runbook invocation.
type RunbookExecutionStatus string

const (
	RunbookExecutionPending RunbookExecutionStatus = "PENDING"
	RunbookExecutionRunning RunbookExecutionStatus = "RUNNING"
	RunbookExecutionSuccess RunbookExecutionStatus = "SUCCESS"
	RunbookExecutionFailed  RunbookExecutionStatus = "FAILED"
)

// NodeStatus represents the outcome of a single workflow node run as
// recorded in the execution's completed-nodes list.
type NodeStatus string

const (
	// NodeStatusCompleted represents a node that finished successfully
	NodeStatusCompleted NodeStatus = "completed"
	// NodeStatusFailed represents a node that exhausted its retries
	NodeStatusFailed NodeStatus = "failed"
	// NodeStatusSkipped represents a node skipped by a condition branch
	NodeStatusSkipped NodeStatus = "skipped"
)

// RunbookStatus represents the review state of a runbook.
type RunbookStatus string

const (
	// RunbookStatusDraft represents an editable, non-executable runbook
	RunbookStatusDraft RunbookStatus = "DRAFT"
	// RunbookStatusApproved represents a reviewed, executable runbook
	RunbookStatusApproved RunbookStatus = "APPROVED"
	// RunbookStatusDeprecated represents a retired runbook
	RunbookStatusDeprecated RunbookStatus = "DEPRECATED"
)

// TriggerType identifies the event class a workflow trigger matches on.
type TriggerType string

const (
	// TriggerIncidentCreated fires when a new incident is opened
	TriggerIncidentCreated TriggerType = "incident_created"
	// TriggerStateChanged fires when an incident changes status
	TriggerStateChanged TriggerType = "state_changed"
	// TriggerEscalation fires when an incident escalates a level
	TriggerEscalation TriggerType = "escalation"
	// TriggerManual fires when an operator runs the workflow by hand
	TriggerManual TriggerType = "manual"
	// TriggerAge fires when an open incident crosses an age threshold
	TriggerAge TriggerType = "age"
)

// TriggeredBy identifies what started a runbook execution.
type TriggeredBy string

const (
	TriggeredByWorkflow TriggeredBy = "workflow"
	TriggeredByManual   TriggeredBy = "manual"
)

// TargetType identifies who an escalation level notifies.
type TargetType string

const (
	TargetUser       TargetType = "user"
	TargetSchedule   TargetType = "schedule"
	TargetEntireTeam TargetType = "entire_team"
)

// TemplateCategory classifies workflow templates in the gallery.
type TemplateCategory string

const (
	TemplateTicketing      TemplateCategory = "Ticketing"
	TemplateCommunication  TemplateCategory = "Communication"
	TemplateAutoResolution TemplateCategory = "Auto-resolution"
)

// WorkflowScope bounds which incidents a workflow may react to.
type WorkflowScope string

const (
	// ScopeTeam restricts the workflow to its owning team's incidents
	ScopeTeam WorkflowScope = "team"
	// ScopeGlobal lets the workflow react to any team's incidents
	ScopeGlobal WorkflowScope = "global"
)

// UserRole is the coarse permission tier of a user or service key.
type UserRole string

const (
	// RolePlatformAdmin may approve runbooks and manage any team's resources
	RolePlatformAdmin UserRole = "platform_admin"
	// RoleResponder may manage resources within their own team
	RoleResponder UserRole = "responder"
	// RoleViewer has read-only access
	RoleViewer UserRole = "viewer"
)

// NotificationStatus represents the delivery state of a queued notification.
type NotificationStatus string

const (
	// NotificationStatusPending represents a notification waiting for dispatch
	NotificationStatusPending NotificationStatus = "PENDING"
	// NotificationStatusSent represents a dispatched notification
	NotificationStatusSent NotificationStatus = "SENT"
	// NotificationStatusFailed represents a notification that could not be dispatched
	NotificationStatusFailed NotificationStatus = "FAILED"
)

// ProviderType identifies the webhook payload dialect of an integration.
type ProviderType string

const (
	// ProviderGeneric accepts the native alert payload schema
	ProviderGeneric ProviderType = "generic"
	// ProviderDatadog accepts Datadog monitor webhooks
	ProviderDatadog ProviderType = "datadog"
	// ProviderNewRelic accepts New Relic alert webhooks
	ProviderNewRelic ProviderType = "newrelic"
	// ProviderPagerDuty accepts PagerDuty event webhooks
	ProviderPagerDuty ProviderType = "pagerduty"
)
