/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
)

const (
	DESC = "desc"
	ASC  = "asc"

	CreateTime  = "create_time"
	TriggeredAt = "triggered_at"
)

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// generateCommand generates SQL command string using reflection
// Iterates through struct fields and builds column and value lists
// Skips fields with specified ignoreTag
// Returns formatted SQL command with columns and values
func generateCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}

type Team struct {
	Id          int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name        string         `db:"name" gorm:"column:name;size:128;not null;uniqueIndex"`
	DisplayName sql.NullString `db:"display_name" gorm:"column:display_name;size:256"`
	Description sql.NullString `db:"description" gorm:"column:description;type:text"`
	CreateTime  pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime  pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetTeamFieldTags returns the TeamFieldTags value.
func GetTeamFieldTags() map[string]string {
	t := Team{}
	return getFieldTags(t)
}

func (*Team) TableName() string {
	return TTeam
}

type User struct {
	Id          int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserName    string         `db:"user_name" gorm:"column:user_name;size:128;not null;uniqueIndex"`
	DisplayName sql.NullString `db:"display_name" gorm:"column:display_name;size:256"`
	Email       sql.NullString `db:"email" gorm:"column:email;size:256"`
	Role        string         `db:"role" gorm:"column:role;size:32;not null"`
	TeamId      sql.NullInt64  `db:"team_id" gorm:"column:team_id;index"`
	Active      bool           `db:"active" gorm:"column:active;default:true"`
	CreateTime  pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime  pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetUserFieldTags returns the UserFieldTags value.
func GetUserFieldTags() map[string]string {
	u := User{}
	return getFieldTags(u)
}

func (*User) TableName() string {
	return TUser
}

// Integration is a signed webhook source. The signing secret is stored
// encrypted and is never returned after creation; SecretHint keeps the
// first characters for display.
type Integration struct {
	Id                    int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name                  string         `db:"name" gorm:"column:name;size:128;not null;uniqueIndex"`
	Provider              string         `db:"provider" gorm:"column:provider;size:32;not null"`
	TeamId                int64          `db:"team_id" gorm:"column:team_id;not null;index"`
	Service               sql.NullString `db:"service" gorm:"column:service;size:128"`
	SigningSecret         string         `db:"signing_secret" gorm:"column:signing_secret;size:512;not null"`
	SecretHint            string         `db:"secret_hint" gorm:"column:secret_hint;size:16"`
	SignatureHeader       string         `db:"signature_header" gorm:"column:signature_header;size:128;not null"`
	Algorithm             string         `db:"algorithm" gorm:"column:algorithm;size:16;not null"`
	Format                string         `db:"format" gorm:"column:format;size:16;not null"`
	Prefix                sql.NullString `db:"prefix" gorm:"column:prefix;size:32"`
	TimestampHeader       sql.NullString `db:"timestamp_header" gorm:"column:timestamp_header;size:128"`
	TimestampMaxAgeSecond int            `db:"timestamp_max_age_second" gorm:"column:timestamp_max_age_second;default:300"`
	DedupWindowMinute     int            `db:"dedup_window_minute" gorm:"column:dedup_window_minute;default:15"`
	Active                bool           `db:"active" gorm:"column:active;default:true"`
	CreatedBy             sql.NullString `db:"created_by" gorm:"column:created_by;size:128"`
	CreateTime            pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime            pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetIntegrationFieldTags returns the IntegrationFieldTags value.
func GetIntegrationFieldTags() map[string]string {
	i := Integration{}
	return getFieldTags(i)
}

func (*Integration) TableName() string {
	return TIntegration
}

// WebhookDelivery is the immutable receipt written for every inbound
// webhook request, including duplicates and rejected ones.
type WebhookDelivery struct {
	Id                 int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	IntegrationId      int64          `db:"integration_id" gorm:"column:integration_id;not null;index:idx_delivery_fingerprint,priority:1;index:idx_delivery_idem,priority:1"`
	AlertId            sql.NullInt64  `db:"alert_id" gorm:"column:alert_id"`
	IdempotencyKey     sql.NullString `db:"idempotency_key" gorm:"column:idempotency_key;size:256;index:idx_delivery_idem,priority:2"`
	ContentFingerprint string         `db:"content_fingerprint" gorm:"column:content_fingerprint;size:64;index:idx_delivery_fingerprint,priority:2"`
	Payload            []byte         `db:"payload" gorm:"column:payload;type:jsonb"`
	Headers            sql.NullString `db:"headers" gorm:"column:headers;type:jsonb"`
	StatusCode         int            `db:"status_code" gorm:"column:status_code"`
	ErrorMessage       sql.NullString `db:"error_message" gorm:"column:error_message;type:text"`
	CreateTime         pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz;index:idx_delivery_fingerprint,priority:3;index:idx_delivery_idem,priority:3"`
}

// GetWebhookDeliveryFieldTags returns the WebhookDeliveryFieldTags value.
func GetWebhookDeliveryFieldTags() map[string]string {
	d := WebhookDelivery{}
	return getFieldTags(d)
}

func (*WebhookDelivery) TableName() string {
	return TWebhookDelivery
}

type Alert struct {
	Id            int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	IntegrationId int64          `db:"integration_id" gorm:"column:integration_id;not null;index:idx_alert_integration,priority:1"`
	IncidentId    sql.NullInt64  `db:"incident_id" gorm:"column:incident_id;index"`
	Title         string         `db:"title" gorm:"column:title;size:512;not null"`
	Description   sql.NullString `db:"description" gorm:"column:description;type:text"`
	Severity      string         `db:"severity" gorm:"column:severity;size:16;not null;index:idx_alert_severity,priority:1"`
	Status        string         `db:"status" gorm:"column:status;size:16;not null;index:idx_alert_status,priority:1"`
	Source        sql.NullString `db:"source" gorm:"column:source;size:256"`
	Service       sql.NullString `db:"service" gorm:"column:service;size:128"`
	ExternalId    sql.NullString `db:"external_id" gorm:"column:external_id;size:256"`
	Fingerprint   string         `db:"fingerprint" gorm:"column:fingerprint;size:64"`
	Tags          sql.NullString `db:"tags" gorm:"column:tags;type:jsonb"`
	Metadata      sql.NullString `db:"metadata" gorm:"column:metadata;type:jsonb"`
	TriggeredAt   pq.NullTime    `db:"triggered_at" gorm:"column:triggered_at;type:timestamptz;index:idx_alert_integration,priority:2;index:idx_alert_status,priority:2;index:idx_alert_severity,priority:2"`
	CreateTime    pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime    pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetAlertFieldTags returns the AlertFieldTags value.
func GetAlertFieldTags() map[string]string {
	a := Alert{}
	return getFieldTags(a)
}

func (*Alert) TableName() string {
	return TAlert
}

// Incident groups alerts that share a dedup fingerprint. While an
// incident stays OPEN, new alerts with the same fingerprint inside the
// dedup window attach to it instead of opening a new one.
type Incident struct {
	Id                 int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Fingerprint        string         `db:"fingerprint" gorm:"column:fingerprint;size:64;not null;index:idx_incident_fingerprint,priority:1"`
	Title              string         `db:"title" gorm:"column:title;size:512;not null"`
	Description        sql.NullString `db:"description" gorm:"column:description;type:text"`
	Priority           string         `db:"priority" gorm:"column:priority;size:8;not null"`
	Severity           string         `db:"severity" gorm:"column:severity;size:16;not null"`
	Status             string         `db:"status" gorm:"column:status;size:16;not null;index:idx_incident_fingerprint,priority:3"`
	TeamId             int64          `db:"team_id" gorm:"column:team_id;not null;index:idx_incident_fingerprint,priority:2"`
	Service            sql.NullString `db:"service" gorm:"column:service;size:128"`
	Source             sql.NullString `db:"source" gorm:"column:source;size:256"`
	AssignedUserId     sql.NullInt64  `db:"assigned_user_id" gorm:"column:assigned_user_id"`
	EscalationPolicyId sql.NullInt64  `db:"escalation_policy_id" gorm:"column:escalation_policy_id"`
	CurrentLevel       int            `db:"current_level" gorm:"column:current_level;default:0"`
	RepeatCycle        int            `db:"repeat_cycle" gorm:"column:repeat_cycle;default:0"`
	AlertCount         int            `db:"alert_count" gorm:"column:alert_count;default:0"`
	AcknowledgedBy     sql.NullString `db:"acknowledged_by" gorm:"column:acknowledged_by;size:128"`
	AcknowledgedAt     pq.NullTime    `db:"acknowledged_at" gorm:"column:acknowledged_at;type:timestamptz"`
	ResolvedBy         sql.NullString `db:"resolved_by" gorm:"column:resolved_by;size:128"`
	ResolvedAt         pq.NullTime    `db:"resolved_at" gorm:"column:resolved_at;type:timestamptz"`
	ResolutionNote     sql.NullString `db:"resolution_note" gorm:"column:resolution_note;type:text"`
	CreateTime         pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime         pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetIncidentFieldTags returns the IncidentFieldTags value.
func GetIncidentFieldTags() map[string]string {
	i := Incident{}
	return getFieldTags(i)
}

func (*Incident) TableName() string {
	return TIncident
}

type EscalationPolicy struct {
	Id          int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name        string         `db:"name" gorm:"column:name;size:128;not null"`
	Description sql.NullString `db:"description" gorm:"column:description;type:text"`
	TeamId      int64          `db:"team_id" gorm:"column:team_id;not null;index"`
	RepeatCount int            `db:"repeat_count" gorm:"column:repeat_count;default:0"`
	IsDefault   bool           `db:"is_default" gorm:"column:is_default;default:false"`
	CreatedBy   sql.NullString `db:"created_by" gorm:"column:created_by;size:128"`
	CreateTime  pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime  pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetEscalationPolicyFieldTags returns the EscalationPolicyFieldTags value.
func GetEscalationPolicyFieldTags() map[string]string {
	p := EscalationPolicy{}
	return getFieldTags(p)
}

func (*EscalationPolicy) TableName() string {
	return TEscalationPolicy
}

// EscalationLevel numbers are dense per policy and start at 1. Targets
// is a JSON array of {type, id} where type is user, schedule or
// entire_team.
type EscalationLevel struct {
	Id            int64       `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	PolicyId      int64       `db:"policy_id" gorm:"column:policy_id;not null;uniqueIndex:uniq_policy_level,priority:1"`
	Level         int         `db:"level" gorm:"column:level;not null;uniqueIndex:uniq_policy_level,priority:2"`
	TimeoutMinute int         `db:"timeout_minute" gorm:"column:timeout_minute;not null"`
	Targets       string      `db:"targets" gorm:"column:targets;type:jsonb"`
	CreateTime    pq.NullTime `db:"create_time" gorm:"column:create_time;type:timestamptz"`
}

// GetEscalationLevelFieldTags returns the EscalationLevelFieldTags value.
func GetEscalationLevelFieldTags() map[string]string {
	l := EscalationLevel{}
	return getFieldTags(l)
}

func (*EscalationLevel) TableName() string {
	return TEscalationLevel
}

type Workflow struct {
	Id               int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name             string         `db:"name" gorm:"column:name;size:256;not null;uniqueIndex"`
	Description      sql.NullString `db:"description" gorm:"column:description;type:text"`
	Scope            string         `db:"scope" gorm:"column:scope;size:16;not null"`
	TeamId           sql.NullInt64  `db:"team_id" gorm:"column:team_id;index"`
	Version          int            `db:"version" gorm:"column:version;default:1"`
	Enabled          bool           `db:"enabled" gorm:"column:enabled;default:true"`
	Definition       string         `db:"definition" gorm:"column:definition;type:jsonb;not null"`
	IsTemplate       bool           `db:"is_template" gorm:"column:is_template;default:false"`
	TemplateCategory sql.NullString `db:"template_category" gorm:"column:template_category;size:32"`
	CreatedBy        sql.NullString `db:"created_by" gorm:"column:created_by;size:128"`
	UpdatedBy        sql.NullString `db:"updated_by" gorm:"column:updated_by;size:128"`
	CreateTime       pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime       pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetWorkflowFieldTags returns the WorkflowFieldTags value.
func GetWorkflowFieldTags() map[string]string {
	w := Workflow{}
	return getFieldTags(w)
}

func (*Workflow) TableName() string {
	return TWorkflow
}

type WorkflowVersion struct {
	Id         int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	WorkflowId int64          `db:"workflow_id" gorm:"column:workflow_id;not null;uniqueIndex:uniq_workflow_version,priority:1"`
	Version    int            `db:"version" gorm:"column:version;not null;uniqueIndex:uniq_workflow_version,priority:2"`
	Definition string         `db:"definition" gorm:"column:definition;type:jsonb;not null"`
	ChangeNote sql.NullString `db:"change_note" gorm:"column:change_note;type:text"`
	ChangedBy  sql.NullString `db:"changed_by" gorm:"column:changed_by;size:128"`
	CreateTime pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
}

// GetWorkflowVersionFieldTags returns the WorkflowVersionFieldTags value.
func GetWorkflowVersionFieldTags() map[string]string {
	v := WorkflowVersion{}
	return getFieldTags(v)
}

func (*WorkflowVersion) TableName() string {
	return TWorkflowVersion
}

// WorkflowExecution keeps the definition and template context frozen at
// enqueue time. CompletedNodes is an append-only JSON array of node
// results and is the source of truth for execution progress.
type WorkflowExecution struct {
	Id             int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	WorkflowId     int64          `db:"workflow_id" gorm:"column:workflow_id;not null;index"`
	IncidentId     sql.NullInt64  `db:"incident_id" gorm:"column:incident_id;index"`
	Status         string         `db:"status" gorm:"column:status;size:16;not null;index"`
	TriggerType    string         `db:"trigger_type" gorm:"column:trigger_type;size:32;not null"`
	Definition     string         `db:"definition" gorm:"column:definition;type:jsonb;not null"`
	Context        sql.NullString `db:"context" gorm:"column:context;type:jsonb"`
	CurrentNodeId  sql.NullString `db:"current_node_id" gorm:"column:current_node_id;size:128"`
	CompletedNodes sql.NullString `db:"completed_nodes" gorm:"column:completed_nodes;type:jsonb"`
	ErrorMessage   sql.NullString `db:"error_message" gorm:"column:error_message;type:text"`
	StartTime      pq.NullTime    `db:"start_time" gorm:"column:start_time;type:timestamptz"`
	EndTime        pq.NullTime    `db:"end_time" gorm:"column:end_time;type:timestamptz"`
	CreateTime     pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime     pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetWorkflowExecutionFieldTags returns the WorkflowExecutionFieldTags value.
func GetWorkflowExecutionFieldTags() map[string]string {
	e := WorkflowExecution{}
	return getFieldTags(e)
}

func (*WorkflowExecution) TableName() string {
	return TWorkflowExecution
}

type Runbook struct {
	Id              int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name            string         `db:"name" gorm:"column:name;size:256;not null;uniqueIndex"`
	Description     sql.NullString `db:"description" gorm:"column:description;type:text"`
	WebhookUrl      string         `db:"webhook_url" gorm:"column:webhook_url;size:1024;not null"`
	HttpMethod      string         `db:"http_method" gorm:"column:http_method;size:8;not null"`
	Headers         sql.NullString `db:"headers" gorm:"column:headers;type:jsonb"`
	AuthType        sql.NullString `db:"auth_type" gorm:"column:auth_type;size:16"`
	AuthConfig      sql.NullString `db:"auth_config" gorm:"column:auth_config;size:1024"`
	ParameterSchema sql.NullString `db:"parameter_schema" gorm:"column:parameter_schema;type:jsonb"`
	PayloadTemplate sql.NullString `db:"payload_template" gorm:"column:payload_template;type:text"`
	TimeoutSecond   int            `db:"timeout_second" gorm:"column:timeout_second;default:300"`
	TeamId          sql.NullInt64  `db:"team_id" gorm:"column:team_id;index"`
	Version         int            `db:"version" gorm:"column:version;default:1"`
	ApprovalStatus  string         `db:"approval_status" gorm:"column:approval_status;size:16;not null"`
	ApprovedBy      sql.NullString `db:"approved_by" gorm:"column:approved_by;size:128"`
	ApprovedAt      pq.NullTime    `db:"approved_at" gorm:"column:approved_at;type:timestamptz"`
	CreatedBy       sql.NullString `db:"created_by" gorm:"column:created_by;size:128"`
	CreateTime      pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
	UpdateTime      pq.NullTime    `db:"update_time" gorm:"column:update_time;type:timestamptz"`
}

// GetRunbookFieldTags returns the RunbookFieldTags value.
func GetRunbookFieldTags() map[string]string {
	r := Runbook{}
	return getFieldTags(r)
}

func (*Runbook) TableName() string {
	return TRunbook
}

type RunbookVersion struct {
	Id         int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RunbookId  int64          `db:"runbook_id" gorm:"column:runbook_id;not null;uniqueIndex:uniq_runbook_version,priority:1"`
	Version    int            `db:"version" gorm:"column:version;not null;uniqueIndex:uniq_runbook_version,priority:2"`
	Definition string         `db:"definition" gorm:"column:definition;type:jsonb;not null"`
	ChangeNote sql.NullString `db:"change_note" gorm:"column:change_note;type:text"`
	ChangedBy  sql.NullString `db:"changed_by" gorm:"column:changed_by;size:128"`
	CreateTime pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
}

// GetRunbookVersionFieldTags returns the RunbookVersionFieldTags value.
func GetRunbookVersionFieldTags() map[string]string {
	v := RunbookVersion{}
	return getFieldTags(v)
}

func (*RunbookVersion) TableName() string {
	return TRunbookVersion
}

type RunbookExecution struct {
	Id            int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RunbookId     int64          `db:"runbook_id" gorm:"column:runbook_id;not null;index"`
	IncidentId    sql.NullInt64  `db:"incident_id" gorm:"column:incident_id;index"`
	Parameters    sql.NullString `db:"parameters" gorm:"column:parameters;type:jsonb"`
	TriggeredBy   string         `db:"triggered_by" gorm:"column:triggered_by;size:16;not null"`
	TriggeredUser sql.NullString `db:"triggered_user" gorm:"column:triggered_user;size:128"`
	Status        string         `db:"status" gorm:"column:status;size:16;not null;index"`
	StatusCode    sql.NullInt64  `db:"status_code" gorm:"column:status_code"`
	Result        sql.NullString `db:"result" gorm:"column:result;type:text"`
	ErrorMessage  sql.NullString `db:"error_message" gorm:"column:error_message;type:text"`
	DurationMs    sql.NullInt64  `db:"duration_ms" gorm:"column:duration_ms"`
	StartTime     pq.NullTime    `db:"start_time" gorm:"column:start_time;type:timestamptz"`
	EndTime       pq.NullTime    `db:"end_time" gorm:"column:end_time;type:timestamptz"`
	CreateTime    pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
}

// GetRunbookExecutionFieldTags returns the RunbookExecutionFieldTags value.
func GetRunbookExecutionFieldTags() map[string]string {
	e := RunbookExecution{}
	return getFieldTags(e)
}

func (*RunbookExecution) TableName() string {
	return TRunbookExecution
}

type AuditLog struct {
	Id             int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId         string         `db:"user_id" gorm:"column:user_id;size:128;not null;index"`
	UserName       sql.NullString `db:"user_name" gorm:"column:user_name;size:128"`
	UserType       sql.NullString `db:"user_type" gorm:"column:user_type;size:32"`
	ClientIP       sql.NullString `db:"client_ip" gorm:"column:client_ip;size:64"`
	HttpMethod     string         `db:"http_method" gorm:"column:http_method;size:8;not null"`
	RequestPath    string         `db:"request_path" gorm:"column:request_path;size:512;not null"`
	Action         string         `db:"action" gorm:"column:action;size:64"`
	ResourceType   sql.NullString `db:"resource_type" gorm:"column:resource_type;size:64"`
	ResourceName   sql.NullString `db:"resource_name" gorm:"column:resource_name;size:256"`
	RequestBody    sql.NullString `db:"request_body" gorm:"column:request_body;type:text"`
	ResponseStatus int            `db:"response_status" gorm:"column:response_status"`
	ResponseBody   sql.NullString `db:"response_body" gorm:"column:response_body;type:text"`
	LatencyMs      sql.NullInt64  `db:"latency_ms" gorm:"column:latency_ms"`
	TraceId        sql.NullString `db:"trace_id" gorm:"column:trace_id;size:64"`
	CreateTime     pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz;index"`
}

// GetAuditLogFieldTags returns the AuditLogFieldTags value.
func GetAuditLogFieldTags() map[string]string {
	a := AuditLog{}
	return getFieldTags(a)
}

func (*AuditLog) TableName() string {
	return TPAuditLog
}

// AuditEvent records a privileged domain action (secret rotation,
// approval, signature failure) as opposed to the raw HTTP audit trail.
type AuditEvent struct {
	Id           int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Action       string         `db:"action" gorm:"column:action;size:64;not null;index:idx_audit_event_action,priority:1"`
	Actor        sql.NullString `db:"actor" gorm:"column:actor;size:128"`
	TeamId       sql.NullInt64  `db:"team_id" gorm:"column:team_id;index"`
	ResourceType sql.NullString `db:"resource_type" gorm:"column:resource_type;size:64"`
	ResourceId   sql.NullString `db:"resource_id" gorm:"column:resource_id;size:128"`
	Severity     string         `db:"severity" gorm:"column:severity;size:16;not null;index"`
	Metadata     sql.NullString `db:"metadata" gorm:"column:metadata;type:jsonb"`
	CreateTime   pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz;index:idx_audit_event_action,priority:2"`
}

// GetAuditEventFieldTags returns the AuditEventFieldTags value.
func GetAuditEventFieldTags() map[string]string {
	e := AuditEvent{}
	return getFieldTags(e)
}

func (*AuditEvent) TableName() string {
	return TAuditEvent
}

type Notification struct {
	Id           int64          `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Topic        string         `db:"topic" gorm:"column:topic;size:64;not null;index"`
	Uid          string         `db:"uid" gorm:"column:uid;size:128;not null"`
	Data         string         `db:"data" gorm:"column:data;type:jsonb"`
	Status       string         `db:"status" gorm:"column:status;size:16;not null;index"`
	Retry        int            `db:"retry" gorm:"column:retry;default:0"`
	ErrorMessage sql.NullString `db:"error_message" gorm:"column:error_message;type:text"`
	SentAt       pq.NullTime    `db:"sent_at" gorm:"column:sent_at;type:timestamptz"`
	CreateTime   pq.NullTime    `db:"create_time" gorm:"column:create_time;type:timestamptz"`
}

// GetNotificationFieldTags returns the NotificationFieldTags value.
func GetNotificationFieldTags() map[string]string {
	n := Notification{}
	return getFieldTags(n)
}

func (*Notification) TableName() string {
	return TNotification
}

// ApiKey stores the hash of a service key, never the plaintext. KeyHint
// keeps the first characters for display in listings.
type ApiKey struct {
	Id             int64       `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name           string      `db:"name" gorm:"column:name;size:128;not null"`
	UserId         string      `db:"user_id" gorm:"column:user_id;size:128;not null;index"`
	UserName       string      `db:"user_name" gorm:"column:user_name;size:128"`
	ApiKey         string      `db:"api_key" gorm:"column:api_key;size:128;not null;uniqueIndex"`
	KeyHint        string      `db:"key_hint" gorm:"column:key_hint;size:16"`
	Whitelist      string      `db:"whitelist" gorm:"column:whitelist;type:jsonb"`
	Deleted        bool        `db:"deleted" gorm:"column:deleted;default:false"`
	ExpirationTime pq.NullTime `db:"expiration_time" gorm:"column:expiration_time;type:timestamptz"`
	CreationTime   pq.NullTime `db:"creation_time" gorm:"column:creation_time;type:timestamptz"`
}

// GetApiKeyFieldTags returns the ApiKeyFieldTags value.
func GetApiKeyFieldTags() map[string]string {
	k := ApiKey{}
	return getFieldTags(k)
}

func (*ApiKey) TableName() string {
	return TApiKey
}
