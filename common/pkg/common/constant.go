/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package common

const (
	DefaultVersion       = "v1"
	BeaconRouterRootPath = "api/" + DefaultVersion
	BeaconServiceName    = "beacon-apiserver"

	JsonContentType    = "application/json; charset=utf-8"
	YamlContentType    = "application/yaml; charset=utf-8"
	ProblemContentType = "application/problem+json"

	UserName = "userName"
	UserId   = "userId"
	UserType = "userType"
	UserSelf = "self"
	// UserSystem marks actions performed by background workers rather than a request user.
	UserSystem = "system"
	Name       = "name"

	// RequestIdHeader carries the request correlation id on every response.
	RequestIdHeader = "X-Request-Id"
	// TraceIdHeader carries the trace id on failed responses.
	TraceIdHeader = "X-Trace-Id"

	// SignatureHeader carries the HMAC signature of a webhook delivery.
	SignatureHeader = "X-Webhook-Signature"
	// TimestampHeader carries the unix timestamp a webhook was signed at.
	TimestampHeader = "X-Webhook-Timestamp"

	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Escalation and automation job kinds carried on queue payloads.
const (
	JobKindEscalation        = "escalation"
	JobKindWorkflowExecution = "workflow_execution"
	JobKindRunbookExecution  = "runbook_execution"
)
