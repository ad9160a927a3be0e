/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// global
	globalPrefix = "global."
	domain       = globalPrefix + "domain"
	subDomain    = globalPrefix + "sub_domain"

	// crypto
	cryptoPrefix     = "crypto."
	cryptoEnable     = cryptoPrefix + "enable"
	cryptoSecretPath = cryptoPrefix + "secret_path"

	// server
	serverPrefix = "server."
	serverPort   = serverPrefix + "port"

	// health_check
	healthCheckPrefix = "health_check."
	healthCheckEnable = healthCheckPrefix + "enable"
	healthCheckPort   = healthCheckPrefix + "port"

	// db
	dbPrefix               = "db."
	dbEnable               = dbPrefix + "enable"
	dbSecretPath           = dbPrefix + "secret_path"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetime          = dbPrefix + "max_life_time_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_second"
	dbAutoMigrate          = dbPrefix + "auto_migrate"

	// redis
	redisPrefix            = "redis."
	redisAddr              = redisPrefix + "addr"
	redisDB                = redisPrefix + "db"
	redisSecretPath        = redisPrefix + "secret_path"
	redisPoolSize          = redisPrefix + "pool_size"
	redisDialTimeoutSecond = redisPrefix + "dial_timeout_second"

	// queue
	queuePrefix           = "queue."
	queuePollIntervalMs   = queuePrefix + "poll_interval_ms"
	queueClaimBatch       = queuePrefix + "claim_batch"
	queueWorkerConcurrent = queuePrefix + "worker_concurrent"

	// ratelimit
	rateLimitPrefix    = "ratelimit."
	rateLimitEnable    = rateLimitPrefix + "enable"
	rateLimitPerMinute = rateLimitPrefix + "per_minute"

	// webhook
	webhookPrefix             = "webhook."
	webhookMaxBodyBytes       = webhookPrefix + "max_body_bytes"
	webhookTimestampMaxAge    = webhookPrefix + "timestamp_max_age_second"
	webhookDedupWindowMinute  = webhookPrefix + "dedup_window_minute"
	webhookRequestTimeoutSec  = webhookPrefix + "request_timeout_second"
	webhookSignatureHeaderKey = webhookPrefix + "signature_header"

	// escalation
	escalationPrefix             = "escalation."
	escalationMaxRetry           = escalationPrefix + "max_retry"
	escalationRetryInitialSecond = escalationPrefix + "retry_initial_second"

	// workflow
	workflowPrefix               = "workflow."
	workflowDefaultTimeoutSecond = workflowPrefix + "default_timeout_second"
	workflowMaxNodeRetry         = workflowPrefix + "max_node_retry"

	// runbook
	runbookPrefix               = "runbook."
	runbookDefaultTimeoutSecond = runbookPrefix + "default_timeout_second"

	// notification
	notificationPrefix = "notification."
	notificationEnable = notificationPrefix + "enable"

	// retention
	retentionPrefix   = "retention."
	retentionEnable   = retentionPrefix + "enable"
	retentionDays     = retentionPrefix + "days"
	retentionSchedule = retentionPrefix + "schedule"

	// opensearch
	openSearchPrefix      = "opensearch."
	openSearchEnable      = openSearchPrefix + "enable"
	openSearchSecretPath  = openSearchPrefix + "secret_path"
	openSearchEndpoint    = openSearchPrefix + "endpoint"
	openSearchUser        = "username"
	openSearchPassword    = "password"
	openSearchIndexPrefix = openSearchPrefix + "prefix"

	// s3
	s3Prefix     = "s3."
	s3Enable     = s3Prefix + "enable"
	s3SecretPath = s3Prefix + "secret_path"
	s3ExpireDay  = s3Prefix + "expire_day"

	// tracing
	tracingPrefix        = "tracing."
	tracingEnable        = tracingPrefix + "enable"
	tracingMode          = tracingPrefix + "mode"
	tracingSamplingRatio = tracingPrefix + "sampling_ratio"
	tracingOtlpEndpoint  = tracingPrefix + "otlp_endpoint"
)
