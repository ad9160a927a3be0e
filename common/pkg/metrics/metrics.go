/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Webhook ingest metrics
var (
	webhookDeliveryCount   *prometheus.CounterVec
	webhookIngestDuration  *prometheus.HistogramVec
	webhookPayloadBytes    *prometheus.HistogramVec
	webhookRateLimitedCount *prometheus.CounterVec
)

func init() {
	webhookDeliveryCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "webhook",
			Name:      "delivery_total",
			Help:      "Total number of webhook deliveries by outcome",
		},
		[]string{"integration", "outcome"}, // outcome: accepted/duplicate/invalid_signature/invalid_payload/rejected
	)
	prometheus.MustRegister(webhookDeliveryCount)

	webhookIngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "webhook",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of webhook ingest processing in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"integration"},
	)
	prometheus.MustRegister(webhookIngestDuration)

	webhookPayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "webhook",
			Name:      "payload_bytes",
			Help:      "Size of accepted webhook payloads in bytes",
			Buckets:   []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		},
		[]string{"integration"},
	)
	prometheus.MustRegister(webhookPayloadBytes)

	webhookRateLimitedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "webhook",
			Name:      "rate_limited_total",
			Help:      "Total number of webhook deliveries rejected by the rate limiter",
		},
		[]string{"integration"},
	)
	prometheus.MustRegister(webhookRateLimitedCount)
}

// Incident pipeline metrics
var (
	incidentCreatedCount   *prometheus.CounterVec
	incidentGroupedCount   *prometheus.CounterVec
	incidentResolvedCount  *prometheus.CounterVec
	escalationFiredCount   *prometheus.CounterVec
	escalationGaveUpCount  *prometheus.CounterVec
)

func init() {
	incidentCreatedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "incident",
			Name:      "created_total",
			Help:      "Total number of incidents opened",
		},
		[]string{"severity", "priority"},
	)
	prometheus.MustRegister(incidentCreatedCount)

	incidentGroupedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "incident",
			Name:      "grouped_total",
			Help:      "Total number of alerts grouped into an existing open incident",
		},
		[]string{"severity"},
	)
	prometheus.MustRegister(incidentGroupedCount)

	incidentResolvedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "incident",
			Name:      "resolved_total",
			Help:      "Total number of incidents resolved",
		},
		[]string{"priority"},
	)
	prometheus.MustRegister(incidentResolvedCount)

	escalationFiredCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "escalation",
			Name:      "fired_total",
			Help:      "Total number of escalation levels fired",
		},
		[]string{"level"},
	)
	prometheus.MustRegister(escalationFiredCount)

	escalationGaveUpCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "escalation",
			Name:      "gave_up_total",
			Help:      "Total number of escalations that exhausted all levels and repeats",
		},
		[]string{"policy"},
	)
	prometheus.MustRegister(escalationGaveUpCount)
}

// Workflow and runbook execution metrics
var (
	workflowExecutionCount    *prometheus.CounterVec
	workflowExecutionDuration *prometheus.HistogramVec
	workflowNodeDuration      *prometheus.HistogramVec
	runbookExecutionCount     *prometheus.CounterVec
	runbookExecutionDuration  *prometheus.HistogramVec
)

func init() {
	workflowExecutionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "workflow",
			Name:      "execution_total",
			Help:      "Total number of workflow executions by final status",
		},
		[]string{"trigger", "status"},
	)
	prometheus.MustRegister(workflowExecutionCount)

	workflowExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "workflow",
			Name:      "execution_duration_seconds",
			Help:      "Duration of workflow executions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600, 900},
		},
		[]string{"trigger"},
	)
	prometheus.MustRegister(workflowExecutionDuration)

	workflowNodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "workflow",
			Name:      "node_duration_seconds",
			Help:      "Duration of single workflow node executions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node_type"},
	)
	prometheus.MustRegister(workflowNodeDuration)

	runbookExecutionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "runbook",
			Name:      "execution_total",
			Help:      "Total number of runbook executions by final status",
		},
		[]string{"triggered_by", "status"},
	)
	prometheus.MustRegister(runbookExecutionCount)

	runbookExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "runbook",
			Name:      "execution_duration_seconds",
			Help:      "Duration of runbook webhook calls in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"triggered_by"},
	)
	prometheus.MustRegister(runbookExecutionDuration)
}

// Notification metrics
var (
	notificationSentCount *prometheus.CounterVec
)

func init() {
	notificationSentCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "notification",
			Name:      "sent_total",
			Help:      "Total number of notifications sent by channel and status",
		},
		[]string{"channel", "status"},
	)
	prometheus.MustRegister(notificationSentCount)
}

// Webhook ingest helper functions
func IncWebhookDeliveryCount(integration, outcome string) {
	webhookDeliveryCount.WithLabelValues(integration, outcome).Inc()
}

func ObserveWebhookIngestDuration(integration string, seconds float64) {
	webhookIngestDuration.WithLabelValues(integration).Observe(seconds)
}

func ObserveWebhookPayloadBytes(integration string, size int) {
	webhookPayloadBytes.WithLabelValues(integration).Observe(float64(size))
}

func IncWebhookRateLimitedCount(integration string) {
	webhookRateLimitedCount.WithLabelValues(integration).Inc()
}

// Incident pipeline helper functions
func IncIncidentCreatedCount(severity, priority string) {
	incidentCreatedCount.WithLabelValues(severity, priority).Inc()
}

func IncIncidentGroupedCount(severity string) {
	incidentGroupedCount.WithLabelValues(severity).Inc()
}

func IncIncidentResolvedCount(priority string) {
	incidentResolvedCount.WithLabelValues(priority).Inc()
}

func IncEscalationFiredCount(level string) {
	escalationFiredCount.WithLabelValues(level).Inc()
}

func IncEscalationGaveUpCount(policy string) {
	escalationGaveUpCount.WithLabelValues(policy).Inc()
}

// Workflow and runbook helper functions
func IncWorkflowExecutionCount(trigger, status string) {
	workflowExecutionCount.WithLabelValues(trigger, status).Inc()
}

func ObserveWorkflowExecutionDuration(trigger string, seconds float64) {
	workflowExecutionDuration.WithLabelValues(trigger).Observe(seconds)
}

func ObserveWorkflowNodeDuration(nodeType string, seconds float64) {
	workflowNodeDuration.WithLabelValues(nodeType).Observe(seconds)
}

func IncRunbookExecutionCount(triggeredBy, status string) {
	runbookExecutionCount.WithLabelValues(triggeredBy, status).Inc()
}

func ObserveRunbookExecutionDuration(triggeredBy string, seconds float64) {
	runbookExecutionDuration.WithLabelValues(triggeredBy).Observe(seconds)
}

// Notification helper functions
func IncNotificationSentCount(channel, status string) {
	notificationSentCount.WithLabelValues(channel, status).Inc()
}
