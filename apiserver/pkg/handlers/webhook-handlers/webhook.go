/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/dedup"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/fingerprint"
	"github.com/beacon-oncall/beacon/common/pkg/metrics"
	"github.com/beacon-oncall/beacon/common/pkg/normalize"
	"github.com/beacon-oncall/beacon/common/pkg/signature"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

const (
	statusCreated   = "created"
	statusGrouped   = "grouped"
	statusDuplicate = "duplicate"
)

// Ingest handles a signed alert delivery.
// POST /webhooks/alerts/:integrationName
func (h *Handler) Ingest(c *gin.Context) {
	handle(c, h.ingest)
}

// Test answers the unauthenticated liveness probe.
// GET /webhooks/alerts/:integrationName/test
func (h *Handler) Test(c *gin.Context) {
	handle(c, h.test)
}

// ingest runs the full pipeline: resolve integration, bound the body,
// verify signature and replay window, dedup, normalize, persist, route
// onto an incident and arm escalation. Every outcome past integration
// resolution leaves one delivery receipt.
func (h *Handler) ingest(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	startTime := time.Now()
	integrationName := c.Param("integrationName")

	integration, err := h.dbClient.GetIntegrationByName(ctx, integrationName)
	if err != nil {
		metrics.IncWebhookDeliveryCount(integrationName, "unknown_integration")
		return nil, commonerrors.NewIntegrationNotFound(integrationName)
	}
	if !integration.Active {
		// The integration row is resolvable, so the rejection still
		// leaves a receipt.
		inactiveErr := commonerrors.NewIntegrationNotFound(integrationName)
		body, _ := readWebhookBody(c.Request)
		h.recordDelivery(ctx, integration, body, c.Request, 0, http.StatusNotFound, inactiveErr)
		metrics.IncWebhookDeliveryCount(integrationName, "rejected")
		return nil, inactiveErr
	}

	body, err := readWebhookBody(c.Request)
	if err != nil {
		h.recordDelivery(ctx, integration, nil, c.Request, 0, commonerrors.StatusForError(err), err)
		metrics.IncWebhookDeliveryCount(integrationName, "rejected")
		return nil, err
	}
	metrics.ObserveWebhookPayloadBytes(integrationName, len(body))

	if err := h.verifySignature(integration, body, c.Request.Header); err != nil {
		h.recordDelivery(ctx, integration, body, c.Request, 0, commonerrors.StatusForError(err), err)
		metrics.IncWebhookDeliveryCount(integrationName, "rejected")
		return nil, err
	}

	window := dedupWindow(integration)
	idempotencyKey := dedup.ExtractIdempotencyKey(c.Request.Header)
	contentFingerprint := fingerprint.Content(body)

	// The session lock makes the duplicate check and the alert insert one
	// atomic step against concurrent deliveries of the same content.
	var response *IngestResponse
	err = h.dbClient.WithIngestLock(ctx, integration.Id, contentFingerprint, func(ctx context.Context) error {
		var err error
		response, err = h.admitDelivery(ctx, c, integration, body, idempotencyKey, contentFingerprint, window, startTime)
		return err
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// admitDelivery runs the locked half of the pipeline: dedup, normalize,
// persist, route onto an incident and arm escalation.
func (h *Handler) admitDelivery(ctx context.Context, c *gin.Context, integration *dbclient.Integration,
	body []byte, idempotencyKey, contentFingerprint string, window time.Duration, startTime time.Time) (*IngestResponse, error) {
	integrationName := integration.Name

	dup, err := h.deduper.FindDuplicate(ctx, integration.Id, idempotencyKey, contentFingerprint, window)
	if err != nil {
		h.recordDelivery(ctx, integration, body, c.Request, 0, http.StatusInternalServerError, err)
		return nil, commonerrors.NewInternalError("failed to check for duplicate delivery")
	}
	if dup != nil && dup.AlertId.Valid {
		h.recordDelivery(ctx, integration, body, c.Request, dup.AlertId.Int64, http.StatusOK, nil)
		metrics.IncWebhookDeliveryCount(integrationName, "duplicate")
		return &IngestResponse{
			AlertId:    dup.AlertId.Int64,
			Status:     statusDuplicate,
			Idempotent: true,
		}, nil
	}

	canonical, validationErrs := normalize.Parse(constvar.ProviderType(integration.Provider), body)
	if len(validationErrs) > 0 {
		err := commonerrors.NewValidationFailed("payload is invalid", normalize.Strings(validationErrs))
		h.recordDelivery(ctx, integration, body, c.Request, 0, http.StatusBadRequest, err)
		metrics.IncWebhookDeliveryCount(integrationName, "rejected")
		return nil, err
	}

	// Integrations without a pinned timestamp header still get a replay
	// window: the normalized event timestamp is age-checked instead.
	if dbutils.ParseNullString(integration.TimestampHeader) == "" && !canonical.TriggeredAt.IsZero() {
		if err := signature.CheckTimestamp(canonical.TriggeredAt, maxEventAge(integration), time.Now()); err != nil {
			h.recordDelivery(ctx, integration, body, c.Request, 0, commonerrors.StatusForError(err), err)
			metrics.IncWebhookDeliveryCount(integrationName, "rejected")
			return nil, err
		}
	}

	alert := buildAlert(integration, canonical, contentFingerprint)
	alertId, err := h.dbClient.InsertAlert(ctx, alert)
	if err != nil {
		h.recordDelivery(ctx, integration, body, c.Request, 0, http.StatusInternalServerError, err)
		return nil, commonerrors.NewInternalError("failed to persist alert")
	}
	alert.Id = alertId

	incident, grouped, err := h.deduper.RouteAlert(ctx, canonical, integration, window)
	if err != nil {
		h.recordDelivery(ctx, integration, body, c.Request, alertId, http.StatusInternalServerError, err)
		return nil, commonerrors.NewInternalError("failed to route alert")
	}
	if err := h.dbClient.LinkAlertToIncident(ctx, alertId, incident.Id); err != nil {
		klog.ErrorS(err, "failed to link alert to incident", "alertId", alertId, "incidentId", incident.Id)
	}

	h.recordDelivery(ctx, integration, body, c.Request, alertId, http.StatusCreated, nil)

	status := statusCreated
	if grouped {
		status = statusGrouped
		metrics.IncIncidentGroupedCount(string(canonical.Severity))
	} else {
		metrics.IncIncidentCreatedCount(string(canonical.Severity), incident.Priority)
		if err := h.scheduler.ScheduleInitial(ctx, incident); err != nil {
			klog.ErrorS(err, "failed to schedule escalation", "incidentId", incident.Id)
		}
		if err := h.dispatcher.Dispatch(ctx, &workflow.Event{
			Type:     constvar.TriggerIncidentCreated,
			Incident: incident,
		}); err != nil {
			klog.ErrorS(err, "failed to dispatch incident_created", "incidentId", incident.Id)
		}
	}

	if h.indexer != nil {
		h.indexer.Submit(alert, integration.TeamId)
	}
	metrics.IncWebhookDeliveryCount(integrationName, status)
	metrics.ObserveWebhookIngestDuration(integrationName, time.Since(startTime).Seconds())

	c.Status(http.StatusCreated)
	return &IngestResponse{
		AlertId:     alertId,
		IncidentId:  incident.Id,
		Status:      status,
		Title:       canonical.Title,
		Severity:    string(canonical.Severity),
		TriggeredAt: timeutil.FormatRFC3339(canonical.TriggeredAt),
	}, nil
}

// test reports integration liveness without authentication.
func (h *Handler) test(c *gin.Context) (interface{}, error) {
	integrationName := c.Param("integrationName")
	integration, err := h.dbClient.GetIntegrationByName(c.Request.Context(), integrationName)
	if err != nil {
		return nil, commonerrors.NewIntegrationNotFound(integrationName)
	}
	return &TestResponse{
		Integration: integration.Name,
		Active:      integration.Active,
		Provider:    integration.Provider,
	}, nil
}

// verifySignature decrypts the integration secret and checks the
// delivery signature and replay window.
func (h *Handler) verifySignature(integration *dbclient.Integration, body []byte, headers http.Header) error {
	secret, err := h.cipher.Decrypt(integration.SigningSecret)
	if err != nil {
		klog.ErrorS(err, "failed to decrypt signing secret", "integration", integration.Name)
		return commonerrors.NewInternalError("integration secret is unreadable")
	}

	header := integration.SignatureHeader
	if header == "" {
		header = commonconfig.GetWebhookSignatureHeader()
	}

	cfg := &signature.Config{
		Secret:          []byte(secret),
		Header:          header,
		Algorithm:       integration.Algorithm,
		Format:          integration.Format,
		Prefix:          dbutils.ParseNullString(integration.Prefix),
		TimestampHeader: dbutils.ParseNullString(integration.TimestampHeader),
		MaxAge:          maxEventAge(integration),
	}
	return signature.Verify(cfg, body, headers)
}

// maxEventAge resolves the per-integration replay window with the
// global default as fallback.
func maxEventAge(integration *dbclient.Integration) time.Duration {
	maxAge := time.Duration(integration.TimestampMaxAgeSecond) * time.Second
	if maxAge <= 0 {
		maxAge = time.Duration(commonconfig.GetWebhookTimestampMaxAge()) * time.Second
	}
	return maxAge
}

// recordDelivery writes the immutable receipt for one inbound request.
func (h *Handler) recordDelivery(ctx context.Context, integration *dbclient.Integration, body []byte,
	req *http.Request, alertId int64, statusCode int, cause error) {
	delivery := &dbclient.WebhookDelivery{
		IntegrationId:      integration.Id,
		ContentFingerprint: fingerprint.Content(body),
		Payload:            body,
		Headers:            dbutils.NullString(dedup.SanitizeHeaders(req.Header)),
		StatusCode:         statusCode,
	}
	if key := dedup.ExtractIdempotencyKey(req.Header); key != "" {
		delivery.IdempotencyKey = dbutils.NullString(key)
	}
	if alertId > 0 {
		delivery.AlertId = dbutils.NullInt64(alertId)
	}
	if cause != nil {
		delivery.ErrorMessage = dbutils.NullString(cause.Error())
	}
	if _, err := h.dbClient.InsertWebhookDelivery(ctx, delivery); err != nil {
		klog.ErrorS(err, "failed to record webhook delivery", "integration", integration.Name)
	}
}

// buildAlert maps the canonical alert onto its database row.
func buildAlert(integration *dbclient.Integration, canonical *normalize.CanonicalAlert, contentFingerprint string) *dbclient.Alert {
	alert := &dbclient.Alert{
		IntegrationId: integration.Id,
		Title:         canonical.Title,
		Description:   dbutils.NullString(canonical.Description),
		Severity:      string(canonical.Severity),
		Status:        string(constvar.AlertStatusOpen),
		Source:        dbutils.NullString(canonical.Source),
		Service:       dbutils.NullString(canonical.Service),
		ExternalId:    dbutils.NullString(canonical.ExternalId),
		Fingerprint:   contentFingerprint,
		TriggeredAt:   dbutils.NullTime(canonical.TriggeredAt),
	}
	if alert.Service.String == "" {
		alert.Service = integration.Service
	}
	if len(canonical.Tags) > 0 {
		if data, err := json.Marshal(canonical.Tags); err == nil {
			alert.Tags = dbutils.NullString(string(data))
		}
	}
	if len(canonical.Metadata) > 0 {
		if data, err := json.Marshal(canonical.Metadata); err == nil {
			alert.Metadata = dbutils.NullString(string(data))
		}
	}
	return alert
}

// dedupWindow resolves the per-integration window with the global
// default as fallback.
func dedupWindow(integration *dbclient.Integration) time.Duration {
	minutes := integration.DedupWindowMinute
	if minutes <= 0 {
		minutes = commonconfig.GetWebhookDedupWindowMinute()
	}
	return time.Duration(minutes) * time.Minute
}

// readWebhookBody bounds the payload at the configured ceiling.
func readWebhookBody(req *http.Request) ([]byte, error) {
	maxBytes := commonconfig.GetWebhookMaxBodyBytes()
	defer req.Body.Close()
	lr := &io.LimitedReader{R: req.Body, N: maxBytes + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	if lr.N <= 0 {
		return nil, commonerrors.NewPayloadTooLarge(fmt.Sprintf("the max length is %d bytes", maxBytes))
	}
	return data, nil
}
