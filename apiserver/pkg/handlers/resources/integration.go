/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/resources/view"
	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/audit"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/signature"
	"github.com/beacon-oncall/beacon/utils/pkg/timeutil"
)

const (
	// signingSecretBytes sets the entropy of a generated webhook secret.
	signingSecretBytes = 32
	// secretHintLength is how much of the plaintext secret stays visible
	// after creation.
	secretHintLength = 8
)

// CreateIntegration registers a signed webhook source and returns the
// generated signing secret exactly once.
func (h *Handler) CreateIntegration(c *gin.Context) {
	handle(c, h.createIntegration)
}

// ListIntegration lists integrations with the secret redacted.
func (h *Handler) ListIntegration(c *gin.Context) {
	handle(c, h.listIntegration)
}

// GetIntegration returns one integration with the secret redacted.
func (h *Handler) GetIntegration(c *gin.Context) {
	handle(c, h.getIntegration)
}

// UpdateIntegration changes integration settings. The signing secret
// cannot be edited, only rotated.
func (h *Handler) UpdateIntegration(c *gin.Context) {
	handle(c, h.updateIntegration)
}

// RotateIntegrationSecret replaces the signing secret and returns the
// new value exactly once.
func (h *Handler) RotateIntegrationSecret(c *gin.Context) {
	handle(c, h.rotateIntegrationSecret)
}

// DeleteIntegration removes an integration. Deliveries already accepted
// are kept.
func (h *Handler) DeleteIntegration(c *gin.Context) {
	handle(c, h.deleteIntegration)
}

func (h *Handler) createIntegration(c *gin.Context) (interface{}, error) {
	var req view.CreateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	if _, err := h.dbClient.GetTeam(ctx, req.TeamId); err != nil {
		return nil, err
	}
	if err := h.checkIntegrationName(c, req.Name); err != nil {
		return nil, err
	}

	secret, err := generateSigningSecret()
	if err != nil {
		klog.ErrorS(err, "failed to generate signing secret")
		return nil, commonerrors.NewInternalError("failed to generate signing secret")
	}
	encrypted, err := h.cipher.Encrypt([]byte(secret))
	if err != nil {
		klog.ErrorS(err, "failed to encrypt signing secret")
		return nil, commonerrors.NewInternalError("failed to protect signing secret")
	}

	record := &dbclient.Integration{
		Name:                  req.Name,
		Provider:              strings.ToLower(req.Provider),
		TeamId:                req.TeamId,
		Service:               dbutils.NullString(req.Service),
		SigningSecret:         encrypted,
		SecretHint:            secret[:secretHintLength],
		SignatureHeader:       req.SignatureHeader,
		Algorithm:             req.Algorithm,
		Format:                req.Format,
		Prefix:                dbutils.NullString(req.Prefix),
		TimestampHeader:       dbutils.NullString(req.TimestampHeader),
		TimestampMaxAgeSecond: req.TimestampMaxAgeSecond,
		DedupWindowMinute:     req.DedupWindowMinute,
		Active:                true,
		CreatedBy:             dbutils.NullString(apiutils.RequestUser(c)),
	}
	if record.SignatureHeader == "" {
		record.SignatureHeader = common.SignatureHeader
	}
	if record.Algorithm == "" {
		record.Algorithm = signature.AlgorithmSha256
	}
	if record.Format == "" {
		record.Format = signature.FormatHex
	}
	if record.TimestampMaxAgeSecond <= 0 {
		record.TimestampMaxAgeSecond = 300
	}
	if record.DedupWindowMinute <= 0 {
		record.DedupWindowMinute = 15
	}

	id, err := h.dbClient.InsertIntegration(ctx, record)
	if err != nil {
		klog.ErrorS(err, "failed to insert integration", "name", req.Name)
		return nil, err
	}
	record.Id = id
	klog.Infof("created integration, id: %d, name: %s, provider: %s, teamId: %d",
		id, record.Name, record.Provider, record.TeamId)

	h.recorder.Record(ctx, audit.Entry{
		Action:       "integration.created",
		Actor:        apiutils.RequestUser(c),
		TeamId:       record.TeamId,
		ResourceType: "integration",
		ResourceId:   audit.ResourceId(id),
		Metadata:     map[string]interface{}{"name": record.Name, "provider": record.Provider},
	})

	c.Status(201)
	return &view.CreateIntegrationResponse{
		IntegrationResponseItem: convertToIntegrationResponseItem(record),
		SigningSecret:           secret,
	}, nil
}

func (h *Handler) listIntegration(c *gin.Context) (interface{}, error) {
	req := &view.ListIntegrationRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = view.DefaultQueryLimit
	}
	if req.Order == "" {
		req.Order = dbclient.DESC
	}

	tags := dbclient.GetIntegrationFieldTags()
	var conditions sqrl.And
	if req.Name != "" {
		conditions = append(conditions, sqrl.ILike{dbclient.GetFieldTag(tags, "Name"): "%" + req.Name + "%"})
	}
	if req.Provider != "" {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "Provider"): strings.ToLower(req.Provider)})
	}
	if req.TeamId > 0 {
		conditions = append(conditions, sqrl.Eq{dbclient.GetFieldTag(tags, "TeamId"): req.TeamId})
	}

	orderBy := []string{dbclient.GetFieldTag(tags, "CreateTime") + " " + dbclient.DESC}
	if req.SortBy != "" {
		if field := dbclient.GetFieldTag(tags, strings.ToLower(req.SortBy)); field != "" {
			orderBy = []string{field + " " + req.Order}
		}
	}

	ctx := c.Request.Context()
	totalCount, err := h.dbClient.CountIntegrations(ctx, conditions)
	if err != nil {
		return nil, err
	}
	records, err := h.dbClient.SelectIntegrations(ctx, conditions, orderBy, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	items := make([]view.IntegrationResponseItem, 0, len(records))
	for _, record := range records {
		items = append(items, convertToIntegrationResponseItem(record))
	}
	return &view.ListIntegrationResponse{TotalCount: totalCount, Items: items}, nil
}

func (h *Handler) getIntegration(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	record, err := h.dbClient.GetIntegration(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	return convertToIntegrationResponseItem(record), nil
}

func (h *Handler) updateIntegration(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	var req view.UpdateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}

	ctx := c.Request.Context()
	record, err := h.dbClient.GetIntegration(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" && req.Name != record.Name {
		if err := h.checkIntegrationName(c, req.Name); err != nil {
			return nil, err
		}
		record.Name = req.Name
	}
	if req.Service != nil {
		record.Service = dbutils.NullString(*req.Service)
	}
	if req.SignatureHeader != "" {
		record.SignatureHeader = req.SignatureHeader
	}
	if req.Algorithm != "" {
		record.Algorithm = req.Algorithm
	}
	if req.Format != "" {
		record.Format = req.Format
	}
	if req.Prefix != nil {
		record.Prefix = dbutils.NullString(*req.Prefix)
	}
	if req.TimestampHeader != nil {
		record.TimestampHeader = dbutils.NullString(*req.TimestampHeader)
	}
	if req.TimestampMaxAgeSecond != nil {
		record.TimestampMaxAgeSecond = *req.TimestampMaxAgeSecond
	}
	if req.DedupWindowMinute != nil {
		record.DedupWindowMinute = *req.DedupWindowMinute
	}
	if req.Active != nil {
		record.Active = *req.Active
	}
	record.UpdateTime = pq.NullTime{Time: time.Now().UTC(), Valid: true}

	if err := h.dbClient.UpdateIntegration(ctx, record); err != nil {
		klog.ErrorS(err, "failed to update integration", "id", id)
		return nil, err
	}
	return convertToIntegrationResponseItem(record), nil
}

func (h *Handler) rotateIntegrationSecret(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	record, err := h.dbClient.GetIntegration(ctx, id)
	if err != nil {
		return nil, err
	}

	secret, err := generateSigningSecret()
	if err != nil {
		klog.ErrorS(err, "failed to generate signing secret", "id", id)
		return nil, commonerrors.NewInternalError("failed to generate signing secret")
	}
	encrypted, err := h.cipher.Encrypt([]byte(secret))
	if err != nil {
		klog.ErrorS(err, "failed to encrypt signing secret", "id", id)
		return nil, commonerrors.NewInternalError("failed to protect signing secret")
	}

	hint := secret[:secretHintLength]
	if err := h.dbClient.RotateIntegrationSecret(ctx, id, encrypted, hint); err != nil {
		klog.ErrorS(err, "failed to rotate signing secret", "id", id)
		return nil, err
	}
	klog.Infof("rotated signing secret, integration: %d, name: %s", id, record.Name)

	h.recorder.Record(ctx, audit.Entry{
		Action:       "integration.secret_rotated",
		Actor:        apiutils.RequestUser(c),
		TeamId:       record.TeamId,
		ResourceType: "integration",
		ResourceId:   audit.ResourceId(id),
		Severity:     constvar.SeverityMedium,
		Metadata:     map[string]interface{}{"name": record.Name},
	})

	return &view.RotateIntegrationSecretResponse{
		Id:            id,
		SigningSecret: secret,
		SecretHint:    hint,
	}, nil
}

func (h *Handler) deleteIntegration(c *gin.Context) (interface{}, error) {
	id, err := apiutils.ParseId(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	record, err := h.dbClient.GetIntegration(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := h.dbClient.DeleteIntegration(ctx, id); err != nil {
		klog.ErrorS(err, "failed to delete integration", "id", id)
		return nil, err
	}
	klog.Infof("deleted integration, id: %d, name: %s", id, record.Name)

	h.recorder.Record(ctx, audit.Entry{
		Action:       "integration.deleted",
		Actor:        apiutils.RequestUser(c),
		TeamId:       record.TeamId,
		ResourceType: "integration",
		ResourceId:   audit.ResourceId(id),
		Metadata:     map[string]interface{}{"name": record.Name},
	})
	return nil, nil
}

func (h *Handler) checkIntegrationName(c *gin.Context, name string) error {
	tags := dbclient.GetIntegrationFieldTags()
	count, err := h.dbClient.CountIntegrations(c.Request.Context(),
		sqrl.Eq{dbclient.GetFieldTag(tags, "Name"): name})
	if err != nil {
		return err
	}
	if count > 0 {
		return commonerrors.NewAlreadyExist(fmt.Sprintf("integration %q already exists", name))
	}
	return nil
}

// generateSigningSecret produces a hex secret with 256 bits of entropy.
func generateSigningSecret() (string, error) {
	buf := make([]byte, signingSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func convertToIntegrationResponseItem(record *dbclient.Integration) view.IntegrationResponseItem {
	item := view.IntegrationResponseItem{
		Id:                    record.Id,
		Name:                  record.Name,
		Provider:              record.Provider,
		TeamId:                record.TeamId,
		Service:               dbutils.ParseNullString(record.Service),
		SecretHint:            record.SecretHint,
		SignatureHeader:       record.SignatureHeader,
		Algorithm:             record.Algorithm,
		Format:                record.Format,
		Prefix:                dbutils.ParseNullString(record.Prefix),
		TimestampHeader:       dbutils.ParseNullString(record.TimestampHeader),
		TimestampMaxAgeSecond: record.TimestampMaxAgeSecond,
		DedupWindowMinute:     record.DedupWindowMinute,
		Active:                record.Active,
		CreatedBy:             dbutils.ParseNullString(record.CreatedBy),
	}
	if record.CreateTime.Valid {
		item.CreateTime = timeutil.FormatRFC3339(record.CreateTime.Time)
	}
	if record.UpdateTime.Valid {
		item.UpdateTime = timeutil.FormatRFC3339(record.UpdateTime.Time)
	}
	return item
}
