/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package resources

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/beacon-oncall/beacon/apiserver/pkg/handlers/resources/view"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/search"
)

// SearchAlert runs a full-text query over the alert index. Rejected
// when search is not configured.
func (h *Handler) SearchAlert(c *gin.Context) {
	handle(c, h.searchAlert)
}

func (h *Handler) searchAlert(c *gin.Context) (interface{}, error) {
	req := &view.SearchAlertRequest{}
	if err := c.ShouldBindWith(req, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest("invalid query: " + err.Error())
	}

	query := search.Query{
		Text:     req.Q,
		Severity: req.Severity,
		Service:  req.Service,
		TeamId:   req.TeamId,
	}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid since format, expected RFC3339")
		}
		query.Since = since
	}
	if req.Until != "" {
		until, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			return nil, commonerrors.NewBadRequest("invalid until format, expected RFC3339")
		}
		query.Until = until
	}

	docs, err := h.indexer.Search(c.Request.Context(), query)
	if err != nil {
		return nil, err
	}
	items := make([]view.SearchAlertResponseItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, view.SearchAlertResponseItem{
			AlertId:     doc.AlertId,
			IncidentId:  doc.IncidentId,
			TeamId:      doc.TeamId,
			Title:       doc.Title,
			Description: doc.Description,
			Severity:    doc.Severity,
			Service:     doc.Service,
			Source:      doc.Source,
			Fingerprint: doc.Fingerprint,
			TriggeredAt: doc.TriggeredAt,
		})
	}
	return &view.SearchAlertResponse{TotalCount: len(items), Items: items}, nil
}
