/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package webhook_handlers hosts the signed webhook ingress: the only
// unauthenticated write surface of the control plane.
package webhook_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/crypto"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	"github.com/beacon-oncall/beacon/common/pkg/dedup"
	"github.com/beacon-oncall/beacon/common/pkg/escalation"
	"github.com/beacon-oncall/beacon/common/pkg/search"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
)

type Handler struct {
	dbClient   dbclient.Interface
	deduper    *dedup.Deduper
	scheduler  *escalation.Scheduler
	dispatcher *workflow.Dispatcher
	indexer    *search.Indexer
	cipher     *crypto.Crypto
}

// NewHandler wires the ingest pipeline. The indexer may be nil when
// search is disabled.
func NewHandler(dbClient dbclient.Interface, scheduler *escalation.Scheduler,
	dispatcher *workflow.Dispatcher, indexer *search.Indexer) *Handler {
	return &Handler{
		dbClient:   dbClient,
		deduper:    dedup.NewDeduper(dbClient),
		scheduler:  scheduler,
		dispatcher: dispatcher,
		indexer:    indexer,
		cipher:     crypto.NewCrypto(),
	}
}

type handleFunc func(*gin.Context) (interface{}, error)

// handle executes fn and renders its result, mapping errors onto
// Problem Details documents.
func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch responseType := response.(type) {
	case []byte:
		c.Data(code, common.JsonContentType, responseType)
	case string:
		c.Data(code, common.JsonContentType, []byte(responseType))
	default:
		c.JSON(code, responseType)
	}
}
