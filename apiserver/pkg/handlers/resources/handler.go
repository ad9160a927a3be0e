/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package resources hosts the platform administration surface:
// integrations, teams and users, API keys, audit trails, the
// notification outbox and alert search.
package resources

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/audit"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/crypto"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
	"github.com/beacon-oncall/beacon/common/pkg/notification"
	"github.com/beacon-oncall/beacon/common/pkg/search"
)

type Handler struct {
	dbClient dbclient.Interface
	cipher   *crypto.Crypto
	recorder *audit.Recorder
	notifier *notification.Manager
	indexer  *search.Indexer
}

// NewHandler wires the administration handlers. The indexer may be nil
// when search is disabled; the search endpoint then rejects queries.
func NewHandler(dbClient dbclient.Interface, indexer *search.Indexer) *Handler {
	return &Handler{
		dbClient: dbClient,
		cipher:   crypto.NewCrypto(),
		recorder: audit.NewRecorder(dbClient),
		notifier: notification.NewManager(dbClient),
		indexer:  indexer,
	}
}

type handleFunc func(*gin.Context) (interface{}, error)

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
