/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package policy_handlers manages escalation policies and their levels.
package policy_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apiutils "github.com/beacon-oncall/beacon/apiserver/pkg/utils"
	"github.com/beacon-oncall/beacon/common/pkg/common"
	dbclient "github.com/beacon-oncall/beacon/common/pkg/database/client"
)

type Handler struct {
	dbClient dbclient.Interface
}

func NewHandler(dbClient dbclient.Interface) *Handler {
	return &Handler{dbClient: dbClient}
}

type handleFunc func(*gin.Context) (interface{}, error)

// handle executes the handler function and processes the response/error
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
