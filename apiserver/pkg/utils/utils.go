/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/common/pkg/common"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	jsonutils "github.com/beacon-oncall/beacon/utils/pkg/json"
)

const (
	DefaultMaxRequestBodyBytes = int64(2 * 1024 * 1024)
)

// ReadBody reads the HTTP request body with a size limit to prevent
// excessive memory consumption.
// The request body is automatically closed after reading.
func ReadBody(req *http.Request) ([]byte, error) {
	defer req.Body.Close()
	lr := &io.LimitedReader{
		R: req.Body,
		N: DefaultMaxRequestBodyBytes + 1,
	}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	if lr.N <= 0 {
		return nil, commonerrors.NewPayloadTooLarge(
			fmt.Sprintf("the max length is %d bytes", DefaultMaxRequestBodyBytes))
	}
	return data, nil
}

// ParseRequestBody reads the request body and unmarshals it into the
// provided struct. It returns the raw body bytes and any error
// encountered. An empty body returns nil for both.
func ParseRequestBody(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := ReadBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err = jsonutils.Unmarshal(body, bodyStruct); err != nil {
		return body, commonerrors.NewBadRequest(err.Error())
	}
	return body, nil
}

// ParseId parses the numeric :id path parameter.
func ParseId(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	if raw == "" {
		return 0, commonerrors.NewBadRequest("id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, commonerrors.NewBadRequest("invalid id format")
	}
	return id, nil
}

// ParsePage parses limit/offset query parameters with the shared
// defaults and the page-size cap.
func ParsePage(c *gin.Context) (limit, offset int, err error) {
	limit = common.DefaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return 0, 0, commonerrors.NewBadRequest("invalid limit")
		}
		if limit > common.MaxPageLimit {
			limit = common.MaxPageLimit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, commonerrors.NewBadRequest("invalid offset")
		}
	}
	return limit, offset, nil
}

// RequestUser returns the acting user name, falling back to the user id.
func RequestUser(c *gin.Context) string {
	if name := c.GetString(common.UserName); name != "" {
		return name
	}
	return c.GetString(common.UserId)
}
