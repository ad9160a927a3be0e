/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/beacon-oncall/beacon/common/pkg/common"
	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

// Problem is the RFC 7807 document every failed request renders as.
// Extension members (retry_after, validation_errors, ...) are flattened
// into the top-level object during marshaling.
type Problem struct {
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	Status     int                    `json:"status"`
	Detail     string                 `json:"detail,omitempty"`
	Instance   string                 `json:"instance,omitempty"`
	Extensions map[string]interface{} `json:"-"`
}

// MarshalJSON flattens extension members beside the standard fields.
func (p Problem) MarshalJSON() ([]byte, error) {
	doc := map[string]interface{}{
		"type":   p.Type,
		"title":  p.Title,
		"status": p.Status,
	}
	if p.Detail != "" {
		doc["detail"] = p.Detail
	}
	if p.Instance != "" {
		doc["instance"] = p.Instance
	}
	for key, value := range p.Extensions {
		doc[key] = value
	}
	return json.Marshal(doc)
}

// ProblemTypeURI returns the problem type URI for a slug.
func ProblemTypeURI(slug string) string {
	host := commonconfig.GetSystemHost()
	if host == "" {
		host = "beacon.local"
	}
	return fmt.Sprintf("https://api.%s/errors/%s", host, slug)
}

// AbortWithApiError converts the error into a Problem Details document and
// aborts the request with it. Unknown error types render as
// processing-failed without leaking their message.
func AbortWithApiError(c *gin.Context, err error) {
	_ = c.Error(err)
	problem := ConvertToProblem(err, c.Request.URL.Path)
	c.Header("Content-Type", common.ProblemContentType)
	c.AbortWithStatusJSON(problem.Status, problem)
}

// ConvertToProblem maps an error onto its RFC 7807 representation.
func ConvertToProblem(err error, instance string) Problem {
	apiErr := commonerrors.AsApiError(err)
	if apiErr == nil {
		apiErr = commonerrors.NewInternalError("an unexpected error occurred")
	}
	return Problem{
		Type:       ProblemTypeURI(apiErr.Slug),
		Title:      apiErr.Title,
		Status:     apiErr.HttpCode,
		Detail:     apiErr.Message,
		Instance:   instance,
		Extensions: apiErr.Extensions,
	}
}
