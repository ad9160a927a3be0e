/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
)

// ApiError is the canonical error carried across service boundaries.
// It renders as an RFC 7807 problem document: Slug becomes the tail of the
// problem type URI, Title the human-readable summary, Message the detail.
// Extensions carry additional members such as retry_after or validation_errors.
type ApiError struct {
	HttpCode   int                    `json:"-"`
	Slug       string                 `json:"slug"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// Error implements the error interface.
func (e *ApiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (%d)", e.Slug, e.HttpCode)
	}
	return fmt.Sprintf("%s (%d): %s", e.Slug, e.HttpCode, e.Message)
}

// WithExtension attaches an extension member and returns the error for chaining.
func (e *ApiError) WithExtension(key string, value interface{}) *ApiError {
	if e.Extensions == nil {
		e.Extensions = map[string]interface{}{}
	}
	e.Extensions[key] = value
	return e
}

// WithMessage replaces the detail message and returns the error for chaining.
func (e *ApiError) WithMessage(message string) *ApiError {
	e.Message = message
	return e
}

func newApiError(httpCode int, slug, title, message string) *ApiError {
	return &ApiError{
		HttpCode: httpCode,
		Slug:     slug,
		Title:    title,
		Message:  message,
	}
}

func defaultTitle(httpCode int) string {
	if text := http.StatusText(httpCode); text != "" {
		return text
	}
	return "Error"
}
