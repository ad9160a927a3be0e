/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Problem slugs. Each slug is the last segment of the problem type URI
// https://api.<host>/errors/<slug> returned to clients.
const (
	SlugInternalError     = "processing-failed"
	SlugBadRequest        = "bad-request"
	SlugValidationFailed  = "validation-failed"
	SlugPermissionDenied  = "permission-denied"
	SlugUnauthorized      = "unauthorized"
	SlugNotFound          = "resource-not-found"
	SlugConflict          = "conflict"
	SlugDuplicateName     = "duplicate-name"
	SlugRateLimited       = "rate-limited"
	SlugNotImplemented    = "not-implemented"
	SlugPayloadTooLarge   = "payload-too-large"
	SlugActionFailed      = "action-failed"

	SlugMissingSignature       = "missing-signature"
	SlugInvalidSignature       = "invalid-signature"
	SlugWebhookExpired         = "webhook-expired"
	SlugWebhookTimestampFuture = "webhook-timestamp-future"
	SlugIntegrationNotFound    = "integration-not-found"

	SlugScheduleOverrideConflict = "schedule-override-conflict"
	SlugRunbookActiveExecution   = "runbook-active-execution"
)

// StatusForError returns the HTTP status carried by the error, or 500.
func StatusForError(err error) int {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.HttpCode
	}
	return http.StatusInternalServerError
}

// SlugForError returns the problem slug carried by the error, or processing-failed.
func SlugForError(err error) string {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Slug
	}
	return SlugInternalError
}

// AsApiError extracts the ApiError from the chain, or nil.
func AsApiError(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func slugIs(err error, slug string) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Slug == slug
	}
	return false
}

func IsBadRequest(err error) bool {
	return slugIs(err, SlugBadRequest) || slugIs(err, SlugValidationFailed)
}

func IsInternal(err error) bool {
	return slugIs(err, SlugInternalError)
}

func IsNotFound(err error) bool {
	return StatusForError(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return StatusForError(err) == http.StatusConflict
}

func IsUnauthorized(err error) bool {
	return StatusForError(err) == http.StatusUnauthorized
}

func IsRateLimited(err error) bool {
	return slugIs(err, SlugRateLimited)
}

func IgnoreFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func NewBadRequest(message string) *ApiError {
	return newApiError(http.StatusBadRequest, SlugBadRequest, "Bad Request", message)
}

// NewValidationFailed builds a validation-failed problem carrying the
// per-field failures under the validation_errors extension.
func NewValidationFailed(message string, validationErrors []string) *ApiError {
	e := newApiError(http.StatusBadRequest, SlugValidationFailed, "Validation Failed", message)
	if len(validationErrors) > 0 {
		e.WithExtension("validation_errors", validationErrors)
	}
	return e
}

func NewInternalError(message string) *ApiError {
	return newApiError(http.StatusInternalServerError, SlugInternalError, "Processing Failed", message)
}

func NewAlreadyExist(message string) *ApiError {
	return newApiError(http.StatusConflict, SlugDuplicateName, "Duplicate Name", message)
}

func NewConflict(message string) *ApiError {
	return newApiError(http.StatusConflict, SlugConflict, "Conflict", message)
}

func NewScheduleOverrideConflict(message string) *ApiError {
	return newApiError(http.StatusConflict, SlugScheduleOverrideConflict, "Schedule Override Conflict", message)
}

func NewRunbookActiveExecution(message string) *ApiError {
	return newApiError(http.StatusConflict, SlugRunbookActiveExecution, "Runbook Has Active Execution", message)
}

func NewForbidden(message string) *ApiError {
	return newApiError(http.StatusForbidden, SlugPermissionDenied, "Permission Denied", message)
}

func NewNotFound(kind, name string) *ApiError {
	return newApiError(http.StatusNotFound, SlugNotFound, "Not Found",
		fmt.Sprintf("%s %s not found.", kind, name))
}

func NewNotFoundWithMessage(message string) *ApiError {
	return newApiError(http.StatusNotFound, SlugNotFound, "Not Found", message)
}

func NewIntegrationNotFound(name string) *ApiError {
	return newApiError(http.StatusNotFound, SlugIntegrationNotFound, "Integration Not Found",
		fmt.Sprintf("integration %s not found or inactive", name))
}

func NewUnauthorized(message string) *ApiError {
	return newApiError(http.StatusUnauthorized, SlugUnauthorized, "Unauthorized", message)
}

func NewMissingSignature() *ApiError {
	return newApiError(http.StatusUnauthorized, SlugMissingSignature, "Missing Signature",
		"the signature header is absent")
}

func NewInvalidSignature() *ApiError {
	return newApiError(http.StatusUnauthorized, SlugInvalidSignature, "Invalid Signature",
		"the signature does not match the payload")
}

func NewWebhookExpired(ageSeconds int64) *ApiError {
	return newApiError(http.StatusUnauthorized, SlugWebhookExpired, "Webhook Expired",
		fmt.Sprintf("the webhook timestamp is %ds old and exceeds the allowed age", ageSeconds))
}

func NewWebhookTimestampFuture() *ApiError {
	return newApiError(http.StatusUnauthorized, SlugWebhookTimestampFuture, "Webhook Timestamp In Future",
		"the webhook timestamp is too far in the future")
}

// NewRateLimited builds a rate-limited problem with the retry_after extension in seconds.
func NewRateLimited(retryAfterSeconds int) *ApiError {
	e := newApiError(http.StatusTooManyRequests, SlugRateLimited, "Rate Limited",
		"too many deliveries for this integration")
	return e.WithExtension("retry_after", retryAfterSeconds)
}

func NewPayloadTooLarge(message string) *ApiError {
	return newApiError(http.StatusRequestEntityTooLarge, SlugPayloadTooLarge, "Payload Too Large", message)
}

func NewActionFailed(message string) *ApiError {
	return newApiError(http.StatusBadGateway, SlugActionFailed, "Action Failed", message)
}

func NewNotImplemented(message string) *ApiError {
	return newApiError(http.StatusNotImplemented, SlugNotImplemented, "Not Implemented", message)
}
