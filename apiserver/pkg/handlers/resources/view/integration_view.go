/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package view

// CreateIntegrationRequest registers a signed webhook source. The
// signing secret is generated server side, never supplied by the
// caller.
type CreateIntegrationRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Provider string `json:"provider" binding:"required,max=32"`
	TeamId   int64  `json:"teamId" binding:"required"`
	// Service is the default service tag stamped on alerts from this
	// source when the payload carries none.
	Service string `json:"service" binding:"omitempty,max=128"`
	// SignatureHeader defaults to X-Webhook-Signature.
	SignatureHeader string `json:"signatureHeader" binding:"omitempty,max=128"`
	Algorithm       string `json:"algorithm" binding:"omitempty,oneof=sha256 sha512"`
	Format          string `json:"format" binding:"omitempty,oneof=hex base64"`
	// Prefix is stripped from the signature header value before
	// comparison, e.g. "sha256=".
	Prefix          string `json:"prefix" binding:"omitempty,max=32"`
	TimestampHeader string `json:"timestampHeader" binding:"omitempty,max=128"`
	// TimestampMaxAgeSecond bounds delivery age when a timestamp header
	// is configured. Defaults to 300.
	TimestampMaxAgeSecond int `json:"timestampMaxAgeSecond" binding:"omitempty,min=1,max=3600"`
	// DedupWindowMinute is the fingerprint deduplication window.
	// Defaults to 15.
	DedupWindowMinute int `json:"dedupWindowMinute" binding:"omitempty,min=1,max=1440"`
}

// CreateIntegrationResponse carries the plaintext signing secret. It is
// returned exactly once; every later read exposes only the hint.
type CreateIntegrationResponse struct {
	IntegrationResponseItem
	SigningSecret string `json:"signingSecret"`
}

type UpdateIntegrationRequest struct {
	Name                  string  `json:"name" binding:"omitempty,max=128"`
	Service               *string `json:"service" binding:"omitempty"`
	SignatureHeader       string  `json:"signatureHeader" binding:"omitempty,max=128"`
	Algorithm             string  `json:"algorithm" binding:"omitempty,oneof=sha256 sha512"`
	Format                string  `json:"format" binding:"omitempty,oneof=hex base64"`
	Prefix                *string `json:"prefix" binding:"omitempty"`
	TimestampHeader       *string `json:"timestampHeader" binding:"omitempty"`
	TimestampMaxAgeSecond *int    `json:"timestampMaxAgeSecond" binding:"omitempty,min=1,max=3600"`
	DedupWindowMinute     *int    `json:"dedupWindowMinute" binding:"omitempty,min=1,max=1440"`
	Active                *bool   `json:"active" binding:"omitempty"`
}

type ListIntegrationRequest struct {
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
	Limit    int    `form:"limit" binding:"omitempty,min=1"`
	SortBy   string `form:"sortBy" binding:"omitempty"`
	Order    string `form:"order" binding:"omitempty,oneof=desc asc"`
	Name     string `form:"name" binding:"omitempty"`
	Provider string `form:"provider" binding:"omitempty"`
	TeamId   int64  `form:"teamId" binding:"omitempty,min=1"`
}

type ListIntegrationResponse struct {
	TotalCount int                       `json:"totalCount"`
	Items      []IntegrationResponseItem `json:"items"`
}

// IntegrationResponseItem never carries the signing secret; SecretHint
// holds the first characters of the plaintext for identification.
type IntegrationResponseItem struct {
	Id                    int64  `json:"id"`
	Name                  string `json:"name"`
	Provider              string `json:"provider"`
	TeamId                int64  `json:"teamId"`
	Service               string `json:"service,omitempty"`
	SecretHint            string `json:"secretHint"`
	SignatureHeader       string `json:"signatureHeader"`
	Algorithm             string `json:"algorithm"`
	Format                string `json:"format"`
	Prefix                string `json:"prefix,omitempty"`
	TimestampHeader       string `json:"timestampHeader,omitempty"`
	TimestampMaxAgeSecond int    `json:"timestampMaxAgeSecond"`
	DedupWindowMinute     int    `json:"dedupWindowMinute"`
	Active                bool   `json:"active"`
	CreatedBy             string `json:"createdBy,omitempty"`
	CreateTime            string `json:"createTime,omitempty"`
	UpdateTime            string `json:"updateTime,omitempty"`
}

// RotateIntegrationSecretResponse carries the replacement secret, again
// returned exactly once.
type RotateIntegrationSecretResponse struct {
	Id            int64  `json:"id"`
	SigningSecret string `json:"signingSecret"`
	SecretHint    string `json:"secretHint"`
}
