/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package view

// CreateApiKeyRequest represents the request body for creating an API key
type CreateApiKeyRequest struct {
	// Name is the display name for the API key (required, can be duplicated)
	Name string `json:"name" binding:"required,max=100"`
	// TTLDays is the number of days until the API key expires (required, max 366)
	TTLDays int `json:"ttlDays" binding:"required,min=1,max=366"`
	// Whitelist is an optional list of IP addresses or CIDR ranges
	Whitelist []string `json:"whitelist,omitempty"`
}

// CreateApiKeyResponse represents the response after creating an API key.
// The apiKey field is only returned once during creation.
type CreateApiKeyResponse struct {
	Id     int64  `json:"id"`
	Name   string `json:"name"`
	UserId string `json:"userId"`
	// ApiKey is the actual API key value (only returned during creation)
	ApiKey         string   `json:"apiKey"`
	ExpirationTime string   `json:"expirationTime"`
	CreationTime   string   `json:"creationTime"`
	Whitelist      []string `json:"whitelist"`
}

type ListApiKeyRequest struct {
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	SortBy string `form:"sortBy" binding:"omitempty"`
	Order  string `form:"order" binding:"omitempty,oneof=desc asc"`
	// UserId is set internally (not from query params)
	UserId string `form:"-"`
}

type ListApiKeyResponse struct {
	TotalCount int                  `json:"totalCount"`
	Items      []ApiKeyResponseItem `json:"items"`
}

// ApiKeyResponseItem represents an API key in list responses.
// The actual API key value is never returned after creation.
type ApiKeyResponseItem struct {
	Id     int64  `json:"id"`
	Name   string `json:"name"`
	UserId string `json:"userId"`
	// KeyHint is the partial key for display, e.g. "ak-XX****YYYY"
	KeyHint        string   `json:"keyHint"`
	ExpirationTime string   `json:"expirationTime"`
	CreationTime   string   `json:"creationTime"`
	Whitelist      []string `json:"whitelist"`
	Deleted        bool     `json:"deleted"`
}
