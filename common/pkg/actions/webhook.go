/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

// AuthConfig selects how an outbound request authenticates.
type AuthConfig struct {
	Type         string            `json:"type"`
	Token        string            `json:"token,omitempty"`
	Username     string            `json:"username,omitempty"`
	Password     string            `json:"password,omitempty"`
	TokenUrl     string            `json:"tokenUrl,omitempty"`
	ClientId     string            `json:"clientId,omitempty"`
	ClientSecret string            `json:"clientSecret,omitempty"`
	Scopes       []string          `json:"scopes,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// WebhookConfig is the rendered config of a webhook action node.
type WebhookConfig struct {
	Url     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Auth    *AuthConfig       `json:"auth,omitempty"`
}

var allowedWebhookMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

func (r *Runner) runWebhook(ctx context.Context, config json.RawMessage) (string, error) {
	var cfg WebhookConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return "", commonerrors.NewBadRequest(fmt.Sprintf("invalid webhook config: %v", err))
	}
	if cfg.Url == "" {
		return "", commonerrors.NewBadRequest("webhook config requires a url")
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	if !allowedWebhookMethods[method] {
		return "", commonerrors.NewBadRequest(fmt.Sprintf("webhook method %q is not allowed", method))
	}

	req, err := r.newWebhookRequest(ctx, method, &cfg)
	if err != nil {
		return "", err
	}
	result, err := r.http.Do(req)
	if err != nil {
		return "", err
	}

	// A 401 on a cached oauth2 token means the provider revoked it before
	// its TTL ran out; drop the cache entry and retry once with a fresh
	// token instead of failing every action until expiry.
	if result.StatusCode == http.StatusUnauthorized && cfg.Auth != nil && cfg.Auth.Type == "oauth2" {
		r.tokens.Invalidate(cfg.Auth.TokenUrl, cfg.Auth.ClientId)
		req, err = r.newWebhookRequest(ctx, method, &cfg)
		if err != nil {
			return "", err
		}
		result, err = r.http.Do(req)
		if err != nil {
			return "", err
		}
	}

	if !result.IsSuccess() {
		return "", &HTTPError{StatusCode: result.StatusCode, Body: truncateBody(result.Body)}
	}
	return truncateBody(result.Body), nil
}

// newWebhookRequest builds one attempt. The request is built directly
// instead of through httpclient.BuildRequest so plain-http endpoints
// keep their scheme.
func (r *Runner) newWebhookRequest(ctx context.Context, method string, cfg *WebhookConfig) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, cfg.Url, bytes.NewReader(cfg.Body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if err := r.applyAuth(ctx, req, cfg.Auth); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *Runner) applyAuth(ctx context.Context, req *http.Request, auth *AuthConfig) error {
	if auth == nil || auth.Type == "" || auth.Type == "none" {
		return nil
	}
	switch auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "basic":
		req.SetBasicAuth(auth.Username, auth.Password)
	case "oauth2":
		token, err := r.tokens.Token(ctx, auth.TokenUrl, auth.ClientId, auth.ClientSecret, auth.Scopes)
		if err != nil {
			return fmt.Errorf("oauth2 token fetch: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case "headers":
		for k, v := range auth.Headers {
			req.Header.Set(k, v)
		}
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown auth type %q", auth.Type))
	}
	return nil
}
