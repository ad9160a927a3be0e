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

const defaultLinearEndpoint = "https://api.linear.app/graphql"

const linearCreateIssueMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id identifier url }
  }
}`

// LinearConfig is the rendered config of a linear action node.
type LinearConfig struct {
	Endpoint    string `json:"endpoint,omitempty"`
	ApiKey      string `json:"apiKey"`
	TeamId      string `json:"teamId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

type linearCreateResponse struct {
	Data struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   struct {
				Id         string `json:"id"`
				Identifier string `json:"identifier"`
				Url        string `json:"url"`
			} `json:"issue"`
		} `json:"issueCreate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (r *Runner) runLinear(ctx context.Context, config json.RawMessage, tctx map[string]interface{}) (string, error) {
	var cfg LinearConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return "", commonerrors.NewBadRequest(fmt.Sprintf("invalid linear config: %v", err))
	}
	if cfg.ApiKey == "" || cfg.TeamId == "" || cfg.Title == "" {
		return "", commonerrors.NewBadRequest("linear config requires apiKey, teamId and title")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultLinearEndpoint
	}

	input := map[string]interface{}{
		"teamId": cfg.TeamId,
		"title":  cfg.Title,
	}
	if cfg.Description != "" {
		input["description"] = cfg.Description
	}
	if cfg.Priority > 0 {
		input["priority"] = cfg.Priority
	}
	body, err := json.Marshal(map[string]interface{}{
		"query":     linearCreateIssueMutation,
		"variables": map[string]interface{}{"input": input},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", cfg.ApiKey)

	result, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	if !result.IsSuccess() {
		return "", &HTTPError{StatusCode: result.StatusCode, Body: truncateBody(result.Body)}
	}

	var created linearCreateResponse
	if err := json.Unmarshal(result.Body, &created); err != nil {
		return "", fmt.Errorf("unexpected linear response: %w", err)
	}
	if len(created.Errors) > 0 {
		return "", fmt.Errorf("linear rejected issue: %s", created.Errors[0].Message)
	}
	issue := created.Data.IssueCreate.Issue
	if !created.Data.IssueCreate.Success || issue.Id == "" {
		return "", fmt.Errorf("linear did not create the issue")
	}

	r.recordTicket(ctx, tctx, Ticket{
		Type: "linear", Id: issue.Id, Key: issue.Identifier, Url: issue.Url,
	})
	return fmt.Sprintf("created %s (%s)", issue.Identifier, issue.Url), nil
}
