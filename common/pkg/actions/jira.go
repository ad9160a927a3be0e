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
	"strings"

	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

// JiraConfig is the rendered config of a jira action node.
type JiraConfig struct {
	BaseUrl      string                     `json:"baseUrl"`
	Email        string                     `json:"email"`
	ApiToken     string                     `json:"apiToken"`
	ProjectKey   string                     `json:"projectKey"`
	IssueType    string                     `json:"issueType,omitempty"`
	Summary      string                     `json:"summary"`
	Description  string                     `json:"description,omitempty"`
	Priority     string                     `json:"priority,omitempty"`
	Labels       []string                   `json:"labels,omitempty"`
	CustomFields map[string]json.RawMessage `json:"customFields,omitempty"`
}

type jiraCreateResponse struct {
	Id  string `json:"id"`
	Key string `json:"key"`
}

func (r *Runner) runJira(ctx context.Context, config json.RawMessage, tctx map[string]interface{}) (string, error) {
	var cfg JiraConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return "", commonerrors.NewBadRequest(fmt.Sprintf("invalid jira config: %v", err))
	}
	if cfg.BaseUrl == "" || cfg.ProjectKey == "" || cfg.Summary == "" {
		return "", commonerrors.NewBadRequest("jira config requires baseUrl, projectKey and summary")
	}
	issueType := cfg.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	fields := map[string]interface{}{
		"project":   map[string]string{"key": cfg.ProjectKey},
		"summary":   cfg.Summary,
		"issuetype": map[string]string{"name": issueType},
	}
	if cfg.Description != "" {
		fields["description"] = adfDocument(cfg.Description)
	}
	if cfg.Priority != "" {
		fields["priority"] = map[string]string{"name": cfg.Priority}
	}
	if len(cfg.Labels) > 0 {
		fields["labels"] = cfg.Labels
	}
	for field, value := range cfg.CustomFields {
		fields[field] = value
	}

	body, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(cfg.BaseUrl, "/") + "/rest/api/3/issue"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(cfg.Email, cfg.ApiToken)

	result, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	if !result.IsSuccess() {
		return "", &HTTPError{StatusCode: result.StatusCode, Body: truncateBody(result.Body)}
	}

	var created jiraCreateResponse
	if err := json.Unmarshal(result.Body, &created); err != nil {
		return "", fmt.Errorf("unexpected jira response: %w", err)
	}

	ticketUrl := strings.TrimRight(cfg.BaseUrl, "/") + "/browse/" + created.Key
	r.recordTicket(ctx, tctx, Ticket{
		Type: "jira", Id: created.Id, Key: created.Key, Url: ticketUrl,
	})
	return fmt.Sprintf("created %s (%s)", created.Key, ticketUrl), nil
}

// adfDocument wraps plain text in the minimal Atlassian Document Format
// envelope the v3 issue API requires.
func adfDocument(text string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": []interface{}{
			map[string]interface{}{
				"type": "paragraph",
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": text},
				},
			},
		},
	}
}
