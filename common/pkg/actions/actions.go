/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package actions executes the outbound side of workflow nodes: generic
// webhooks, Jira issue creation and Linear issue creation. The runner
// receives config already rendered against the execution's template
// context.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/beacon-oncall/beacon/common/pkg/workflow"
	"github.com/beacon-oncall/beacon/utils/pkg/httpclient"
)

const responseBodyLimit = 1024

// HTTPError carries the upstream status so retry classification can
// distinguish server-side failures from caller mistakes.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// RunbookInvoker runs a runbook on behalf of a workflow node. The
// runbook package provides the implementation; the indirection keeps
// this package free of a dependency on runbook internals.
type RunbookInvoker interface {
	RunForWorkflow(ctx context.Context, config json.RawMessage, tctx map[string]interface{}) (string, error)
}

// Runner dispatches workflow action nodes to their executors. It
// implements workflow.ActionRunner.
type Runner struct {
	http     httpclient.Interface
	tickets  TicketStore
	tokens   *tokenCache
	runbooks RunbookInvoker
}

var _ workflow.ActionRunner = (*Runner)(nil)

func NewRunner(hc httpclient.Interface, tickets TicketStore, runbooks RunbookInvoker) *Runner {
	return &Runner{
		http:     hc,
		tickets:  tickets,
		tokens:   newTokenCache(),
		runbooks: runbooks,
	}
}

func (r *Runner) Run(ctx context.Context, kind string, config json.RawMessage, tctx map[string]interface{}) (string, error) {
	switch kind {
	case workflow.ActionWebhook:
		return r.runWebhook(ctx, config)
	case workflow.ActionJira:
		return r.runJira(ctx, config, tctx)
	case workflow.ActionLinear:
		return r.runLinear(ctx, config, tctx)
	case workflow.ActionRunbook:
		if r.runbooks == nil {
			return "", errors.New("runbook execution is not configured")
		}
		return r.runbooks.RunForWorkflow(ctx, config, tctx)
	default:
		return "", fmt.Errorf("unknown action kind %q", kind)
	}
}

// Retryable reports whether a failed attempt is worth repeating:
// network-level failures, timeouts and upstream 5xx/429 are; other
// HTTP statuses mean the request itself is wrong.
func (r *Runner) Retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func truncateBody(body []byte) string {
	if len(body) > responseBodyLimit {
		return string(body[:responseBodyLimit])
	}
	return string(body)
}

// incidentIdFromContext digs the incident id out of a rendered template
// context. Executions without an incident return false.
func incidentIdFromContext(tctx map[string]interface{}) (int64, bool) {
	incident, ok := tctx["incident"].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch id := incident["id"].(type) {
	case float64:
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	default:
		return 0, false
	}
}
