/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runbook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/crypto"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/metrics"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
	"github.com/beacon-oncall/beacon/utils/pkg/httpclient"
)

const resultBodyLimit = 1024

// Store is the slice of the database the executor needs.
type Store interface {
	GetRunbook(ctx context.Context, id int64) (*client.Runbook, error)
	InsertRunbookExecution(ctx context.Context, execution *client.RunbookExecution) (int64, error)
	UpdateRunbookExecution(ctx context.Context, execution *client.RunbookExecution) error
}

// Decrypter recovers a secret stored encrypted at rest.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Request describes one runbook invocation.
type Request struct {
	RunbookId     int64
	IncidentId    int64
	Parameters    map[string]interface{}
	TriggeredBy   constvar.TriggeredBy
	TriggeredUser string
}

// Executor runs approved runbooks: it type-checks parameters, renders
// the payload template and fires the configured webhook, recording the
// outcome row as it goes.
type Executor struct {
	store   Store
	http    httpclient.Interface
	decrypt Decrypter
}

func NewExecutor(store Store, hc httpclient.Interface) *Executor {
	return &Executor{store: store, http: hc, decrypt: crypto.NewCrypto()}
}

// Execute runs one runbook and returns its finished execution row. The
// row is persisted RUNNING before the webhook fires so operators can see
// in-flight runs; HTTP failures finish the row FAILED and are also
// returned as errors.
func (e *Executor) Execute(ctx context.Context, req *Request) (*client.RunbookExecution, error) {
	rb, err := e.store.GetRunbook(ctx, req.RunbookId)
	if err != nil {
		return nil, err
	}
	switch constvar.RunbookStatus(rb.ApprovalStatus) {
	case constvar.RunbookStatusApproved:
	case constvar.RunbookStatusDeprecated:
		return nil, commonerrors.NewConflict(fmt.Sprintf("runbook %q is deprecated and cannot execute", rb.Name))
	default:
		return nil, commonerrors.NewConflict(fmt.Sprintf("runbook %q is not approved", rb.Name))
	}

	schema, err := ParseSchema(dbutils.ParseNullString(rb.ParameterSchema))
	if err != nil {
		return nil, err
	}
	params, err := CheckParameters(schema, req.Parameters)
	if err != nil {
		return nil, err
	}

	paramsData, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	execution := &client.RunbookExecution{
		RunbookId:   rb.Id,
		Parameters:  dbutils.NullString(string(paramsData)),
		TriggeredBy: string(req.TriggeredBy),
		Status:      string(constvar.RunbookExecutionRunning),
		StartTime:   dbutils.NullTime(time.Now().UTC()),
	}
	if req.IncidentId != 0 {
		execution.IncidentId = dbutils.NullInt64(req.IncidentId)
	}
	if req.TriggeredUser != "" {
		execution.TriggeredUser = dbutils.NullString(req.TriggeredUser)
	}
	if execution.Id, err = e.store.InsertRunbookExecution(ctx, execution); err != nil {
		return nil, err
	}

	statusCode, body, callErr := e.call(ctx, rb, params)
	e.finish(ctx, execution, statusCode, body, callErr)
	if callErr != nil {
		return execution, callErr
	}
	return execution, nil
}

// RunForWorkflow adapts Execute to the workflow action contract. The
// rendered node config carries the runbook id and parameter values.
func (e *Executor) RunForWorkflow(ctx context.Context, config json.RawMessage, tctx map[string]interface{}) (string, error) {
	var cfg struct {
		RunbookId  int64                  `json:"runbookId"`
		Parameters map[string]interface{} `json:"parameters"`
	}
	if err := json.Unmarshal(config, &cfg); err != nil {
		return "", commonerrors.NewBadRequest(fmt.Sprintf("invalid runbook action config: %v", err))
	}
	if cfg.RunbookId == 0 {
		return "", commonerrors.NewBadRequest("runbook action config requires runbookId")
	}

	req := &Request{
		RunbookId:   cfg.RunbookId,
		Parameters:  cfg.Parameters,
		TriggeredBy: constvar.TriggeredByWorkflow,
	}
	if incident, ok := tctx["incident"].(map[string]interface{}); ok {
		if id, ok := incident["id"].(float64); ok {
			req.IncidentId = int64(id)
		}
	}

	execution, err := e.Execute(ctx, req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("runbook execution %d succeeded (%d)", execution.Id, execution.StatusCode.Int64), nil
}

// HandleJob processes a queued runbook execution. Failures are final:
// the execution row already records the outcome, retrying would fire
// the webhook twice.
func (e *Executor) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload struct {
		RunbookId     int64                  `json:"runbookId"`
		IncidentId    int64                  `json:"incidentId,omitempty"`
		Parameters    map[string]interface{} `json:"parameters,omitempty"`
		TriggeredBy   string                 `json:"triggeredBy,omitempty"`
		TriggeredUser string                 `json:"triggeredUser,omitempty"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		klog.ErrorS(err, "dropping runbook job with invalid payload", "id", job.Id)
		return nil
	}
	triggeredBy := constvar.TriggeredBy(payload.TriggeredBy)
	if triggeredBy == "" {
		triggeredBy = constvar.TriggeredByWorkflow
	}
	_, err := e.Execute(ctx, &Request{
		RunbookId:     payload.RunbookId,
		IncidentId:    payload.IncidentId,
		Parameters:    payload.Parameters,
		TriggeredBy:   triggeredBy,
		TriggeredUser: payload.TriggeredUser,
	})
	if err != nil {
		klog.ErrorS(err, "queued runbook execution failed", "id", job.Id, "runbookId", payload.RunbookId)
	}
	return err
}

// call renders the payload and fires the webhook. It returns the
// upstream status, the truncated response body and an error for
// transport failures or non-2xx statuses.
func (e *Executor) call(ctx context.Context, rb *client.Runbook, params map[string]interface{}) (int, string, error) {
	payload := workflow.Render(dbutils.ParseNullString(rb.PayloadTemplate), params)

	timeout := time.Duration(rb.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, rb.HttpMethod, rb.WebhookUrl, strings.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if rb.Headers.Valid && rb.Headers.String != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(rb.Headers.String), &headers); err == nil {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
		}
	}
	if err := e.applyAuth(req, rb); err != nil {
		return 0, "", err
	}

	result, err := e.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	body := result.Body
	if len(body) > resultBodyLimit {
		body = body[:resultBodyLimit]
	}
	if !result.IsSuccess() {
		return result.StatusCode, string(body), fmt.Errorf("runbook webhook returned %d", result.StatusCode)
	}
	return result.StatusCode, string(body), nil
}

func (e *Executor) applyAuth(req *http.Request, rb *client.Runbook) error {
	authType := dbutils.ParseNullString(rb.AuthType)
	if authType == "" || authType == "none" {
		return nil
	}
	raw := dbutils.ParseNullString(rb.AuthConfig)
	plain, err := e.decrypt.Decrypt(raw)
	if err != nil {
		return fmt.Errorf("decrypt auth config: %w", err)
	}
	var cfg struct {
		Token    string            `json:"token"`
		Username string            `json:"username"`
		Password string            `json:"password"`
		Headers  map[string]string `json:"headers"`
	}
	if err := json.Unmarshal([]byte(plain), &cfg); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}
	switch authType {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	case "basic":
		req.SetBasicAuth(cfg.Username, cfg.Password)
	case "headers":
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown runbook auth type %q", authType))
	}
	return nil
}

// finish writes the terminal execution row and emits metrics.
func (e *Executor) finish(ctx context.Context, execution *client.RunbookExecution, statusCode int, body string, callErr error) {
	now := time.Now().UTC()
	execution.EndTime = dbutils.NullTime(now)
	if execution.StartTime.Valid {
		execution.DurationMs = dbutils.NullInt64(now.Sub(execution.StartTime.Time).Milliseconds())
	}
	if statusCode != 0 {
		execution.StatusCode = dbutils.NullInt64(int64(statusCode))
	}
	if body != "" {
		execution.Result = dbutils.NullString(body)
	}
	if callErr != nil {
		execution.Status = string(constvar.RunbookExecutionFailed)
		execution.ErrorMessage = dbutils.NullString(callErr.Error())
	} else {
		execution.Status = string(constvar.RunbookExecutionSuccess)
	}

	if err := e.store.UpdateRunbookExecution(ctx, execution); err != nil {
		klog.ErrorS(err, "failed to finish runbook execution", "executionId", execution.Id)
	}
	metrics.IncRunbookExecutionCount(execution.TriggeredBy, execution.Status)
	if execution.DurationMs.Valid {
		metrics.ObserveRunbookExecutionDuration(execution.TriggeredBy,
			float64(execution.DurationMs.Int64)/1000.0)
	}
}
