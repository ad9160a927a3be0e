/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/metrics"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
	backoffutil "github.com/beacon-oncall/beacon/utils/pkg/backoff"
)

const (
	// timeoutError is the error message recorded on executions cancelled
	// for exceeding their workflow timeout.
	timeoutError = "Workflow timeout exceeded"

	// maxActionAttemptTime caps a single action attempt.
	maxActionAttemptTime = 30 * time.Second
	// delaySafetyMargin keeps a delay from eating the whole remaining
	// workflow time.
	delaySafetyMargin = time.Second
)

// ExecutionStore is the slice of the database the engine needs.
type ExecutionStore interface {
	GetWorkflowExecution(ctx context.Context, id int64) (*client.WorkflowExecution, error)
	ClaimWorkflowExecution(ctx context.Context, id int64) (bool, error)
	UpdateWorkflowExecution(ctx context.Context, execution *client.WorkflowExecution) error
}

// ActionRunner executes one action kind with an interpolated config.
// Retryable classifies an execution error as transient (5xx, network,
// timeout) or permanent.
type ActionRunner interface {
	Run(ctx context.Context, kind string, config json.RawMessage, context map[string]interface{}) (string, error)
	Retryable(err error) bool
}

// Engine runs claimed workflow executions node by node, persisting
// progress after every step.
type Engine struct {
	store  ExecutionStore
	runner ActionRunner

	defaultTimeoutSecond int
	maxNodeRetry         int
}

func NewEngine(store ExecutionStore, runner ActionRunner) *Engine {
	return &Engine{
		store:                store,
		runner:               runner,
		defaultTimeoutSecond: commonconfig.GetWorkflowDefaultTimeoutSecond(),
		maxNodeRetry:         commonconfig.GetWorkflowMaxNodeRetry(),
	}
}

// executionPayload is the queue job body pointing at the execution row.
type executionPayload struct {
	ExecutionId int64 `json:"executionId"`
}

// HandleJob is the queue handler for workflow execution jobs.
func (e *Engine) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload executionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("malformed workflow execution payload for job %s: %v", job.Id, err)
	}
	return e.Execute(ctx, payload.ExecutionId)
}

// Execute claims and runs one execution. A lost claim is a no-op, so a
// redelivered job never runs an execution twice.
func (e *Engine) Execute(ctx context.Context, executionId int64) error {
	claimed, err := e.store.ClaimWorkflowExecution(ctx, executionId)
	if err != nil {
		return err
	}
	if !claimed {
		klog.V(4).InfoS("workflow execution already claimed", "executionId", executionId)
		return nil
	}

	execution, err := e.store.GetWorkflowExecution(ctx, executionId)
	if err != nil {
		return err
	}

	def, err := Parse(execution.Definition)
	if err != nil {
		return e.finish(ctx, execution, nil, constvar.ExecutionStatusFailed,
			fmt.Sprintf("definition snapshot is unreadable: %v", err))
	}
	ordered, err := Order(def)
	if err != nil {
		return e.finish(ctx, execution, nil, constvar.ExecutionStatusFailed, err.Error())
	}

	templateCtx := map[string]interface{}{}
	if execution.Context.Valid && execution.Context.String != "" {
		if err := json.Unmarshal([]byte(execution.Context.String), &templateCtx); err != nil {
			return e.finish(ctx, execution, nil, constvar.ExecutionStatusFailed,
				fmt.Sprintf("context snapshot is unreadable: %v", err))
		}
	}

	start := time.Now().UTC()
	if execution.StartTime.Valid {
		start = execution.StartTime.Time
	}
	deadline := start.Add(def.Timeout(e.defaultTimeoutSecond))

	var results []NodeResult
	executed := make(map[string]bool, len(ordered))
	// decisions maps a fired condition node to the branch it took.
	decisions := make(map[string]string)

	for _, node := range ordered {
		if !reachable(def, node, executed, decisions) {
			results = append(results, NodeResult{
				NodeId: node.Id, Status: constvar.NodeStatusSkipped,
				StartedAt: time.Now().UTC(), CompletedAt: time.Now().UTC(),
			})
			if err := e.persistProgress(ctx, execution, node.Id, results); err != nil {
				return err
			}
			continue
		}

		if time.Now().After(deadline) {
			return e.finish(ctx, execution, results, constvar.ExecutionStatusCancelled, timeoutError)
		}

		if err := e.persistProgress(ctx, execution, node.Id, results); err != nil {
			return err
		}

		nodeStart := time.Now().UTC()
		result, nodeErr := e.runNode(ctx, node, def, templateCtx, deadline, decisions)
		nodeEnd := time.Now().UTC()
		metrics.ObserveWorkflowNodeDuration(node.Type, nodeEnd.Sub(nodeStart).Seconds())

		entry := NodeResult{
			NodeId: node.Id, Status: constvar.NodeStatusCompleted,
			Result: result, StartedAt: nodeStart, CompletedAt: nodeEnd,
		}
		if nodeErr != nil {
			entry.Status = constvar.NodeStatusFailed
			entry.Error = nodeErr.Error()
		}
		results = append(results, entry)
		if err := e.persistProgress(ctx, execution, node.Id, results); err != nil {
			return err
		}

		if nodeErr != nil {
			// Stop on first error.
			return e.finish(ctx, execution, results, constvar.ExecutionStatusFailed,
				fmt.Sprintf("node %s: %v", node.Id, nodeErr))
		}
		executed[node.Id] = true
	}

	return e.finish(ctx, execution, results, constvar.ExecutionStatusCompleted, "")
}

// runNode executes a single node and returns its recorded result.
func (e *Engine) runNode(ctx context.Context, node *Node, def *Definition, templateCtx map[string]interface{}, deadline time.Time, decisions map[string]string) (string, error) {
	switch node.Type {
	case NodeTrigger:
		return "", nil

	case NodeCondition:
		if node.Condition == nil {
			return "", fmt.Errorf("condition node has no spec")
		}
		value, _ := GetNestedValue(templateCtx, node.Condition.Field)
		branch := BranchFalse
		if stringify(value) == node.Condition.Value {
			branch = BranchTrue
		}
		decisions[node.Id] = branch
		return branch, nil

	case NodeDelay:
		if node.Delay == nil {
			return "", fmt.Errorf("delay node has no spec")
		}
		wait := time.Duration(node.Delay.DurationMinutes) * time.Minute
		if remaining := time.Until(deadline) - delaySafetyMargin; wait > remaining {
			wait = remaining
		}
		if wait > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
		return fmt.Sprintf("waited %s", wait.Round(time.Millisecond)), nil

	case NodeAction:
		if node.Action == nil {
			return "", fmt.Errorf("action node has no spec")
		}
		return e.runAction(ctx, node.Action, templateCtx, deadline)

	default:
		return "", fmt.Errorf("unknown node type %q", node.Type)
	}
}

// runAction retries transient failures with exponential backoff. Each
// attempt is individually capped so one hung call cannot consume the
// whole workflow budget.
func (e *Engine) runAction(ctx context.Context, spec *ActionSpec, templateCtx map[string]interface{}, deadline time.Time) (string, error) {
	attempts := spec.Retry.Attempts
	if attempts <= 0 {
		attempts = e.maxNodeRetry
	}
	initial := time.Duration(spec.Retry.InitialDelaySecond) * time.Second
	if initial <= 0 {
		initial = time.Second
	}

	config := json.RawMessage(Render(string(spec.Config), templateCtx))

	var result string
	op := func() error {
		attemptCap := maxActionAttemptTime
		if budget := time.Duration(float64(time.Until(deadline)) * 0.8); budget < attemptCap {
			attemptCap = budget
		}
		if attemptCap <= 0 {
			return fmt.Errorf(timeoutError)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, attemptCap)
		defer cancel()

		out, err := e.runner.Run(attemptCtx, spec.Kind, config, templateCtx)
		if err != nil {
			return err
		}
		result = out
		return nil
	}
	if err := backoffutil.RetryIfExponential(op, attempts, initial, e.runner.Retryable); err != nil {
		return "", err
	}
	return result, nil
}

// reachable reports whether a node is on a live path: the trigger always
// is, any other node needs an executed upstream node whose connecting
// edge survived the branch decisions.
func reachable(def *Definition, node *Node, executed map[string]bool, decisions map[string]string) bool {
	if node.Type == NodeTrigger {
		return true
	}
	for _, edge := range def.Edges {
		if edge.Target != node.Id || !executed[edge.Source] {
			continue
		}
		if edge.Branch == "" || decisions[edge.Source] == edge.Branch {
			return true
		}
	}
	return false
}

func (e *Engine) persistProgress(ctx context.Context, execution *client.WorkflowExecution, currentNodeId string, results []NodeResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	execution.CurrentNodeId = dbutils.NullString(currentNodeId)
	execution.CompletedNodes = dbutils.NullString(string(data))
	execution.Status = string(constvar.ExecutionStatusRunning)
	return e.store.UpdateWorkflowExecution(ctx, execution)
}

func (e *Engine) finish(ctx context.Context, execution *client.WorkflowExecution, results []NodeResult, status constvar.ExecutionStatus, errMessage string) error {
	if results != nil {
		data, err := json.Marshal(results)
		if err != nil {
			return err
		}
		execution.CompletedNodes = dbutils.NullString(string(data))
	}
	now := time.Now().UTC()
	execution.Status = string(status)
	execution.ErrorMessage = dbutils.NullString(errMessage)
	execution.EndTime = dbutils.NullTime(now)

	if err := e.store.UpdateWorkflowExecution(ctx, execution); err != nil {
		return err
	}

	metrics.IncWorkflowExecutionCount(execution.TriggerType, string(status))
	if execution.StartTime.Valid {
		metrics.ObserveWorkflowExecutionDuration(execution.TriggerType, now.Sub(execution.StartTime.Time).Seconds())
	}
	klog.InfoS("workflow execution finished", "executionId", execution.Id,
		"workflowId", execution.WorkflowId, "status", status, "error", errMessage)
	return nil
}
