/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
)

type fakeExecStore struct {
	execution *client.WorkflowExecution
	claimed   bool
	updates   int
}

func (f *fakeExecStore) GetWorkflowExecution(_ context.Context, _ int64) (*client.WorkflowExecution, error) {
	return f.execution, nil
}

func (f *fakeExecStore) ClaimWorkflowExecution(_ context.Context, _ int64) (bool, error) {
	if f.claimed {
		return false, nil
	}
	f.claimed = true
	f.execution.Status = string(constvar.ExecutionStatusRunning)
	if !f.execution.StartTime.Valid {
		f.execution.StartTime = dbutils.NullTime(time.Now().UTC())
	}
	return true, nil
}

func (f *fakeExecStore) UpdateWorkflowExecution(_ context.Context, execution *client.WorkflowExecution) error {
	f.updates++
	f.execution = execution
	return nil
}

type transientError struct{ msg string }

func (e *transientError) Error() string { return e.msg }

type fakeRunner struct {
	calls    []string
	failures map[string]int
	lastCfg  json.RawMessage
}

func (f *fakeRunner) Run(_ context.Context, kind string, config json.RawMessage, _ map[string]interface{}) (string, error) {
	f.calls = append(f.calls, kind)
	f.lastCfg = config
	if n := f.failures[kind]; n != 0 {
		f.failures[kind]--
		if n > 0 {
			return "", &transientError{msg: "upstream returned 500"}
		}
		return "", errors.New("upstream returned 400")
	}
	return "ok", nil
}

func (f *fakeRunner) Retryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func newTestEngine(store ExecutionStore, runner ActionRunner) *Engine {
	return &Engine{store: store, runner: runner, defaultTimeoutSecond: 300, maxNodeRetry: 3}
}

func newExecution(t *testing.T, def *Definition, tctx map[string]interface{}) *client.WorkflowExecution {
	t.Helper()
	definition, err := def.Marshal()
	require.NoError(t, err)
	contextData, err := json.Marshal(tctx)
	require.NoError(t, err)
	return &client.WorkflowExecution{
		Id:          1,
		WorkflowId:  10,
		Status:      string(constvar.ExecutionStatusPending),
		TriggerType: string(constvar.TriggerIncidentCreated),
		Definition:  definition,
		Context:     dbutils.NullString(string(contextData)),
	}
}

func nodeResults(t *testing.T, execution *client.WorkflowExecution) []NodeResult {
	t.Helper()
	var results []NodeResult
	require.NoError(t, json.Unmarshal([]byte(execution.CompletedNodes.String), &results))
	return results
}

func TestExecuteCompletes(t *testing.T) {
	store := &fakeExecStore{execution: newExecution(t, linearDefinition(), nil)}
	runner := &fakeRunner{}
	e := newTestEngine(store, runner)

	require.NoError(t, e.Execute(context.Background(), 1))
	assert.Equal(t, string(constvar.ExecutionStatusCompleted), store.execution.Status)
	assert.Equal(t, []string{ActionWebhook}, runner.calls)

	results := nodeResults(t, store.execution)
	require.Len(t, results, 2)
	assert.Equal(t, constvar.NodeStatusCompleted, results[0].Status)
	assert.Equal(t, constvar.NodeStatusCompleted, results[1].Status)
	assert.True(t, store.execution.EndTime.Valid)
}

func TestExecuteSkipsUnclaimed(t *testing.T) {
	store := &fakeExecStore{execution: newExecution(t, linearDefinition(), nil), claimed: true}
	e := newTestEngine(store, &fakeRunner{})

	require.NoError(t, e.Execute(context.Background(), 1))
	assert.Equal(t, 0, store.updates)
}

func TestExecuteConditionBranching(t *testing.T) {
	tctx := map[string]interface{}{
		"incident": map[string]interface{}{"severity": "HIGH"},
	}
	store := &fakeExecStore{execution: newExecution(t, branchingDefinition(), tctx)}
	runner := &fakeRunner{}
	e := newTestEngine(store, runner)

	require.NoError(t, e.Execute(context.Background(), 1))
	assert.Equal(t, string(constvar.ExecutionStatusCompleted), store.execution.Status)

	results := nodeResults(t, store.execution)
	require.Len(t, results, 4)
	byNode := map[string]NodeResult{}
	for _, r := range results {
		byNode[r.NodeId] = r
	}
	assert.Equal(t, "false", byNode["check"].Result)
	assert.Equal(t, constvar.NodeStatusSkipped, byNode["page"].Status)
	assert.Equal(t, constvar.NodeStatusCompleted, byNode["log"].Status)
}

func TestExecuteStopsOnFirstFailure(t *testing.T) {
	def := &Definition{
		Nodes: []Node{
			{Id: "start", Type: NodeTrigger},
			{Id: "a", Type: NodeAction, Action: &ActionSpec{Kind: ActionJira, Retry: RetrySpec{Attempts: 1}}},
			{Id: "b", Type: NodeAction, Action: &ActionSpec{Kind: ActionWebhook}},
		},
		Edges: []Edge{
			{Source: "start", Target: "a"},
			{Source: "a", Target: "b"},
		},
		Settings: Settings{TimeoutSecond: 60},
	}
	store := &fakeExecStore{execution: newExecution(t, def, nil)}
	// Node a fails permanently, node b must never run.
	runner := &fakeRunner{failures: map[string]int{ActionJira: -1}}
	e := newTestEngine(store, runner)

	require.NoError(t, e.Execute(context.Background(), 1))
	assert.Equal(t, string(constvar.ExecutionStatusFailed), store.execution.Status)
	assert.Contains(t, store.execution.ErrorMessage.String, "node a")
	assert.NotContains(t, runner.calls, ActionWebhook)

	results := nodeResults(t, store.execution)
	require.Len(t, results, 2)
	assert.Equal(t, constvar.NodeStatusFailed, results[1].Status)
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	def := linearDefinition()
	def.Nodes[1].Action.Retry = RetrySpec{Attempts: 3, InitialDelaySecond: 0}
	store := &fakeExecStore{execution: newExecution(t, def, nil)}
	// One 500, then success.
	runner := &fakeRunner{failures: map[string]int{ActionWebhook: 1}}
	e := newTestEngine(store, runner)

	require.NoError(t, e.Execute(context.Background(), 1))
	assert.Equal(t, string(constvar.ExecutionStatusCompleted), store.execution.Status)
	assert.Len(t, runner.calls, 2)
}

func TestExecuteCancelsOnTimeout(t *testing.T) {
	execution := newExecution(t, linearDefinition(), nil)
	// Backdate the start so the 60s budget is already spent when the
	// engine picks the execution up.
	execution.StartTime = dbutils.NullTime(time.Now().UTC().Add(-2 * time.Minute))
	store := &fakeExecStore{execution: execution}
	e := newTestEngine(store, &fakeRunner{})

	require.NoError(t, e.Execute(context.Background(), 1))
	assert.Equal(t, string(constvar.ExecutionStatusCancelled), store.execution.Status)
	assert.Equal(t, "Workflow timeout exceeded", store.execution.ErrorMessage.String)
}

func TestExecuteRendersActionConfig(t *testing.T) {
	def := linearDefinition()
	def.Nodes[1].Action.Config = json.RawMessage(`{"url":"https://hooks.example.com","body":{"text":"{{incident.title}}"}}`)
	tctx := map[string]interface{}{
		"incident": map[string]interface{}{"title": "High CPU"},
	}
	store := &fakeExecStore{execution: newExecution(t, def, tctx)}
	runner := &fakeRunner{}
	e := newTestEngine(store, runner)

	require.NoError(t, e.Execute(context.Background(), 1))
	assert.Contains(t, string(runner.lastCfg), `"text":"High CPU"`)
}

func TestHandleJobMalformedPayload(t *testing.T) {
	e := newTestEngine(&fakeExecStore{}, &fakeRunner{})
	err := e.HandleJob(context.Background(), &queue.Job{
		Id: "workflow_execution:x", Type: "workflow_execution",
		Payload: []byte("not json"),
	})
	assert.Error(t, err)
}
