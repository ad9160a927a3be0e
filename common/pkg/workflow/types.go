/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package workflow holds the workflow definition model, its validation,
// the DAG execution engine and the trigger dispatcher.
package workflow

import (
	"encoding/json"
	"time"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
)

// Node types of a workflow definition.
const (
	NodeTrigger   = "trigger"
	NodeAction    = "action"
	NodeCondition = "condition"
	NodeDelay     = "delay"
)

// Action kinds an action node may carry.
const (
	ActionWebhook = "webhook"
	ActionJira    = "jira"
	ActionLinear  = "linear"
	ActionRunbook = "runbook"
)

// Branch labels on the outgoing edges of a condition node.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// Workflow timeouts selectable in settings, in seconds.
var allowedTimeouts = map[int]bool{60: true, 300: true, 900: true}

// Definition is the versioned value object stored on the workflow row
// and snapshotted into every execution.
type Definition struct {
	Nodes    []Node        `json:"nodes" validate:"required,min=1,dive"`
	Edges    []Edge        `json:"edges" validate:"dive"`
	Trigger  TriggerConfig `json:"trigger"`
	Settings Settings      `json:"settings"`
}

// Node is one step of the DAG. Exactly one of the kind-specific specs is
// set, matching Type.
type Node struct {
	Id        string         `json:"id" validate:"required,max=128"`
	Type      string         `json:"type" validate:"required,oneof=trigger action condition delay"`
	Name      string         `json:"name,omitempty" validate:"max=256"`
	Action    *ActionSpec    `json:"action,omitempty"`
	Condition *ConditionSpec `json:"condition,omitempty"`
	Delay     *DelaySpec     `json:"delay,omitempty"`
}

// ActionSpec configures an action node. Config is passed opaque to the
// executor for the given kind, after template interpolation.
type ActionSpec struct {
	Kind   string          `json:"kind" validate:"required,oneof=webhook jira linear runbook"`
	Config json.RawMessage `json:"config,omitempty"`
	Retry  RetrySpec       `json:"retry"`
}

// RetrySpec bounds the per-node retry loop. Zero values fall back to the
// configured defaults.
type RetrySpec struct {
	Attempts           int `json:"attempts,omitempty" validate:"min=0,max=10"`
	InitialDelaySecond int `json:"initialDelaySecond,omitempty" validate:"min=0,max=300"`
}

// ConditionSpec compares one context field against a literal for
// equality.
type ConditionSpec struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// DelaySpec pauses the execution. The wait is truncated to the remaining
// workflow time minus a safety margin.
type DelaySpec struct {
	DurationMinutes int `json:"durationMinutes" validate:"min=1,max=60"`
}

// Edge connects two nodes. Branch is set only on edges leaving a
// condition node.
type Edge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Branch string `json:"branch,omitempty" validate:"omitempty,oneof=true false"`
}

// TriggerConfig decides which incidents start the workflow. Conditions
// are field equality checks ANDed together.
type TriggerConfig struct {
	Type       constvar.TriggerType `json:"type" validate:"required,oneof=incident_created state_changed escalation manual age"`
	Conditions map[string]string    `json:"conditions,omitempty"`
	FromStatus string               `json:"fromStatus,omitempty"`
	ToStatus   string               `json:"toStatus,omitempty"`
	AgeMinutes int                  `json:"ageMinutes,omitempty" validate:"min=0"`
}

// Settings carries the per-workflow execution limits.
type Settings struct {
	TimeoutSecond int  `json:"timeoutSecond"`
	Enabled       bool `json:"enabled"`
}

// NodeResult is one entry of the append-only completed-nodes array on a
// workflow execution.
type NodeResult struct {
	NodeId      string              `json:"nodeId"`
	Status      constvar.NodeStatus `json:"status"`
	Result      string              `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"startedAt"`
	CompletedAt time.Time           `json:"completedAt"`
}

// Parse decodes a serialized definition.
func Parse(definition string) (*Definition, error) {
	var d Definition
	if err := json.Unmarshal([]byte(definition), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Marshal serializes the definition for storage.
func (d *Definition) Marshal() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Timeout returns the workflow deadline, defaulting when the setting is
// absent.
func (d *Definition) Timeout(defaultSecond int) time.Duration {
	if allowedTimeouts[d.Settings.TimeoutSecond] {
		return time.Duration(d.Settings.TimeoutSecond) * time.Second
	}
	return time.Duration(defaultSecond) * time.Second
}

// TriggerNode returns the definition's start marker.
func (d *Definition) TriggerNode() *Node {
	for i := range d.Nodes {
		if d.Nodes[i].Type == NodeTrigger {
			return &d.Nodes[i]
		}
	}
	return nil
}

// NodeById looks a node up by id.
func (d *Definition) NodeById(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].Id == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// OutgoingEdges lists the edges leaving a node.
func (d *Definition) OutgoingEdges(nodeId string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Source == nodeId {
			out = append(out, e)
		}
	}
	return out
}
