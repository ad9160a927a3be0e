/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

func linearDefinition() *Definition {
	return &Definition{
		Nodes: []Node{
			{Id: "start", Type: NodeTrigger},
			{Id: "call", Type: NodeAction, Action: &ActionSpec{Kind: ActionWebhook}},
		},
		Edges:    []Edge{{Source: "start", Target: "call"}},
		Trigger:  TriggerConfig{Type: constvar.TriggerIncidentCreated},
		Settings: Settings{TimeoutSecond: 60, Enabled: true},
	}
}

func branchingDefinition() *Definition {
	return &Definition{
		Nodes: []Node{
			{Id: "start", Type: NodeTrigger},
			{Id: "check", Type: NodeCondition, Condition: &ConditionSpec{Field: "incident.severity", Value: "CRITICAL"}},
			{Id: "page", Type: NodeAction, Action: &ActionSpec{Kind: ActionWebhook}},
			{Id: "log", Type: NodeAction, Action: &ActionSpec{Kind: ActionWebhook}},
		},
		Edges: []Edge{
			{Source: "start", Target: "check"},
			{Source: "check", Target: "page", Branch: BranchTrue},
			{Source: "check", Target: "log", Branch: BranchFalse},
		},
		Trigger:  TriggerConfig{Type: constvar.TriggerIncidentCreated},
		Settings: Settings{TimeoutSecond: 60},
	}
}

func TestParseRoundTrip(t *testing.T) {
	def := branchingDefinition()
	data, err := def.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, parsed.Nodes, 4)
	assert.Equal(t, constvar.TriggerIncidentCreated, parsed.Trigger.Type)
	assert.Equal(t, "incident.severity", parsed.NodeById("check").Condition.Field)
}

func TestValidateAccepts(t *testing.T) {
	assert.NoError(t, Validate(linearDefinition()))
	assert.NoError(t, Validate(branchingDefinition()))
}

func TestValidateFindings(t *testing.T) {
	t.Run("duplicate node id", func(t *testing.T) {
		def := linearDefinition()
		def.Nodes = append(def.Nodes, Node{Id: "call", Type: NodeAction, Action: &ActionSpec{Kind: ActionWebhook}})
		err := Validate(def)
		require.Error(t, err)
		assert.Equal(t, commonerrors.SlugValidationFailed, commonerrors.SlugForError(err))
	})

	t.Run("no trigger node", func(t *testing.T) {
		def := linearDefinition()
		def.Nodes = def.Nodes[1:]
		assert.Error(t, Validate(def))
	})

	t.Run("dangling edge", func(t *testing.T) {
		def := linearDefinition()
		def.Edges = append(def.Edges, Edge{Source: "call", Target: "ghost"})
		assert.Error(t, Validate(def))
	})

	t.Run("condition missing branch", func(t *testing.T) {
		def := branchingDefinition()
		def.Edges = def.Edges[:2]
		assert.Error(t, Validate(def))
	})

	t.Run("branch label off a non-condition node", func(t *testing.T) {
		def := linearDefinition()
		def.Edges[0].Branch = BranchTrue
		assert.Error(t, Validate(def))
	})

	t.Run("cycle", func(t *testing.T) {
		def := linearDefinition()
		def.Edges = append(def.Edges, Edge{Source: "call", Target: "start"})
		assert.Error(t, Validate(def))
	})

	t.Run("unknown timeout", func(t *testing.T) {
		def := linearDefinition()
		def.Settings.TimeoutSecond = 120
		assert.Error(t, Validate(def))
	})
}

func TestOrderDeterministic(t *testing.T) {
	def := branchingDefinition()
	ordered, err := Order(def)
	require.NoError(t, err)

	ids := make([]string, 0, len(ordered))
	for _, n := range ordered {
		ids = append(ids, n.Id)
	}
	assert.Equal(t, []string{"start", "check", "page", "log"}, ids)
}

func TestOrderRejectsCycle(t *testing.T) {
	def := linearDefinition()
	def.Edges = append(def.Edges, Edge{Source: "call", Target: "start"})
	_, err := Order(def)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	context := map[string]interface{}{
		"incident": map[string]interface{}{
			"id":       float64(42),
			"title":    "High CPU",
			"severity": "CRITICAL",
		},
	}

	assert.Equal(t, "[CRITICAL] High CPU (#42)",
		Render("[{{incident.severity}}] {{incident.title}} (#{{incident.id}})", context))

	// Missing paths render as empty string.
	assert.Equal(t, "assignee: ", Render("assignee: {{assignee.userName}}", context))

	// Unterminated placeholders pass through untouched.
	assert.Equal(t, "{{incident.title", Render("{{incident.title", context))

	// Whitespace inside the braces is tolerated.
	assert.Equal(t, "High CPU", Render("{{ incident.title }}", context))
}

func TestGetNestedValue(t *testing.T) {
	context := map[string]interface{}{
		"a": map[string]interface{}{"b": map[string]interface{}{"c": "deep"}},
	}
	v, ok := GetNestedValue(context, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, "deep", v)

	_, ok = GetNestedValue(context, "a.b.c.d")
	assert.False(t, ok)
	_, ok = GetNestedValue(context, "")
	assert.False(t, ok)
}

func TestDefinitionTimeout(t *testing.T) {
	def := linearDefinition()
	assert.Equal(t, "1m0s", def.Timeout(300).String())

	def.Settings.TimeoutSecond = 0
	assert.Equal(t, "5m0s", def.Timeout(300).String())
}
