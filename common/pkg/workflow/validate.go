/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

var validate = validator.New()

// Validate checks a definition structurally: field constraints, unique
// node ids, a single trigger node, edges referencing existing nodes,
// labeled condition branches, an acyclic graph and an allowed timeout.
// Violations come back as one validation-failed problem listing every
// finding.
func Validate(d *Definition) error {
	var findings []string

	if err := validate.Struct(d); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				findings = append(findings, fmt.Sprintf("%s: failed %s validation", ve.Namespace(), ve.Tag()))
			}
		} else {
			return commonerrors.NewBadRequest(err.Error())
		}
	}

	ids := make(map[string]bool, len(d.Nodes))
	triggers := 0
	for _, node := range d.Nodes {
		if ids[node.Id] {
			findings = append(findings, fmt.Sprintf("node id %q is duplicated", node.Id))
		}
		ids[node.Id] = true

		switch node.Type {
		case NodeTrigger:
			triggers++
		case NodeAction:
			if node.Action == nil {
				findings = append(findings, fmt.Sprintf("action node %q has no action spec", node.Id))
			}
		case NodeCondition:
			if node.Condition == nil {
				findings = append(findings, fmt.Sprintf("condition node %q has no condition spec", node.Id))
			}
		case NodeDelay:
			if node.Delay == nil {
				findings = append(findings, fmt.Sprintf("delay node %q has no delay spec", node.Id))
			}
		}
	}
	if triggers != 1 {
		findings = append(findings, fmt.Sprintf("definition must have exactly one trigger node, found %d", triggers))
	}

	for _, edge := range d.Edges {
		if !ids[edge.Source] {
			findings = append(findings, fmt.Sprintf("edge source %q does not exist", edge.Source))
		}
		if !ids[edge.Target] {
			findings = append(findings, fmt.Sprintf("edge target %q does not exist", edge.Target))
		}
	}

	findings = append(findings, validateConditionBranches(d)...)

	if d.Settings.TimeoutSecond != 0 && !allowedTimeouts[d.Settings.TimeoutSecond] {
		findings = append(findings, fmt.Sprintf("settings.timeoutSecond must be one of 60, 300, 900, got %d", d.Settings.TimeoutSecond))
	}

	if len(findings) == 0 {
		if _, err := Order(d); err != nil {
			findings = append(findings, err.Error())
		}
	}

	if len(findings) > 0 {
		return commonerrors.NewValidationFailed("workflow definition is invalid", findings)
	}
	return nil
}

// validateConditionBranches requires every condition node to have its two
// outgoing edges labeled true and false, and forbids branch labels
// anywhere else.
func validateConditionBranches(d *Definition) []string {
	var findings []string
	conditions := make(map[string]bool)
	for _, node := range d.Nodes {
		if node.Type == NodeCondition {
			conditions[node.Id] = true
		}
	}

	branches := make(map[string]map[string]bool)
	for _, edge := range d.Edges {
		if !conditions[edge.Source] {
			if edge.Branch != "" {
				findings = append(findings, fmt.Sprintf("edge %s->%s carries a branch label but %q is not a condition node", edge.Source, edge.Target, edge.Source))
			}
			continue
		}
		if edge.Branch == "" {
			findings = append(findings, fmt.Sprintf("edge %s->%s leaving a condition node needs a branch label", edge.Source, edge.Target))
			continue
		}
		if branches[edge.Source] == nil {
			branches[edge.Source] = make(map[string]bool)
		}
		if branches[edge.Source][edge.Branch] {
			findings = append(findings, fmt.Sprintf("condition node %q has multiple %q branches", edge.Source, edge.Branch))
		}
		branches[edge.Source][edge.Branch] = true
	}

	for id := range conditions {
		if !branches[id][BranchTrue] || !branches[id][BranchFalse] {
			findings = append(findings, fmt.Sprintf("condition node %q needs both a true and a false branch", id))
		}
	}
	return findings
}
