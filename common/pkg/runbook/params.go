/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package runbook type-checks runbook parameters against their declared
// schema and executes approved runbooks as outbound webhooks.
package runbook

import (
	"encoding/json"
	"fmt"

	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
)

// Parameter declares one runbook input. The schema is flat: no nesting,
// types limited to string, number and boolean.
type Parameter struct {
	Type        string        `json:"type" validate:"required,oneof=string number boolean"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Default     interface{}   `json:"default,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
}

// ParseSchema decodes a parameter_schema column value. Empty input means
// the runbook takes no parameters.
func ParseSchema(schema string) (map[string]Parameter, error) {
	if schema == "" {
		return map[string]Parameter{}, nil
	}
	var params map[string]Parameter
	if err := json.Unmarshal([]byte(schema), &params); err != nil {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("invalid parameter schema: %v", err))
	}
	return params, nil
}

// CheckParameters validates caller-supplied parameters against the
// schema: unknown names are rejected, missing required parameters (after
// defaulting) are rejected, and each value must match its declared type
// and enum. Returns the effective parameter set with defaults applied.
func CheckParameters(schema map[string]Parameter, supplied map[string]interface{}) (map[string]interface{}, error) {
	var findings []string
	effective := make(map[string]interface{}, len(schema))

	for name := range supplied {
		if _, ok := schema[name]; !ok {
			findings = append(findings, fmt.Sprintf("unknown parameter %q", name))
		}
	}

	for name, param := range schema {
		value, ok := supplied[name]
		if !ok {
			if param.Default != nil {
				effective[name] = param.Default
				continue
			}
			if param.Required {
				findings = append(findings, fmt.Sprintf("missing required parameter %q", name))
			}
			continue
		}
		if !typeMatches(param.Type, value) {
			findings = append(findings, fmt.Sprintf("parameter %q must be a %s", name, param.Type))
			continue
		}
		if len(param.Enum) > 0 && !enumContains(param.Enum, value) {
			findings = append(findings, fmt.Sprintf("parameter %q is not one of the allowed values", name))
			continue
		}
		effective[name] = value
	}

	if len(findings) > 0 {
		return nil, commonerrors.NewValidationFailed("runbook parameters are invalid", findings)
	}
	return effective, nil
}

func typeMatches(declared string, value interface{}) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}

func enumContains(enum []interface{}, value interface{}) bool {
	for _, allowed := range enum {
		if fmt.Sprint(allowed) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}
