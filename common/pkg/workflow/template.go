/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Render interpolates {{dotted.path}} placeholders against the context.
// Paths resolve through nested maps; a missing path renders as the empty
// string. There is no expression evaluation.
func Render(template string, context map[string]interface{}) string {
	var sb strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		end += start

		sb.WriteString(rest[:start])
		path := strings.TrimSpace(rest[start+2 : end])
		value, ok := GetNestedValue(context, path)
		if !ok {
			klog.V(4).InfoS("template path missing from context", "path", path)
		}
		sb.WriteString(stringify(value))
		rest = rest[end+2:]
	}
}

// GetNestedValue resolves a dot-separated path through nested maps.
func GetNestedValue(context map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current interface{} = context
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; integral values render without
		// a fraction.
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}
