/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package json

import (
	"bytes"
	"encoding/json"

	"sigs.k8s.io/yaml"
)

// Unmarshal parses the JSON-encoded data and stores the result in the value pointed to by v.
func Unmarshal(data []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(data))
	if err := d.Decode(v); err != nil {
		return err
	}
	return nil
}

// MarshalSilently converts the given value to its JSON representation.
func MarshalSilently(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// ParseYamlToJson parses the input YAML document into a generic JSON object.
func ParseYamlToJson(data string) (map[string]interface{}, error) {
	jsonBytes, err := yaml.YAMLToJSON([]byte(data))
	if err != nil {
		return nil, err
	}
	var obj map[string]interface{}
	if err := Unmarshal(jsonBytes, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// ParseJsonToYaml renders the given JSON bytes as a YAML document.
func ParseJsonToYaml(data []byte) (string, error) {
	out, err := yaml.JSONToYAML(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
