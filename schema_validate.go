// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValidateJSON checks raw JSON data against a schema produced by
// [GenerateSchema]. It returns a list of human-readable problems, suitable
// for feeding back to the model; an empty list means the data conforms.
//
// The checks mirror what the generator emits: type, required, enum,
// properties, items, additionalProperties. Unknown object keys are allowed.
func ValidateJSON(schema, data json.RawMessage) []string {
	var s map[string]any
	if err := json.Unmarshal(schema, &s); err != nil {
		return []string{fmt.Sprintf("invalid schema: %v", err)}
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return []string{fmt.Sprintf("invalid JSON: %v", err)}
	}
	return validateValue(s, v, "$")
}

// ValidateValue checks an already-decoded JSON value against a schema.
func ValidateValue(schema json.RawMessage, v any) []string {
	var s map[string]any
	if err := json.Unmarshal(schema, &s); err != nil {
		return []string{fmt.Sprintf("invalid schema: %v", err)}
	}
	return validateValue(s, v, "$")
}

func validateValue(schema map[string]any, v any, path string) []string {
	var problems []string

	typ, _ := schema["type"].(string)
	switch typ {
	case "string":
		if _, ok := v.(string); !ok {
			return []string{fmt.Sprintf("%s: expected string, got %s", path, jsonTypeName(v))}
		}
	case "integer":
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return []string{fmt.Sprintf("%s: expected integer, got %s", path, jsonTypeName(v))}
		}
	case "number":
		if _, ok := v.(float64); !ok {
			return []string{fmt.Sprintf("%s: expected number, got %s", path, jsonTypeName(v))}
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return []string{fmt.Sprintf("%s: expected boolean, got %s", path, jsonTypeName(v))}
		}
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected array, got %s", path, jsonTypeName(v))}
		}
		if items, ok := schema["items"].(map[string]any); ok {
			for i, item := range arr {
				problems = append(problems, validateValue(items, item, fmt.Sprintf("%s[%d]", path, i))...)
			}
		}
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected object, got %s", path, jsonTypeName(v))}
		}
		props, _ := schema["properties"].(map[string]any)
		for name, propSchema := range props {
			ps, ok := propSchema.(map[string]any)
			if !ok {
				continue
			}
			if val, present := obj[name]; present {
				problems = append(problems, validateValue(ps, val, path+"."+name)...)
			}
		}
		if required, ok := schema["required"].([]any); ok {
			for _, r := range required {
				name, _ := r.(string)
				if _, present := obj[name]; !present {
					problems = append(problems, fmt.Sprintf("%s: missing required property %q", path, name))
				}
			}
		}
		if addl, ok := schema["additionalProperties"].(map[string]any); ok && props == nil {
			for name, val := range obj {
				problems = append(problems, validateValue(addl, val, path+"."+name)...)
			}
		}
	}

	if enum, ok := schema["enum"].([]any); ok {
		match := false
		for _, e := range enum {
			if e == v {
				match = true
				break
			}
		}
		if !match {
			problems = append(problems, fmt.Sprintf("%s: %v is not one of the allowed values", path, v))
		}
	}

	return problems
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
