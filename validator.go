// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RetryError signals that an answer (or a tool invocation) should be
// rejected and fed back to the model for another attempt. It carries the
// human-readable reasons the model needs to correct itself.
//
// Result validators return it to trigger a validation retry; tools may
// return it to have the failure folded into an error tool-result instead
// of a bare error string.
type RetryError struct {
	Reasons []string
}

func (e *RetryError) Error() string {
	return "retry: " + strings.Join(e.Reasons, "; ")
}

// Retry builds a [RetryError] from a format string.
func Retry(format string, args ...any) *RetryError {
	return &RetryError{Reasons: []string{fmt.Sprintf(format, args...)}}
}

// Validator checks the model's final textual answer against the caller's
// result shape. Validate must be a pure function of the attempt's text:
// return the decoded value on acceptance, or a [RetryError] describing
// what to fix on rejection. Any other error is treated as a rejection with
// a single reason.
type Validator[T any] interface {
	Validate(ctx context.Context, raw string) (T, error)
}

// ValidatorFunc adapts a plain function to the [Validator] interface.
type ValidatorFunc[T any] func(ctx context.Context, raw string) (T, error)

func (f ValidatorFunc[T]) Validate(ctx context.Context, raw string) (T, error) {
	return f(ctx, raw)
}

// Text returns a [Validator] that accepts any reply verbatim.
func Text() Validator[string] {
	return ValidatorFunc[string](func(_ context.Context, raw string) (string, error) {
		return raw, nil
	})
}

// TypeValidator validates replies against the JSON Schema generated for T
// and decodes accepted replies into T.
type TypeValidator[T any] struct {
	schema json.RawMessage
}

// ForType builds a [TypeValidator] for the result shape T.
// T may be a struct (with json/jsonschema tags), a scalar, a slice, or a
// string-keyed map.
func ForType[T any]() *TypeValidator[T] {
	return &TypeValidator[T]{schema: GenerateSchema[T]()}
}

// Schema returns the JSON Schema the validator checks against.
func (v *TypeValidator[T]) Schema() json.RawMessage { return v.schema }

// Validate parses raw as JSON, checks it against the schema, and decodes
// it into T. Models often wrap JSON in a markdown fence; the fence is
// stripped before parsing.
func (v *TypeValidator[T]) Validate(_ context.Context, raw string) (T, error) {
	var result T

	text := stripFence(raw)

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		// A bare string reply is valid input for a string-shaped result.
		var probe map[string]any
		_ = json.Unmarshal(v.schema, &probe)
		if typ, _ := probe["type"].(string); typ == "string" {
			value = text
		} else {
			return result, Retry("the response is not valid JSON: %v", err)
		}
	}

	if problems := ValidateValue(v.schema, value); len(problems) > 0 {
		return result, &RetryError{Reasons: problems}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &result,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return result, fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(value); err != nil {
		return result, Retry("the response does not fit the expected shape: %v", err)
	}
	return result, nil
}

// stripFence removes a surrounding markdown code fence, if present.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	trimmed := strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// retryReasons extracts feedback lines from a validation error.
func retryReasons(err error) []string {
	var re *RetryError
	if errors.As(err, &re) {
		return re.Reasons
	}
	return []string{err.Error()}
}
