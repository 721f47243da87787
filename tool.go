// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"context"
	"encoding/json"
)

// ToolSpec describes a tool to the model: its name, what it does, and the
// JSON Schema of its arguments. Specs are advertised to the [ModelClient]
// on every call, in registration order.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Tool defines a callable capability the model may request mid-run.
type Tool interface {
	// Name returns the tool name as exposed to the model.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// Parameters returns the JSON Schema describing the tool's input.
	Parameters() json.RawMessage

	// Invoke calls the tool with the given JSON arguments. Invoke must be
	// safe to call concurrently with other tools from the same reply.
	Invoke(ctx context.Context, args json.RawMessage) (any, error)

	// FatalOnError reports whether a failure of this tool aborts the run
	// instead of being fed back to the model as an error result.
	FatalOnError() bool
}

// FunctionTool is a concrete [Tool] backed by a Go function.
type FunctionTool struct {
	name         string
	description  string
	parameters   json.RawMessage
	fn           func(ctx context.Context, args json.RawMessage) (any, error)
	fatalOnError bool
}

// ToolOption configures a [FunctionTool].
type ToolOption func(*FunctionTool)

// WithFatalOnError marks the tool's failures as fatal to the run rather
// than recoverable by the model.
func WithFatalOnError() ToolOption {
	return func(t *FunctionTool) { t.fatalOnError = true }
}

// NewTool creates a [FunctionTool] with a raw JSON schema and handler.
func NewTool(name, description string, parameters json.RawMessage, fn func(ctx context.Context, args json.RawMessage) (any, error), opts ...ToolOption) *FunctionTool {
	t := &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTypedTool creates a [FunctionTool] that automatically generates JSON
// Schema from the Args type parameter and handles JSON deserialization.
//
// The Args type should be a struct with json tags. Use the `jsonschema`
// struct tag for additional schema metadata:
//
//	type WeatherArgs struct {
//	    Location string `json:"location" jsonschema:"description=City name,required"`
//	    Unit     string `json:"unit"     jsonschema:"description=Temperature unit,enum=celsius|fahrenheit"`
//	}
func NewTypedTool[Args any](name, description string, fn func(ctx context.Context, args Args) (any, error), opts ...ToolOption) *FunctionTool {
	schema := GenerateSchema[Args]()

	wrapped := func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args Args
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, &ToolError{
				ToolName: name,
				Message:  "invalid arguments: " + err.Error(),
				Err:      ErrInvalidArguments,
			}
		}
		return fn(ctx, args)
	}

	return NewTool(name, description, schema, wrapped, opts...)
}

func (t *FunctionTool) Name() string                { return t.name }
func (t *FunctionTool) Description() string         { return t.description }
func (t *FunctionTool) Parameters() json.RawMessage { return t.parameters }
func (t *FunctionTool) FatalOnError() bool          { return t.fatalOnError }

// Spec returns the [ToolSpec] advertised for this tool.
func (t *FunctionTool) Spec() ToolSpec {
	return ToolSpec{Name: t.name, Description: t.description, Parameters: t.parameters}
}

// Invoke calls the tool's backing function.
func (t *FunctionTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	if t.fn == nil {
		return nil, &ToolError{
			ToolName: t.name,
			Message:  "tool has no handler",
			Err:      ErrToolExecution,
		}
	}
	return t.fn(ctx, args)
}
