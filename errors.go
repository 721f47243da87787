// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrRun is the base error for run-level failures.
	ErrRun = errors.New("run error")

	// ErrGateway indicates a model transport failure. The run loop never
	// retries these; transport retry policy belongs to the client.
	ErrGateway = fmt.Errorf("%w: gateway", ErrRun)

	// ErrStepLimit indicates the run exceeded its model-invocation budget
	// without reaching a terminal result.
	ErrStepLimit = fmt.Errorf("%w: step limit exceeded", ErrRun)

	// ErrRetriesExhausted indicates the final answer kept failing result
	// validation until no retries remained.
	ErrRetriesExhausted = fmt.Errorf("%w: validation retries exhausted", ErrRun)

	// ErrTool is the base error for tool-related failures.
	ErrTool = errors.New("tool error")

	// ErrToolRegistered is returned when registering a tool under a name
	// that is already taken.
	ErrToolRegistered = fmt.Errorf("%w: name already registered", ErrTool)

	// ErrUnknownTool indicates the model requested a tool that is not in
	// the registry.
	ErrUnknownTool = fmt.Errorf("%w: unknown tool", ErrTool)

	// ErrInvalidArguments indicates tool arguments failed schema validation.
	ErrInvalidArguments = fmt.Errorf("%w: invalid arguments", ErrTool)

	// ErrToolExecution indicates a failure inside the tool itself.
	ErrToolExecution = fmt.Errorf("%w: execution", ErrTool)

	// ErrService is the base error for backend service failures.
	ErrService = errors.New("service error")

	// ErrContentFilter indicates the request was rejected by a content filter.
	ErrContentFilter = fmt.Errorf("%w: content filter", ErrService)

	// ErrInvalidResponse indicates the service returned an unexpected response.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", ErrService)

	// ErrAuth indicates an authentication or authorization failure.
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)

	// ErrInvalidRequest indicates the service rejected the request as
	// malformed.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)
)

// RunError is the typed terminal failure of a run. It carries enough
// context to diagnose the failure without re-running: the step count,
// the last reply, and the last batch of validation errors.
// Use errors.As to extract it, and errors.Is against the sentinels above
// to classify it.
type RunError struct {
	Steps            int
	Retries          int
	ValidationErrors []string
	LastMessage      *Message
	Err              error
}

func (e *RunError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v after %d step(s)", e.Err, e.Steps)
	if len(e.ValidationErrors) > 0 {
		fmt.Fprintf(&b, "; last validation errors: %s", strings.Join(e.ValidationErrors, "; "))
	}
	return b.String()
}

func (e *RunError) Unwrap() error { return e.Err }

// ToolError provides context for tool invocation failures.
type ToolError struct {
	ToolName string
	Message  string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q: %s", e.ToolName, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ServiceError provides rich context for backend service failures.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }
