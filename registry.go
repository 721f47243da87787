// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry maps tool names to capabilities. It is read-only from the run
// loop's perspective: register everything up front, then share the registry
// across any number of concurrent runs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty Registry and registers the given tools.
// It panics on a registration error, so it is only suitable for tool sets
// known at compile time; use [Registry.Register] to handle errors.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a tool to the registry. Name collisions are rejected here,
// at registration time, not at call time.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("%w: nil tool", ErrTool)
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("%w: empty tool name", ErrTool)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrToolRegistered, name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Specs returns the advertised tool specs in registration order.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return specs
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch executes one tool call and returns the tool-role [Message] to
// append to the transcript. Dispatch does not surface recoverable failures
// to its caller: an unknown tool, an argument schema mismatch, or the tool
// failing all produce an error-carrying result message so the model can
// self-correct. The returned error is non-nil only for failures the run
// must abort on: context cancellation, or a failing tool marked fatal.
func (r *Registry) Dispatch(ctx context.Context, call *ToolCallContent, mws ...ToolMiddleware) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	tool, ok := r.Lookup(call.Name)
	if !ok {
		slog.WarnContext(ctx, "unknown tool called", "tool", call.Name)
		return NewToolErrorMessage(call.CallID, call.Name,
			fmt.Sprintf("unknown tool %q", call.Name)), nil
	}

	args := json.RawMessage(call.Arguments)
	if len(strings.TrimSpace(call.Arguments)) == 0 {
		args = json.RawMessage("{}")
	}
	if problems := ValidateJSON(tool.Parameters(), args); len(problems) > 0 {
		slog.WarnContext(ctx, "tool arguments rejected",
			"tool", call.Name,
			"problems", len(problems),
		)
		return NewToolErrorMessage(call.CallID, call.Name,
			"invalid arguments: "+strings.Join(problems, "; ")), nil
	}

	handler := func(ctx context.Context, t Tool, a json.RawMessage) (any, error) {
		return t.Invoke(ctx, a)
	}
	result, err := chainToolMiddleware(handler, mws...)(ctx, tool, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Message{}, ctxErr
		}
		if tool.FatalOnError() {
			return Message{}, &ToolError{ToolName: call.Name, Message: err.Error(), Err: ErrToolExecution}
		}
		slog.WarnContext(ctx, "tool invocation error", "tool", call.Name, "error", err)
		return NewToolErrorMessage(call.CallID, call.Name, err.Error()), nil
	}

	return NewToolResultMessage(call.CallID, call.Name, result), nil
}

// DispatchAll executes every tool call from one model reply. Calls run
// concurrently, but the returned messages are ordered exactly as the model
// requested the calls — ordering is restored at the join point, not left
// to completion order.
func (r *Registry) DispatchAll(ctx context.Context, calls []*ToolCallContent, mws ...ToolMiddleware) ([]Message, error) {
	results := make([]Message, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			msg, err := r.Dispatch(gctx, call, mws...)
			if err != nil {
				return err
			}
			results[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
