// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// ChatHandler is the function signature for a non-streaming model call.
// Provider clients expose it so middleware can wrap the request pipeline.
type ChatHandler func(ctx context.Context, messages []Message, opts *ChatOptions) (*ModelResponse, error)

// ChatMiddleware wraps a [ChatHandler] to add cross-cutting behavior around
// model calls (logging, caching, request rewriting).
type ChatMiddleware func(next ChatHandler) ChatHandler

// ChainChatMiddleware applies middleware in order (first in list = outermost wrapper).
func ChainChatMiddleware(handler ChatHandler, mws ...ChatMiddleware) ChatHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}

// ToolHandler is the function signature for invoking a tool.
type ToolHandler func(ctx context.Context, tool Tool, args json.RawMessage) (any, error)

// ToolMiddleware wraps a [ToolHandler] to add cross-cutting behavior around
// tool dispatch (logging, rate limiting, argument rewriting). Middleware
// should call next to continue the chain, or return early to short-circuit.
type ToolMiddleware func(next ToolHandler) ToolHandler

// chainToolMiddleware applies middleware in order (first in list = outermost wrapper).
func chainToolMiddleware(handler ToolHandler, mws ...ToolMiddleware) ToolHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}

// LoggingToolMiddleware returns a [ToolMiddleware] that logs tool
// invocations and their duration using slog.
func LoggingToolMiddleware(logger *slog.Logger) ToolMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ToolHandler) ToolHandler {
		return func(ctx context.Context, tool Tool, args json.RawMessage) (any, error) {
			start := time.Now()
			result, err := next(ctx, tool, args)
			if err != nil {
				logger.WarnContext(ctx, "tool invocation failed",
					"tool", tool.Name(),
					"duration", time.Since(start),
					"error", err,
				)
				return nil, err
			}
			logger.DebugContext(ctx, "tool invocation completed",
				"tool", tool.Name(),
				"duration", time.Since(start),
			)
			return result, nil
		}
	}
}
