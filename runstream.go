// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// EventKind discriminates [StreamEvent] values.
type EventKind string

const (
	// EventText carries an incremental text delta of the current attempt.
	// Partials are a best-effort progress signal, not a committed answer:
	// a later validation retry does not retract them.
	EventText EventKind = "text"

	// EventToolCall announces that the model started requesting a tool.
	EventToolCall EventKind = "tool_call"

	// EventRetry announces that the last attempt was rejected and a
	// corrective prompt was sent.
	EventRetry EventKind = "retry"

	// EventFinal is the authoritative terminal event: exactly one per
	// stream, carrying either the validated result or the run's failure.
	EventFinal EventKind = "final"
)

// StreamEvent is one event surfaced by [Runner.RunStream].
type StreamEvent[T any] struct {
	Kind EventKind

	// TextDelta is set for EventText.
	TextDelta string

	// ToolName is set for EventToolCall.
	ToolName string

	// Reasons is set for EventRetry: the validation errors fed back.
	Reasons []string

	// Result is set for a successful EventFinal.
	Result *RunResult[T]

	// Err is set for a failed EventFinal.
	Err error
}

// RunStream is the lazy event sequence produced by [Runner.RunStream].
// The sequence is finite and not restartable; a new call re-runs the whole
// protocol. Stopping early via Close promptly releases the underlying
// model stream.
type RunStream[T any] struct {
	stream *Stream[StreamEvent[T]]
}

// Next returns the next event. ok is false once the sequence is exhausted.
func (s *RunStream[T]) Next(ctx context.Context) (StreamEvent[T], bool, error) {
	return s.stream.Next(ctx)
}

// Final drains the stream and returns the terminal outcome.
func (s *RunStream[T]) Final(ctx context.Context) (*RunResult[T], error) {
	for {
		ev, ok, err := s.stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: stream ended without a final event", ErrInvalidResponse)
		}
		if ev.Kind == EventFinal {
			if ev.Err != nil {
				return nil, ev.Err
			}
			return ev.Result, nil
		}
	}
}

// Close stops consumption and releases the underlying model stream. Tool
// calls already dispatched complete, but their results are discarded.
// Safe to call multiple times.
func (s *RunStream[T]) Close() error { return s.stream.Close() }

// RunStream executes the same protocol as [Runner.Run] but surfaces
// incremental progress: text deltas as they arrive from the model, tool
// call announcements, retry notices, and a single final event.
//
// Protocol failures (validation exhaustion, step limit, gateway errors)
// are delivered in the final event's Err, mirroring Run's return value.
func (r *Runner[T]) RunStream(ctx context.Context, prompt string, opts ...Option) (*RunStream[T], error) {
	cfg, err := r.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}

	stream := NewStream(ctx, func(ctx context.Context, ch chan<- StreamEvent[T]) error {
		return r.streamRun(ctx, cfg, prompt, ch)
	})
	return &RunStream[T]{stream: stream}, nil
}

// streamRun is the streaming body of the run loop. It mirrors Run step for
// step; the only difference is that model replies arrive chunk by chunk
// and text is forwarded as it arrives while still being buffered for the
// validation step once the reply completes.
func (r *Runner[T]) streamRun(ctx context.Context, cfg runConfig, prompt string, ch chan<- StreamEvent[T]) error {
	state := newRunState(cfg, prompt)

	emit := func(ev StreamEvent[T]) error {
		select {
		case ch <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	final := func(result *RunResult[T], err error) error {
		return emit(StreamEvent[T]{Kind: EventFinal, Result: result, Err: err})
	}

	for state.steps < cfg.maxSteps {
		state.steps++

		resp, err := r.streamModelCall(ctx, cfg, state, emit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return final(nil, state.fail(fmt.Errorf("%w: %w", ErrGateway, err)))
		}
		state.usage.Add(resp.Usage)
		state.history.Append(resp.Message)

		calls := resp.ToolCalls()
		if len(calls) > 0 {
			if err := r.toolCycle(ctx, cfg, state, calls); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return final(nil, state.fail(err))
			}
			continue
		}

		data, verr := r.validator.Validate(ctx, resp.Text())
		if verr == nil {
			result, err := r.finish(ctx, cfg, state, data)
			if err != nil {
				return final(nil, err)
			}
			return final(result, nil)
		}

		state.lastErr = retryReasons(verr)
		if state.retries <= 0 {
			return final(nil, state.fail(ErrRetriesExhausted))
		}
		state.retries--
		state.used++
		state.history.Append(NewUserMessage(
			fmt.Sprintf(cfg.retryPrompt, strings.Join(state.lastErr, "\n"))))
		if err := emit(StreamEvent[T]{Kind: EventRetry, Reasons: state.lastErr}); err != nil {
			return err
		}
	}

	return final(nil, state.fail(ErrStepLimit))
}

// streamModelCall performs one streaming model invocation, forwarding text
// deltas and tool-call announcements while accumulating the complete reply.
func (r *Runner[T]) streamModelCall(ctx context.Context, cfg runConfig, state *runState, emit func(StreamEvent[T]) error) (*ModelResponse, error) {
	callCtx, cancel := r.callContext(ctx, cfg)
	defer cancel()

	chatOpts := cfg.chatOptions
	if cfg.registry != nil && cfg.registry.Len() > 0 {
		chatOpts = MergeChatOptions(chatOpts, &ChatOptions{Tools: cfg.registry.Specs()})
	}

	chunks, err := r.client.StreamResponse(callCtx, state.history.Messages(), chatOpts)
	if err != nil {
		return nil, err
	}
	defer chunks.Close()

	var acc chunkAccumulator
	for {
		chunk, ok, err := chunks.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		acc.add(chunk)

		if chunk.TextDelta != "" {
			if err := emit(StreamEvent[T]{Kind: EventText, TextDelta: chunk.TextDelta}); err != nil {
				return nil, err
			}
		}
		for _, d := range chunk.ToolCallDeltas {
			if d.Name != "" {
				if err := emit(StreamEvent[T]{Kind: EventToolCall, ToolName: d.Name}); err != nil {
					return nil, err
				}
			}
		}
	}

	slog.DebugContext(ctx, "model stream complete",
		"run_id", state.runID,
		"step", state.steps,
	)
	return acc.response(), nil
}
