// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxSteps bounds model round-trips per run, guarding against
	// runaway tool-call cycles. Distinct from validation retries.
	DefaultMaxSteps = 15

	// DefaultMaxRetries bounds validation retries per run.
	DefaultMaxRetries = 1

	// DefaultRetryPrompt is the corrective prompt template sent after a
	// rejected answer. The %s verb receives the validation errors.
	DefaultRetryPrompt = "Validation failed:\n%s\n\nFix the errors and try again."
)

// Runner drives a conversational exchange with a model until it produces
// an answer that validates as T, dispatching tool calls along the way.
//
// A Runner is safe for concurrent use: each call to [Runner.Run] or
// [Runner.RunStream] owns its own transcript and state, sharing only the
// read-only registry and the model client.
type Runner[T any] struct {
	client    ModelClient
	validator Validator[T]
	cfg       runConfig
}

// runConfig holds options resolved for one run.
type runConfig struct {
	registry    *Registry
	system      string
	maxRetries  int
	maxSteps    int
	deadline    time.Duration
	retryPrompt string
	history     []Message
	store       MessageStore
	chatOptions *ChatOptions
	toolMW      []ToolMiddleware
}

// Option configures a [Runner] at construction, or a single run when
// passed to Run/RunStream (per-run options override the runner's).
type Option func(*runConfig)

// WithRegistry provides the tool registry advertised to the model.
func WithRegistry(reg *Registry) Option {
	return func(c *runConfig) { c.registry = reg }
}

// WithTools registers tools into a fresh registry. Shorthand for
// [WithRegistry] when the tool set needs no reuse across runners.
func WithTools(tools ...Tool) Option {
	return func(c *runConfig) { c.registry = NewRegistry(tools...) }
}

// WithSystemPrompt sets the system prompt seeded at the head of the
// transcript.
func WithSystemPrompt(prompt string) Option {
	return func(c *runConfig) { c.system = prompt }
}

// WithMaxRetries bounds validation retries. Zero means a rejected answer
// fails the run immediately.
func WithMaxRetries(n int) Option {
	return func(c *runConfig) { c.maxRetries = n }
}

// WithMaxSteps bounds model round-trips per run.
func WithMaxSteps(n int) Option {
	return func(c *runConfig) { c.maxSteps = n }
}

// WithDeadline applies a timeout to each model call and each tool dispatch.
// A timeout is a fatal transport failure, not a retried one.
func WithDeadline(d time.Duration) Option {
	return func(c *runConfig) { c.deadline = d }
}

// WithRetryPrompt overrides the corrective prompt template. It must
// contain one %s verb, which receives the validation errors.
func WithRetryPrompt(template string) Option {
	return func(c *runConfig) { c.retryPrompt = template }
}

// WithHistory seeds the run with messages from prior turns.
func WithHistory(msgs []Message) Option {
	return func(c *runConfig) { c.history = msgs }
}

// WithStore loads the seed history from a [MessageStore] before the run
// and persists the run's new messages into it afterwards.
func WithStore(store MessageStore) Option {
	return func(c *runConfig) { c.store = store }
}

// WithChatOptions sets model request options (model ID, temperature, ...).
func WithChatOptions(opts *ChatOptions) Option {
	return func(c *runConfig) { c.chatOptions = opts }
}

// WithToolMiddleware wraps every tool dispatch with the given middleware.
func WithToolMiddleware(mws ...ToolMiddleware) Option {
	return func(c *runConfig) { c.toolMW = append(c.toolMW, mws...) }
}

// NewRunner creates a Runner for result shape T.
func NewRunner[T any](client ModelClient, validator Validator[T], opts ...Option) *Runner[T] {
	r := &Runner[T]{
		client:    client,
		validator: validator,
		cfg: runConfig{
			maxRetries:  DefaultMaxRetries,
			maxSteps:    DefaultMaxSteps,
			retryPrompt: DefaultRetryPrompt,
		},
	}
	for _, opt := range opts {
		opt(&r.cfg)
	}
	return r
}

// RunResult is the successful outcome of a run.
type RunResult[T any] struct {
	// RunID uniquely identifies this run.
	RunID string

	// Data is the validated result.
	Data T

	// Messages is the full transcript, including any seed history.
	Messages []Message

	// NewMessages is the portion of the transcript generated by this run.
	// Pass it (or Messages) as history to continue the conversation.
	NewMessages []Message

	// Usage totals token consumption across every model call in the run.
	Usage Usage

	// Steps is the number of model round-trips taken.
	Steps int

	// Retries is the number of validation retries consumed.
	Retries int
}

// Run executes the agent protocol to completion: it seeds the transcript,
// calls the model, dispatches requested tools, and validates the final
// answer, retrying on rejection up to the configured bound.
//
// Expected failure modes (validation exhaustion, step limit, gateway
// errors) are returned as a *[RunError]; inspect them with errors.Is
// against [ErrRetriesExhausted], [ErrStepLimit], and [ErrGateway].
func (r *Runner[T]) Run(ctx context.Context, prompt string, opts ...Option) (*RunResult[T], error) {
	cfg, err := r.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}

	state := newRunState(cfg, prompt)

	for state.steps < cfg.maxSteps {
		state.steps++

		resp, err := r.modelCall(ctx, cfg, state.history.Messages())
		if err != nil {
			return nil, state.fail(fmt.Errorf("%w: %w", ErrGateway, err))
		}
		state.usage.Add(resp.Usage)
		state.history.Append(resp.Message)

		calls := resp.ToolCalls()
		if len(calls) > 0 {
			// Tool cycle: does not consume a retry.
			if err := r.toolCycle(ctx, cfg, state, calls); err != nil {
				return nil, state.fail(err)
			}
			continue
		}

		data, done, err := r.validateAttempt(ctx, cfg, state, resp.Text())
		if err != nil {
			return nil, err
		}
		if done {
			return r.finish(ctx, cfg, state, data)
		}
	}

	return nil, state.fail(ErrStepLimit)
}

// resolve merges per-run options over the runner's configuration and loads
// the seed history from the store when one is set.
func (r *Runner[T]) resolve(ctx context.Context, opts []Option) (runConfig, error) {
	cfg := r.cfg
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store != nil {
		seed, err := cfg.store.ListMessages(ctx)
		if err != nil {
			return cfg, fmt.Errorf("load history: %w", err)
		}
		cfg.history = seed
	}
	return cfg, nil
}

// runState is owned exclusively by one in-flight run.
type runState struct {
	runID   string
	history *History
	retries int // remaining; monotonically non-increasing
	used    int
	steps   int
	usage   Usage
	lastErr []string // validation errors from the most recent rejection
}

func newRunState(cfg runConfig, prompt string) *runState {
	state := &runState{
		runID:   uuid.NewString(),
		history: NewHistory(PrependSystemPrompt(cfg.history, cfg.system)),
		retries: cfg.maxRetries,
	}
	state.history.Append(NewUserMessage(prompt))
	return state
}

// fail wraps a fatal error with the run's diagnostic context.
func (s *runState) fail(err error) error {
	var last *Message
	if msgs := s.history.NewMessages(); len(msgs) > 0 {
		last = &msgs[len(msgs)-1]
	}
	return &RunError{
		Steps:            s.steps,
		Retries:          s.used,
		ValidationErrors: s.lastErr,
		LastMessage:      last,
		Err:              err,
	}
}

func (r *Runner[T]) modelCall(ctx context.Context, cfg runConfig, msgs []Message) (*ModelResponse, error) {
	callCtx, cancel := r.callContext(ctx, cfg)
	defer cancel()

	chatOpts := cfg.chatOptions
	if cfg.registry != nil && cfg.registry.Len() > 0 {
		chatOpts = MergeChatOptions(chatOpts, &ChatOptions{Tools: cfg.registry.Specs()})
	}
	return r.client.Response(callCtx, msgs, chatOpts)
}

// toolCycle validates, executes, and folds back one reply's tool calls.
// Results are appended in the exact order the model requested the calls.
func (r *Runner[T]) toolCycle(ctx context.Context, cfg runConfig, state *runState, calls []*ToolCallContent) error {
	seen := make(map[string]bool, len(calls))
	for _, call := range calls {
		if seen[call.CallID] {
			return fmt.Errorf("%w: duplicate tool call id %q", ErrInvalidResponse, call.CallID)
		}
		seen[call.CallID] = true
	}

	if cfg.registry == nil {
		return fmt.Errorf("%w: model requested tools but no registry is configured", ErrInvalidResponse)
	}

	slog.DebugContext(ctx, "dispatching tool calls",
		"run_id", state.runID,
		"step", state.steps,
		"call_count", len(calls),
	)

	dispatchCtx, cancel := r.callContext(ctx, cfg)
	defer cancel()

	results, err := cfg.registry.DispatchAll(dispatchCtx, calls, cfg.toolMW...)
	if err != nil {
		return err
	}
	state.history.Append(results...)
	return nil
}

// validateAttempt checks a text reply against the result shape. On
// rejection it consumes a retry and appends the corrective prompt; when no
// retries remain it returns the terminal failure.
func (r *Runner[T]) validateAttempt(ctx context.Context, cfg runConfig, state *runState, text string) (data T, done bool, err error) {
	data, verr := r.validator.Validate(ctx, text)
	if verr == nil {
		return data, true, nil
	}

	state.lastErr = retryReasons(verr)
	slog.DebugContext(ctx, "result rejected",
		"run_id", state.runID,
		"step", state.steps,
		"retries_remaining", state.retries,
		"problems", len(state.lastErr),
	)

	if state.retries <= 0 {
		return data, false, state.fail(ErrRetriesExhausted)
	}
	state.retries--
	state.used++
	state.history.Append(NewUserMessage(
		fmt.Sprintf(cfg.retryPrompt, strings.Join(state.lastErr, "\n"))))
	return data, false, nil
}

func (r *Runner[T]) finish(ctx context.Context, cfg runConfig, state *runState, data T) (*RunResult[T], error) {
	if cfg.store != nil {
		if err := cfg.store.AddMessages(ctx, state.history.NewMessages()); err != nil {
			slog.WarnContext(ctx, "failed to persist history", "run_id", state.runID, "error", err)
		}
	}
	slog.DebugContext(ctx, "run completed",
		"run_id", state.runID,
		"steps", state.steps,
		"retries", state.used,
	)
	return &RunResult[T]{
		RunID:       state.runID,
		Data:        data,
		Messages:    state.history.Messages(),
		NewMessages: state.history.NewMessages(),
		Usage:       state.usage,
		Steps:       state.steps,
		Retries:     state.used,
	}, nil
}

func (r *Runner[T]) callContext(ctx context.Context, cfg runConfig) (context.Context, context.CancelFunc) {
	if cfg.deadline > 0 {
		return context.WithTimeout(ctx, cfg.deadline)
	}
	return context.WithCancel(ctx)
}
