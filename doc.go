// Copyright (c) The agentloop authors. All rights reserved.

// Package agentloop orchestrates conversational exchanges with an LLM
// backend to produce either free-form text or a schema-validated typed
// result, dispatching caller-supplied tools the model requests along the
// way.
//
// # Quick start
//
// Create a [ModelClient] (e.g. from the openai package), declare a result
// shape, and run:
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o"))
//
//	type Answer struct {
//	    City       string `json:"city"       jsonschema:"required"`
//	    Population int    `json:"population" jsonschema:"required"`
//	}
//
//	runner := agentloop.NewRunner(client, agentloop.ForType[Answer](),
//	    agentloop.WithSystemPrompt("You are a concise geography assistant."),
//	    agentloop.WithTools(lookupTool),
//	)
//
//	result, err := runner.Run(ctx, "What is the largest city in Japan?")
//	// result.Data is an Answer
//
// # Architecture
//
// The package is organized around these abstractions:
//
//   - [Runner]: the run loop. It replays the transcript to the model,
//     executes requested tool calls, validates the final answer against
//     the result shape, and retries with corrective feedback when
//     validation rejects it. Both bounds are configurable: [WithMaxSteps]
//     caps model round-trips, [WithMaxRetries] caps validation retries.
//   - [ModelClient]: the gateway interface implemented by provider
//     packages (openai, gemini) and by funcmodel for tests.
//   - [Registry]: named, schema-described tools. Dispatch folds every
//     recoverable failure (unknown tool, bad arguments, tool error) into
//     an error result the model can read and correct.
//   - [Validator]: the result shape. [ForType] generates a JSON Schema
//     from a Go type and decodes accepted replies into it; [Text] accepts
//     anything.
//   - [Runner.RunStream]: the streaming variant. It runs the identical
//     state machine but forwards partial text as it arrives; only the
//     final event is authoritative.
//
// # Tools
//
// Use [NewTypedTool] for type-safe tools with automatic schema generation:
//
//	add := agentloop.NewTypedTool("add", "Adds two integers.",
//	    func(ctx context.Context, args struct {
//	        A int `json:"a" jsonschema:"required"`
//	        B int `json:"b" jsonschema:"required"`
//	    }) (any, error) {
//	        return args.A + args.B, nil
//	    },
//	)
//
// # Failure surface
//
// Expected protocol failures come back as *[RunError] wrapping a
// sentinel: [ErrRetriesExhausted], [ErrStepLimit], or [ErrGateway].
// Tool-level problems never fail a run directly — they are fed back to
// the model — unless the tool opts in with [WithFatalOnError].
package agentloop
