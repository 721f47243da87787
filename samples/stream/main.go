// Copyright (c) The agentloop authors. All rights reserved.

// Command stream demonstrates the streaming variant of the run loop:
// text deltas are printed as they arrive, tool calls and validation
// retries are reported as events, and the final validated result is
// read from the terminal event.
//
// Usage:
//
//	export OPENAI_API_KEY=sk-...
//	go run .
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/agentloop/agentloop"
	"github.com/agentloop/agentloop/openai"
)

func main() {
	_ = godotenv.Load()

	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("Set OPENAI_API_KEY")
	}
	client := openai.New(apiKey, openai.WithModel("gpt-4o"))

	timeTool := agentloop.NewTool("get_time",
		"Get the current time for a timezone.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"timezone": {
					"type": "string",
					"description": "IANA timezone name, e.g. Europe/Amsterdam"
				}
			},
			"required": ["timezone"]
		}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			return "2026-08-23T14:00:00+02:00", nil
		},
	)

	runner := agentloop.NewRunner(client, agentloop.Text(),
		agentloop.WithSystemPrompt("You are a helpful assistant. Use get_time when asked about the time."),
		agentloop.WithTools(timeTool),
	)

	ctx := context.Background()
	run, err := runner.RunStream(ctx,
		"What time is it in Amsterdam right now? Answer in one sentence.")
	if err != nil {
		log.Fatalf("stream failed to start: %v", err)
	}
	defer run.Close()

	var result *agentloop.RunResult[string]
	for {
		event, ok, err := run.Next(ctx)
		if err != nil {
			log.Fatalf("stream failed: %v", err)
		}
		if !ok {
			break
		}
		switch event.Kind {
		case agentloop.EventText:
			fmt.Print(event.TextDelta)
		case agentloop.EventToolCall:
			fmt.Printf("\n[calling %s]\n", event.ToolName)
		case agentloop.EventRetry:
			fmt.Printf("\n[retrying: %v]\n", event.Reasons)
		case agentloop.EventFinal:
			if event.Err != nil {
				log.Fatalf("run failed: %v", event.Err)
			}
			result = event.Result
		}
	}

	fmt.Printf("\n\n[run %s: %d steps, %d tokens]\n",
		result.RunID, result.Steps, result.Usage.TotalTokens)
}
