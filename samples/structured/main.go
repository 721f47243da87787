// Copyright (c) The agentloop authors. All rights reserved.

// Command structured demonstrates a run that produces a schema-validated
// typed result, with a tool the model can call along the way.
//
// It works with OpenAI, Azure AI Foundry, and Google Gemini endpoints.
//
// Usage with OpenAI:
//
//	export OPENAI_API_KEY=sk-...
//	go run .
//
// Usage with Azure AI Foundry:
//
//	export AZURE_FOUNDRY_ENDPOINT=https://<project>.services.ai.azure.com/openai/deployments/<deployment>
//	export AZURE_FOUNDRY_KEY=<your-key>
//	export AZURE_FOUNDRY_MODEL=gpt-4o          # optional, defaults to gpt-4o
//	go run .
//
// Usage with Gemini:
//
//	export GEMINI_API_KEY=...
//	go run .
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/joho/godotenv"

	"github.com/agentloop/agentloop"
	"github.com/agentloop/agentloop/gemini"
	"github.com/agentloop/agentloop/openai"
)

// cityInfo is the result shape the model must produce.
type cityInfo struct {
	City       string `json:"city"       jsonschema:"description=City name,required"`
	Country    string `json:"country"    jsonschema:"description=Country the city is in,required"`
	Population int    `json:"population" jsonschema:"description=Approximate population,required"`
}

func main() {
	// Load .env file if present (ignored if missing).
	_ = godotenv.Load()

	// Enable debug logging if requested
	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	client := newModelClient()

	populationTool := agentloop.NewTypedTool("lookup_population",
		"Look up the population of a city.",
		func(ctx context.Context, args struct {
			City string `json:"city" jsonschema:"description=City name,required"`
		}) (any, error) {
			// Simulated data source
			known := map[string]int{
				"Tokyo":  37_400_000,
				"Delhi":  31_200_000,
				"London": 9_500_000,
			}
			if pop, ok := known[args.City]; ok {
				return pop, nil
			}
			return nil, agentloop.Retry("no data for %q, try the official city name", args.City)
		},
	)

	runner := agentloop.NewRunner(client, agentloop.ForType[cityInfo](),
		agentloop.WithSystemPrompt("You are a concise geography assistant. Use lookup_population for population figures. Reply with JSON only."),
		agentloop.WithTools(populationTool),
		agentloop.WithToolMiddleware(agentloop.LoggingToolMiddleware(slog.Default())),
	)

	result, err := runner.Run(context.Background(), "What is the largest city in Japan?")
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	fmt.Printf("City:       %s\n", result.Data.City)
	fmt.Printf("Country:    %s\n", result.Data.Country)
	fmt.Printf("Population: %d\n", result.Data.Population)
	fmt.Printf("\n[run %s: %d steps, %d retries, %d tokens]\n",
		result.RunID, result.Steps, result.Retries, result.Usage.TotalTokens)
}

// newModelClient creates a model client, choosing between Gemini, Azure AI
// Foundry, and direct OpenAI based on which environment variables are set.
func newModelClient() agentloop.ModelClient {
	// Google Gemini
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		fmt.Println("Using Gemini")
		client, err := gemini.New(context.Background(), key,
			gemini.WithModel("gemini-2.0-flash"),
		)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		return client
	}

	// Azure AI Foundry — uses the OpenAI-compatible endpoint.
	if endpoint := os.Getenv("AZURE_FOUNDRY_ENDPOINT"); endpoint != "" {
		key := os.Getenv("AZURE_FOUNDRY_KEY")
		model := os.Getenv("AZURE_FOUNDRY_MODEL")
		if model == "" {
			model = "gpt-4o"
		}

		fmt.Printf("Using Azure AI Foundry: %s\n", endpoint)

		// If no key provided, use Azure AD authentication
		if key == "" {
			fmt.Println("Using Azure AD authentication (DefaultAzureCredential)")
			cred, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				log.Fatalf("Failed to create Azure credential: %v", err)
			}
			return openai.New("", // empty key when using Azure AD
				openai.WithBaseURL(endpoint),
				openai.WithModel(model),
				openai.WithAzureCredential(cred),
			)
		}

		return openai.New(key,
			openai.WithBaseURL(endpoint),
			openai.WithModel(model),
			openai.WithHeaders(map[string]string{
				"api-key": key, // Azure uses api-key header instead of Bearer token
			}),
		)
	}

	// Direct OpenAI
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("Set OPENAI_API_KEY, AZURE_FOUNDRY_ENDPOINT, or GEMINI_API_KEY")
	}
	return openai.New(apiKey,
		openai.WithModel("gpt-4o"),
	)
}
