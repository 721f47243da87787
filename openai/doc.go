// Copyright (c) The agentloop authors. All rights reserved.

// Package openai provides a [agentloop.ModelClient] implementation for
// the OpenAI Chat Completions API.
//
// Create a client and pass it to [agentloop.NewRunner]:
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//
//	runner := agentloop.NewRunner(client, agentloop.Text())
//
// The client supports both synchronous and streaming responses,
// tool/function calling, and all standard ChatOptions.
//
// # Configuration
//
// Use functional options to configure the client:
//
//   - [WithModel]: set the default model
//   - [WithBaseURL]: override the API endpoint (e.g., Azure OpenAI)
//   - [WithAzureCredential]: authenticate with Azure AD instead of an API key
//   - [WithOrganization]: set the OpenAI organization header
//   - [WithHTTPClient]: provide a custom http.Client
//   - [WithHeaders]: add custom headers to every request
//
// # Testing
//
// The client uses an unexported transport interface internally.
// For testing, provide a mock http.Client via [WithHTTPClient]
// with a custom RoundTripper.
package openai
