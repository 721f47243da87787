// Copyright (c) The agentloop authors. All rights reserved.

// Package gemini provides a [agentloop.ModelClient] implementation for
// the Google Gemini API via the official genai SDK.
//
//	client, err := gemini.New(ctx, os.Getenv("GEMINI_API_KEY"),
//	    gemini.WithModel("gemini-2.0-flash"),
//	)
package gemini

import (
	"context"
	"iter"

	"google.golang.org/genai"

	"github.com/agentloop/agentloop"
)

const defaultModel = "gemini-2.0-flash"

// api is an unexported seam over the genai SDK; tests inject a mock.
type api interface {
	generateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	generateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// sdkAPI adapts the official SDK client to the api seam.
type sdkAPI struct {
	client *genai.Client
}

func (a *sdkAPI) generateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return a.client.Models.GenerateContent(ctx, model, contents, config)
}

func (a *sdkAPI) generateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return a.client.Models.GenerateContentStream(ctx, model, contents, config)
}

// clientConfig holds resolved configuration for the Gemini client.
type clientConfig struct {
	model string
}

// Option configures a Gemini [Client].
type Option func(*clientConfig)

// WithModel sets the default model for requests.
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// Client implements [agentloop.ModelClient] using the Gemini API.
type Client struct {
	api   api
	model string
}

// Verify interface compliance at compile time.
var _ agentloop.ModelClient = (*Client)(nil)

// New creates a Gemini [Client] authenticated with the given API key.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return NewFromSDK(sdk, opts...), nil
}

// NewFromSDK creates a Client from an already-configured SDK client. Use
// this for Vertex AI backends or custom SDK options.
func NewFromSDK(sdk *genai.Client, opts ...Option) *Client {
	c := newWithAPI(&sdkAPI{client: sdk}, opts...)
	return c
}

func newWithAPI(a api, opts ...Option) *Client {
	cfg := &clientConfig{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{api: a, model: cfg.model}
}

// Response sends a non-streaming generation request.
func (c *Client) Response(ctx context.Context, messages []agentloop.Message, opts *agentloop.ChatOptions) (*agentloop.ModelResponse, error) {
	model, contents, config := c.prepare(messages, opts)

	resp, err := c.api.generateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := fromResponse(resp, model)
	if err != nil {
		return nil, err
	}
	result.Raw = resp
	return result, nil
}

// StreamResponse sends a streaming generation request. Tool calls arrive
// whole per chunk; Gemini does not fragment call arguments the way the
// OpenAI API does.
func (c *Client) StreamResponse(ctx context.Context, messages []agentloop.Message, opts *agentloop.ChatOptions) (*agentloop.Stream[agentloop.ResponseChunk], error) {
	model, contents, config := c.prepare(messages, opts)

	stream := agentloop.NewStream(ctx, func(ctx context.Context, ch chan<- agentloop.ResponseChunk) error {
		callIndex := 0
		for resp, err := range c.api.generateContentStream(ctx, model, contents, config) {
			if err != nil {
				return mapError(err)
			}
			chunk, err := fromStreamResponse(resp, model, &callIndex)
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			select {
			case ch <- *chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return stream, nil
}

// prepare resolves the model and converts transcript and options into
// genai request types.
func (c *Client) prepare(messages []agentloop.Message, opts *agentloop.ChatOptions) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := c.model
	if opts != nil && opts.ModelID != "" {
		model = opts.ModelID
	}

	contents, system := toContents(messages)
	config := toConfig(opts)
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(system)},
		}
	}
	return model, contents, config
}
