// Copyright (c) The agentloop authors. All rights reserved.

// Package funcmodel provides a [agentloop.ModelClient] controlled by a
// local Go function. It exists for unit tests and examples that need full
// control over the model's behavior without a network dependency.
//
//	client := funcmodel.New(func(ctx context.Context, msgs []agentloop.Message, info funcmodel.Info) (*agentloop.ModelResponse, error) {
//	    return funcmodel.TextResponse("4"), nil
//	})
package funcmodel

import (
	"context"
	"fmt"

	"github.com/agentloop/agentloop"
)

// Info describes the run configuration visible to the model function:
// the tool specs advertised for this call and the raw chat options.
type Info struct {
	Tools   []agentloop.ToolSpec
	Options *agentloop.ChatOptions
}

// Func produces a complete reply from the transcript.
type Func func(ctx context.Context, messages []agentloop.Message, info Info) (*agentloop.ModelResponse, error)

// StreamFunc produces a streamed reply by yielding chunks in order.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, messages []agentloop.Message, info Info, yield func(agentloop.ResponseChunk) error) error

// Client is a [agentloop.ModelClient] backed by local functions.
type Client struct {
	fn       Func
	streamFn StreamFunc
}

var _ agentloop.ModelClient = (*Client)(nil)

// New creates a Client from a non-streaming function. Streaming requests
// are served by replaying the complete reply as chunks.
func New(fn Func) *Client {
	return &Client{fn: fn}
}

// NewStreaming creates a Client with an explicit streaming function.
// The non-streaming function may be nil if only streaming is exercised.
func NewStreaming(fn Func, streamFn StreamFunc) *Client {
	return &Client{fn: fn, streamFn: streamFn}
}

// Response calls the backing function.
func (c *Client) Response(ctx context.Context, messages []agentloop.Message, opts *agentloop.ChatOptions) (*agentloop.ModelResponse, error) {
	if c.fn == nil {
		return nil, fmt.Errorf("%w: no response function configured", agentloop.ErrInvalidResponse)
	}
	return c.fn(ctx, messages, infoFromOptions(opts))
}

// StreamResponse serves the request from the streaming function, or by
// chunking the complete reply when only a response function is set.
func (c *Client) StreamResponse(ctx context.Context, messages []agentloop.Message, opts *agentloop.ChatOptions) (*agentloop.Stream[agentloop.ResponseChunk], error) {
	info := infoFromOptions(opts)

	if c.streamFn != nil {
		return agentloop.NewStream(ctx, func(ctx context.Context, ch chan<- agentloop.ResponseChunk) error {
			yield := func(chunk agentloop.ResponseChunk) error {
				select {
				case ch <- chunk:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return c.streamFn(ctx, messages, info, yield)
		}), nil
	}

	if c.fn == nil {
		return nil, fmt.Errorf("%w: no stream function configured", agentloop.ErrInvalidResponse)
	}

	resp, err := c.fn(ctx, messages, info)
	if err != nil {
		return nil, err
	}
	return agentloop.NewStream(ctx, func(ctx context.Context, ch chan<- agentloop.ResponseChunk) error {
		for _, chunk := range chunksFromResponse(resp) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}), nil
}

func infoFromOptions(opts *agentloop.ChatOptions) Info {
	info := Info{Options: opts}
	if opts != nil {
		info.Tools = opts.Tools
	}
	return info
}

// chunksFromResponse replays a complete reply as a chunk sequence: one
// chunk per content item, preserving order.
func chunksFromResponse(resp *agentloop.ModelResponse) []agentloop.ResponseChunk {
	var chunks []agentloop.ResponseChunk
	callIndex := 0
	for _, c := range resp.Message.Contents {
		switch v := c.(type) {
		case *agentloop.TextContent:
			chunks = append(chunks, agentloop.ResponseChunk{
				Role:      resp.Message.Role,
				TextDelta: v.Text,
			})
		case *agentloop.ToolCallContent:
			chunks = append(chunks, agentloop.ResponseChunk{
				Role: resp.Message.Role,
				ToolCallDeltas: []agentloop.ToolCallDelta{{
					Index:          callIndex,
					CallID:         v.CallID,
					Name:           v.Name,
					ArgumentsDelta: v.Arguments,
				}},
			})
			callIndex++
		}
	}
	chunks = append(chunks, agentloop.ResponseChunk{
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
		ResponseID:   resp.ResponseID,
		ModelID:      resp.ModelID,
	})
	return chunks
}

// TextResponse builds an assistant text reply.
func TextResponse(text string) *agentloop.ModelResponse {
	return &agentloop.ModelResponse{
		Message:      agentloop.NewAssistantMessage(text),
		FinishReason: agentloop.FinishReasonStop,
	}
}

// ToolCallResponse builds a reply requesting the given tool calls.
func ToolCallResponse(calls ...*agentloop.ToolCallContent) *agentloop.ModelResponse {
	contents := make(agentloop.Contents, 0, len(calls))
	for _, call := range calls {
		contents = append(contents, call)
	}
	return &agentloop.ModelResponse{
		Message:      agentloop.Message{Role: agentloop.RoleAssistant, Contents: contents},
		FinishReason: agentloop.FinishReasonToolCalls,
	}
}
