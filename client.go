// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"context"
	"strings"
)

// ModelClient is the gateway to an LLM backend. Provider packages
// (openai, gemini, funcmodel) implement this interface.
//
// Implementations must preserve message order on the wire and must
// distinguish tool-call replies from text replies unambiguously: a reply
// requesting tools carries [ToolCallContent] items, a final answer carries
// only [TextContent].
type ModelClient interface {
	// Response sends the full transcript to the model and returns a
	// complete reply.
	Response(ctx context.Context, messages []Message, opts *ChatOptions) (*ModelResponse, error)

	// StreamResponse sends the transcript and returns a stream of
	// incremental chunks.
	StreamResponse(ctx context.Context, messages []Message, opts *ChatOptions) (*Stream[ResponseChunk], error)
}

// ModelResponse is a complete (non-streaming) reply from a [ModelClient].
// The reply is consumed exactly once by the run loop and never stored
// beyond producing transcript messages.
type ModelResponse struct {
	Message      Message
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Usage        Usage
	Raw          any
}

// Text returns the concatenated text of the reply message.
func (r *ModelResponse) Text() string { return r.Message.Text() }

// ToolCalls returns the tool calls requested by the reply, in order.
func (r *ModelResponse) ToolCalls() []*ToolCallContent { return r.Message.ToolCalls() }

// ToolCallDelta is an incremental change to one tool call during streaming.
// Providers stream tool-call arguments in fragments; Index addresses the
// call being extended within the reply.
type ToolCallDelta struct {
	Index          int
	CallID         string
	Name           string
	ArgumentsDelta string
}

// ResponseChunk is a single chunk received while streaming from a [ModelClient].
type ResponseChunk struct {
	Role           Role
	TextDelta      string
	ToolCallDeltas []ToolCallDelta
	ResponseID     string
	ModelID        string
	FinishReason   FinishReason
	Usage          Usage
	Raw            any
}

// chunkAccumulator folds streamed chunks into a complete [ModelResponse].
// Text deltas concatenate; tool-call deltas merge by index so the final
// call list preserves the order the model requested.
type chunkAccumulator struct {
	role         Role
	text         strings.Builder
	calls        []*ToolCallContent
	responseID   string
	modelID      string
	finishReason FinishReason
	usage        Usage
}

func (a *chunkAccumulator) add(chunk ResponseChunk) {
	if chunk.Role != "" && a.role == "" {
		a.role = chunk.Role
	}
	a.text.WriteString(chunk.TextDelta)
	for _, d := range chunk.ToolCallDeltas {
		for len(a.calls) <= d.Index {
			a.calls = append(a.calls, &ToolCallContent{})
		}
		call := a.calls[d.Index]
		if d.CallID != "" {
			call.CallID = d.CallID
		}
		if d.Name != "" {
			call.Name = d.Name
		}
		call.Arguments += d.ArgumentsDelta
	}
	if chunk.ResponseID != "" {
		a.responseID = chunk.ResponseID
	}
	if chunk.ModelID != "" {
		a.modelID = chunk.ModelID
	}
	if chunk.FinishReason != "" {
		a.finishReason = chunk.FinishReason
	}
	a.usage.Add(chunk.Usage)
}

func (a *chunkAccumulator) response() *ModelResponse {
	role := a.role
	if role == "" {
		role = RoleAssistant
	}
	var contents Contents
	if a.text.Len() > 0 {
		contents = append(contents, &TextContent{Text: a.text.String()})
	}
	for _, call := range a.calls {
		contents = append(contents, call)
	}
	return &ModelResponse{
		Message:      Message{Role: role, Contents: contents},
		ResponseID:   a.responseID,
		ModelID:      a.modelID,
		FinishReason: a.finishReason,
		Usage:        a.usage,
	}
}

// ResponseFromChunks builds a complete [ModelResponse] by merging a
// sequence of streaming chunks.
func ResponseFromChunks(chunks []ResponseChunk) *ModelResponse {
	var acc chunkAccumulator
	for _, c := range chunks {
		acc.add(c)
	}
	return acc.response()
}
