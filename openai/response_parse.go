// Copyright (c) The agentloop authors. All rights reserved.

package openai

import (
	"encoding/json"

	"github.com/agentloop/agentloop"
)

// chatCompletionResponse is the OpenAI Chat Completions API response.
type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Index        int         `json:"index"`
	Message      respMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type respMessage struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletionChunk is a single SSE chunk in streaming mode.
type chatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *usage        `json:"usage,omitempty"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []chunkToolCall `json:"tool_calls,omitempty"`
}

// chunkToolCall is a tool-call fragment in streaming mode. The ID and name
// appear on the first fragment for an index; later fragments carry only
// argument text.
type chunkToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function functionCall `json:"function"`
}

// parseChatResponse converts the OpenAI response into a ModelResponse.
func parseChatResponse(raw *chatCompletionResponse) *agentloop.ModelResponse {
	resp := &agentloop.ModelResponse{
		ResponseID: raw.ID,
		ModelID:    raw.Model,
	}

	if raw.Usage != nil {
		resp.Usage = agentloop.Usage{
			InputTokens:  raw.Usage.PromptTokens,
			OutputTokens: raw.Usage.CompletionTokens,
			TotalTokens:  raw.Usage.TotalTokens,
		}
	}

	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		resp.FinishReason = mapFinishReason(c.FinishReason)

		msg := agentloop.Message{
			Role: agentloop.Role(c.Message.Role),
		}

		if c.Message.Content != nil && *c.Message.Content != "" {
			msg.Contents = append(msg.Contents, &agentloop.TextContent{Text: *c.Message.Content})
		}

		for _, tc := range c.Message.ToolCalls {
			msg.Contents = append(msg.Contents, &agentloop.ToolCallContent{
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		resp.Message = msg
	}

	return resp
}

// parseChunk converts a streaming chunk into a ResponseChunk.
func parseChunk(chunk *chatCompletionChunk) *agentloop.ResponseChunk {
	out := &agentloop.ResponseChunk{
		ResponseID: chunk.ID,
		ModelID:    chunk.Model,
	}

	if chunk.Usage != nil {
		out.Usage = agentloop.Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
			TotalTokens:  chunk.Usage.TotalTokens,
		}
	}

	if len(chunk.Choices) > 0 {
		c := chunk.Choices[0]

		if c.Delta.Role != "" {
			out.Role = agentloop.Role(c.Delta.Role)
		}

		if c.FinishReason != nil {
			out.FinishReason = mapFinishReason(*c.FinishReason)
		}

		if c.Delta.Content != nil {
			out.TextDelta = *c.Delta.Content
		}

		for _, tc := range c.Delta.ToolCalls {
			out.ToolCallDeltas = append(out.ToolCallDeltas, agentloop.ToolCallDelta{
				Index:          tc.Index,
				CallID:         tc.ID,
				Name:           tc.Function.Name,
				ArgumentsDelta: tc.Function.Arguments,
			})
		}
	}

	return out
}

// unmarshalChatResponse parses the JSON response body.
func unmarshalChatResponse(data []byte) (*chatCompletionResponse, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func mapFinishReason(s string) agentloop.FinishReason {
	switch s {
	case "stop":
		return agentloop.FinishReasonStop
	case "length":
		return agentloop.FinishReasonLength
	case "tool_calls":
		return agentloop.FinishReasonToolCalls
	case "content_filter":
		return agentloop.FinishReasonContentFilter
	default:
		return agentloop.FinishReason(s)
	}
}
