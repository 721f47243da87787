// Copyright (c) The agentloop authors. All rights reserved.

package openai

import (
	"encoding/json"

	"github.com/agentloop/agentloop"
)

// chatRequest is the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model         string            `json:"model"`
	Messages      []chatMessage     `json:"messages"`
	Temperature   *float64          `json:"temperature,omitempty"`
	TopP          *float64          `json:"top_p,omitempty"`
	MaxTokens     *int              `json:"max_completion_tokens,omitempty"`
	Stop          []string          `json:"stop,omitempty"`
	Seed          *int              `json:"seed,omitempty"`
	Tools         []toolSpec        `json:"tools,omitempty"`
	ToolChoice    any               `json:"tool_choice,omitempty"`
	User          string            `json:"user,omitempty"`
	Stream        bool              `json:"stream,omitempty"`
	StreamOptions *streamOptions    `json:"stream_options,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// buildRequest converts transcript and options into an OpenAI API request.
func buildRequest(messages []agentloop.Message, opts *agentloop.ChatOptions, defaultModel string) *chatRequest {
	req := &chatRequest{
		Model: defaultModel,
	}
	if opts != nil {
		if opts.ModelID != "" {
			req.Model = opts.ModelID
		}
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.MaxTokens = opts.MaxTokens
		req.Stop = opts.Stop
		req.Seed = opts.Seed
		req.User = opts.User
		req.Metadata = opts.Metadata

		for _, t := range opts.Tools {
			req.Tools = append(req.Tools, toolSpec{
				Type: "function",
				Function: functionSpec{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}

		req.ToolChoice = convertToolChoice(opts.ToolChoice)
	}

	req.Messages = convertMessages(messages)
	return req
}

// requestBody returns the wire body for req, overlaying any provider-specific
// options from opts.Extra as raw top-level fields.
func requestBody(req *chatRequest, opts *agentloop.ChatOptions) any {
	if opts == nil || len(opts.Extra) == 0 {
		return req
	}
	b, err := json.Marshal(req)
	if err != nil {
		return req
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return req
	}
	for k, v := range opts.Extra {
		m[k] = v
	}
	return m
}

// convertMessages translates transcript messages into OpenAI chat messages.
func convertMessages(messages []agentloop.Message) []chatMessage {
	result := make([]chatMessage, 0, len(messages))

	for _, msg := range messages {
		cm := chatMessage{
			Role: string(msg.Role),
		}

		switch msg.Role {
		case agentloop.RoleTool:
			// Tool messages carry a single tool result.
			for _, c := range msg.Contents {
				if tr, ok := c.(*agentloop.ToolResultContent); ok {
					cm.ToolCallID = tr.CallID
					resultStr, _ := marshalResult(tr.Result)
					cm.Content = resultStr
				}
			}

		case agentloop.RoleAssistant:
			// Assistant messages may have text + tool calls.
			var textParts []string
			for _, c := range msg.Contents {
				switch v := c.(type) {
				case *agentloop.TextContent:
					textParts = append(textParts, v.Text)
				case *agentloop.ToolCallContent:
					cm.ToolCalls = append(cm.ToolCalls, toolCall{
						ID:   v.CallID,
						Type: "function",
						Function: functionCall{
							Name:      v.Name,
							Arguments: v.Arguments,
						},
					})
				}
			}
			if len(textParts) > 0 {
				cm.Content = concatStrings(textParts)
			}

		default:
			// User/system messages are plain text.
			if text := msg.Text(); text != "" {
				cm.Content = text
			}
		}

		result = append(result, cm)
	}

	return result
}

func convertToolChoice(tc agentloop.ToolChoice) any {
	if tc == "" {
		return nil
	}
	switch tc {
	case agentloop.ToolChoiceAuto:
		return "auto"
	case agentloop.ToolChoiceRequired:
		return "required"
	case agentloop.ToolChoiceNone:
		return "none"
	default:
		// Check for function: prefix
		s := string(tc)
		if len(s) > 9 && s[:9] == "function:" {
			return map[string]any{
				"type": "function",
				"function": map[string]string{
					"name": s[9:],
				},
			}
		}
		return string(tc)
	}
}

func marshalResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func concatStrings(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	result := ""
	for _, p := range parts {
		result += p
	}
	return result
}
