// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import "strings"

// Role identifies the author of a [Message].
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Message represents a single chat message exchanged with the model.
// Messages are immutable once appended to a run's transcript; the full
// ordered transcript is replayed verbatim on every model call.
type Message struct {
	Role     Role     `json:"role"`
	Contents Contents `json:"contents,omitempty"`

	// Extra holds provider-specific metadata not covered by standard fields.
	Extra map[string]any `json:"-"`

	// Raw holds the original provider-specific representation, if any.
	Raw any `json:"-"`
}

// Text returns the concatenated text of all [TextContent] items in this message.
func (m *Message) Text() string {
	var b strings.Builder
	for _, c := range m.Contents {
		if tc, ok := c.(*TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// ToolCalls returns all [ToolCallContent] items in this message, in order.
func (m *Message) ToolCalls() []*ToolCallContent {
	var calls []*ToolCallContent
	for _, c := range m.Contents {
		if tc, ok := c.(*ToolCallContent); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// NewUserMessage creates a user-role [Message] from a text string.
func NewUserMessage(text string) Message {
	return Message{
		Role:     RoleUser,
		Contents: Contents{&TextContent{Text: text}},
	}
}

// NewAssistantMessage creates an assistant-role [Message] from a text string.
func NewAssistantMessage(text string) Message {
	return Message{
		Role:     RoleAssistant,
		Contents: Contents{&TextContent{Text: text}},
	}
}

// NewSystemMessage creates a system-role [Message] from a text string.
func NewSystemMessage(text string) Message {
	return Message{
		Role:     RoleSystem,
		Contents: Contents{&TextContent{Text: text}},
	}
}

// NewToolResultMessage creates a tool-role [Message] carrying a tool's result.
func NewToolResultMessage(callID, name string, result any) Message {
	return Message{
		Role: RoleTool,
		Contents: Contents{&ToolResultContent{
			CallID: callID,
			Name:   name,
			Result: result,
		}},
	}
}

// NewToolErrorMessage creates a tool-role [Message] carrying an error payload,
// so the model can read the failure and self-correct.
func NewToolErrorMessage(callID, name, errText string) Message {
	return Message{
		Role: RoleTool,
		Contents: Contents{&ToolResultContent{
			CallID:  callID,
			Name:    name,
			Result:  errText,
			IsError: true,
		}},
	}
}

// PrependSystemPrompt inserts a system message at the beginning of the message
// list if the prompt is non-empty and no system message already exists.
func PrependSystemPrompt(messages []Message, prompt string) []Message {
	if prompt == "" {
		return messages
	}
	for _, m := range messages {
		if m.Role == RoleSystem {
			return messages
		}
	}
	return append([]Message{NewSystemMessage(prompt)}, messages...)
}
