// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

// ContentType identifies the kind of content within a message.
type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeToolCall   ContentType = "toolCall"
	ContentTypeToolResult ContentType = "toolResult"
)

// Content is a sealed interface representing a piece of content within a [Message].
// Each concrete type carries data specific to its [ContentType].
// Use a type switch to inspect the underlying type.
type Content interface {
	// Type returns the discriminator for this content item.
	Type() ContentType

	// sealed prevents external implementations.
	sealed()
}

// base is embedded by every concrete Content type to satisfy the sealed marker.
type base struct{}

func (base) sealed() {}

// Contents is an ordered list of content items.
type Contents []Content

// TextContent holds plain text.
type TextContent struct {
	base
	Text string
}

func (c *TextContent) Type() ContentType { return ContentTypeText }

// ToolCallContent represents a tool call requested by the model.
// CallID is unique within a run and pairs the call with its result.
type ToolCallContent struct {
	base
	CallID    string
	Name      string
	Arguments string // JSON-encoded arguments
}

func (c *ToolCallContent) Type() ContentType { return ContentTypeToolCall }

// ToolResultContent carries the outcome of a tool call back to the model.
// IsError marks results synthesized from a dispatch failure (unknown tool,
// argument mismatch, or the tool itself failing); the model is expected to
// read the payload and self-correct.
type ToolResultContent struct {
	base
	CallID  string
	Name    string
	Result  any
	IsError bool
}

func (c *ToolResultContent) Type() ContentType { return ContentTypeToolResult }
