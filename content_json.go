// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import (
	"encoding/json"
	"fmt"
)

// MarshalContentJSON marshals a single Content value into its JSON envelope,
// using a $type discriminator.
func MarshalContentJSON(c Content) ([]byte, error) {
	switch v := c.(type) {
	case *TextContent:
		return json.Marshal(struct {
			Type string `json:"$type"`
			Text string `json:"text"`
		}{string(ContentTypeText), v.Text})

	case *ToolCallContent:
		return json.Marshal(struct {
			Type      string `json:"$type"`
			CallID    string `json:"callId"`
			Name      string `json:"name"`
			Arguments string `json:"arguments,omitempty"`
		}{string(ContentTypeToolCall), v.CallID, v.Name, v.Arguments})

	case *ToolResultContent:
		return json.Marshal(struct {
			Type    string `json:"$type"`
			CallID  string `json:"callId"`
			Name    string `json:"name,omitempty"`
			Result  any    `json:"result,omitempty"`
			IsError bool   `json:"isError,omitempty"`
		}{string(ContentTypeToolResult), v.CallID, v.Name, v.Result, v.IsError})

	default:
		return nil, fmt.Errorf("unknown content type: %T", c)
	}
}

// UnmarshalContentJSON unmarshals a single Content value from its JSON envelope.
func UnmarshalContentJSON(data []byte) (Content, error) {
	var env struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal content envelope: %w", err)
	}

	switch ContentType(env.Type) {
	case ContentTypeText:
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return &TextContent{Text: v.Text}, nil

	case ContentTypeToolCall:
		var v struct {
			CallID    string `json:"callId"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return &ToolCallContent{CallID: v.CallID, Name: v.Name, Arguments: v.Arguments}, nil

	case ContentTypeToolResult:
		var v struct {
			CallID  string `json:"callId"`
			Name    string `json:"name"`
			Result  any    `json:"result"`
			IsError bool   `json:"isError"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return &ToolResultContent{CallID: v.CallID, Name: v.Name, Result: v.Result, IsError: v.IsError}, nil

	default:
		return nil, fmt.Errorf("unknown content type: %q", env.Type)
	}
}

// MarshalJSON implements json.Marshaler for Contents.
func (cs Contents) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(cs))
	for _, c := range cs {
		b, err := MarshalContentJSON(c)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return json.Marshal(items)
}

// UnmarshalJSON implements json.Unmarshaler for Contents.
func (cs *Contents) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Contents, 0, len(items))
	for _, item := range items {
		c, err := UnmarshalContentJSON(item)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}
