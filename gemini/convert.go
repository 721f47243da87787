// Copyright (c) The agentloop authors. All rights reserved.

package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/agentloop/agentloop"
)

// toContents converts the transcript to Gemini Content format. System
// messages are extracted and returned separately; Gemini carries the
// system prompt in the request config, not the content list.
func toContents(messages []agentloop.Message) ([]*genai.Content, string) {
	contents := make([]*genai.Content, 0, len(messages))
	var system string

	for _, msg := range messages {
		if msg.Role == agentloop.RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += msg.Text()
			continue
		}
		if content := messageToContent(msg); content != nil {
			contents = append(contents, content)
		}
	}

	return contents, system
}

// messageToContent converts a single message to Gemini Content format.
func messageToContent(msg agentloop.Message) *genai.Content {
	role := "user"
	if msg.Role == agentloop.RoleAssistant {
		role = "model"
	}

	parts := make([]*genai.Part, 0, len(msg.Contents))
	for _, c := range msg.Contents {
		switch v := c.(type) {
		case *agentloop.TextContent:
			if v.Text != "" {
				parts = append(parts, genai.NewPartFromText(v.Text))
			}

		case *agentloop.ToolCallContent:
			var args map[string]any
			// Arguments may be empty for no-arg tools.
			if v.Arguments != "" {
				_ = json.Unmarshal([]byte(v.Arguments), &args)
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					Name: v.Name,
					Args: args,
				},
			})

		case *agentloop.ToolResultContent:
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     v.Name,
					Response: toolResultPayload(v),
				},
			})
		}
	}

	// Skip empty messages
	if len(parts) == 0 {
		return nil
	}

	return &genai.Content{
		Role:  role,
		Parts: parts,
	}
}

func toolResultPayload(result *agentloop.ToolResultContent) map[string]any {
	content := result.Result
	if result.IsError {
		return map[string]any{"error": fmt.Sprint(content)}
	}
	return map[string]any{"content": content}
}

// toConfig converts chat options to a Gemini generation config.
func toConfig(opts *agentloop.ChatOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if opts == nil {
		return config
	}

	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		config.Temperature = &t
	}
	if opts.TopP != nil {
		p := float32(*opts.TopP)
		config.TopP = &p
	}
	if opts.MaxTokens != nil {
		config.MaxOutputTokens = int32(*opts.MaxTokens)
	}
	if opts.Seed != nil {
		s := int32(*opts.Seed)
		config.Seed = &s
	}
	if len(opts.Stop) > 0 {
		config.StopSequences = opts.Stop
	}
	if len(opts.Tools) > 0 {
		config.Tools = toTools(opts.Tools)
	}

	return config
}

// toTools converts tool specs to Gemini tool declarations.
func toTools(specs []agentloop.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(specs))

	for _, spec := range specs {
		fd := &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
		}
		if len(spec.Parameters) > 0 {
			fd.Parameters = toSchema(spec.Parameters)
		}
		declarations = append(declarations, fd)
	}

	return []*genai.Tool{
		{FunctionDeclarations: declarations},
	}
}

// jsonSchema is the subset of JSON Schema the tool layer produces.
type jsonSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*jsonSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *jsonSchema            `json:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
}

// toSchema converts a raw JSON Schema document to a Gemini Schema.
func toSchema(raw json.RawMessage) *genai.Schema {
	var parsed jsonSchema
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	return schemaFromParsed(&parsed)
}

func schemaFromParsed(s *jsonSchema) *genai.Schema {
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = schemaFromParsed(prop)
		}
	}
	if len(s.Required) > 0 {
		out.Required = s.Required
	}
	if s.Items != nil {
		out.Items = schemaFromParsed(s.Items)
	}
	if len(s.Enum) > 0 {
		out.Enum = s.Enum
	}
	return out
}

// toType converts a JSON Schema type name to a Gemini Type.
func toType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// fromResponse converts a Gemini response to a ModelResponse. Gemini does
// not assign tool call IDs, so one is synthesized per call; the run loop
// requires distinct IDs to correlate results.
func fromResponse(resp *genai.GenerateContentResponse, model string) (*agentloop.ModelResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", agentloop.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]

	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &agentloop.ServiceError{
			Message: "content blocked by safety filters",
			Err:     agentloop.ErrContentFilter,
		}
	}

	out := &agentloop.ModelResponse{
		ModelID:      model,
		ResponseID:   resp.ResponseID,
		FinishReason: mapFinishReason(candidate.FinishReason),
		Usage:        fromUsage(resp.UsageMetadata),
		Message:      agentloop.Message{Role: agentloop.RoleAssistant},
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.Message.Contents = append(out.Message.Contents, &agentloop.TextContent{Text: part.Text})
			}
			if part.FunctionCall != nil {
				out.Message.Contents = append(out.Message.Contents, toolCallContent(part.FunctionCall))
			}
		}
	}

	return out, nil
}

// fromStreamResponse converts one streamed response to a chunk. callIndex
// numbers synthesized tool calls across the whole stream.
func fromStreamResponse(resp *genai.GenerateContentResponse, model string, callIndex *int) (*agentloop.ResponseChunk, error) {
	chunk := &agentloop.ResponseChunk{
		ModelID:    model,
		ResponseID: resp.ResponseID,
		Role:       agentloop.RoleAssistant,
		Usage:      fromUsage(resp.UsageMetadata),
	}

	if len(resp.Candidates) == 0 {
		if chunk.Usage == (agentloop.Usage{}) {
			return nil, nil
		}
		return chunk, nil
	}

	candidate := resp.Candidates[0]

	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &agentloop.ServiceError{
			Message: "content blocked by safety filters",
			Err:     agentloop.ErrContentFilter,
		}
	}
	chunk.FinishReason = mapFinishReason(candidate.FinishReason)

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				chunk.TextDelta += part.Text
			}
			if part.FunctionCall != nil {
				call := toolCallContent(part.FunctionCall)
				chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, agentloop.ToolCallDelta{
					Index:          *callIndex,
					CallID:         call.CallID,
					Name:           call.Name,
					ArgumentsDelta: call.Arguments,
				})
				*callIndex++
			}
		}
	}

	return chunk, nil
}

func toolCallContent(call *genai.FunctionCall) *agentloop.ToolCallContent {
	args := "{}"
	if len(call.Args) > 0 {
		if b, err := json.Marshal(call.Args); err == nil {
			args = string(b)
		}
	}
	id := call.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &agentloop.ToolCallContent{
		CallID:    id,
		Name:      call.Name,
		Arguments: args,
	}
}

func fromUsage(usage *genai.GenerateContentResponseUsageMetadata) agentloop.Usage {
	if usage == nil {
		return agentloop.Usage{}
	}
	return agentloop.Usage{
		InputTokens:  int(usage.PromptTokenCount),
		OutputTokens: int(usage.CandidatesTokenCount),
		TotalTokens:  int(usage.TotalTokenCount),
	}
}

func mapFinishReason(reason genai.FinishReason) agentloop.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return agentloop.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return agentloop.FinishReasonLength
	case genai.FinishReasonSafety:
		return agentloop.FinishReasonContentFilter
	default:
		return agentloop.FinishReason(reason)
	}
}

// mapError maps genai SDK errors to the service error taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(genai.APIError); ok {
		return mapAPIError(&apiErr)
	}
	if apiErr, ok := err.(*genai.APIError); ok {
		return mapAPIError(apiErr)
	}

	return err
}

func mapAPIError(apiErr *genai.APIError) error {
	svcErr := &agentloop.ServiceError{
		StatusCode: apiErr.Code,
		Message:    apiErr.Message,
		Code:       apiErr.Status,
	}
	switch apiErr.Code {
	case 401, 403:
		svcErr.Err = agentloop.ErrAuth
	case 400:
		svcErr.Err = agentloop.ErrInvalidRequest
	default:
		svcErr.Err = agentloop.ErrService
	}
	return svcErr
}
