// Copyright (c) The agentloop authors. All rights reserved.

package gemini

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/agentloop/agentloop"
)

// mockAPI records requests and replays canned responses.
type mockAPI struct {
	lastModel    string
	lastContents []*genai.Content
	lastConfig   *genai.GenerateContentConfig

	response  *genai.GenerateContentResponse
	responses []*genai.GenerateContentResponse
	err       error
}

func (m *mockAPI) generateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.lastModel = model
	m.lastContents = contents
	m.lastConfig = config
	return m.response, m.err
}

func (m *mockAPI) generateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	m.lastModel = model
	m.lastContents = contents
	m.lastConfig = config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		if m.err != nil {
			yield(nil, m.err)
			return
		}
		for _, resp := range m.responses {
			if !yield(resp, nil) {
				return
			}
		}
	}
}

func textCandidate(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{genai.NewPartFromText(text)},
			},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestClient_Response(t *testing.T) {
	mock := &mockAPI{response: textCandidate("Tokyo")}
	client := newWithAPI(mock, WithModel("gemini-2.0-flash"))

	resp, err := client.Response(context.Background(),
		[]agentloop.Message{
			agentloop.NewSystemMessage("Be terse."),
			agentloop.NewUserMessage("Largest city in Japan?"),
		},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, "Tokyo", resp.Text())
	assert.Equal(t, "gemini-2.0-flash", mock.lastModel)
	// System prompt rides in the config, not the content list.
	require.Len(t, mock.lastContents, 1)
	require.NotNil(t, mock.lastConfig.SystemInstruction)
	assert.Equal(t, "Be terse.", mock.lastConfig.SystemInstruction.Parts[0].Text)
}

func TestClient_Response_ModelOverride(t *testing.T) {
	mock := &mockAPI{response: textCandidate("ok")}
	client := newWithAPI(mock)

	_, err := client.Response(context.Background(),
		[]agentloop.Message{agentloop.NewUserMessage("hi")},
		&agentloop.ChatOptions{ModelID: "gemini-2.5-pro"},
	)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", mock.lastModel)
}

func TestClient_Response_MapsAPIError(t *testing.T) {
	mock := &mockAPI{err: genai.APIError{Code: 403, Message: "forbidden"}}
	client := newWithAPI(mock)

	_, err := client.Response(context.Background(),
		[]agentloop.Message{agentloop.NewUserMessage("hi")},
		nil,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, agentloop.ErrAuth)
}

func TestClient_StreamResponse(t *testing.T) {
	mock := &mockAPI{responses: []*genai.GenerateContentResponse{
		textCandidate("Hel"),
		textCandidate("lo"),
	}}
	client := newWithAPI(mock)

	stream, err := client.StreamResponse(context.Background(),
		[]agentloop.Message{agentloop.NewUserMessage("hi")},
		nil,
	)
	require.NoError(t, err)
	defer stream.Close()

	chunks, err := stream.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Hel", chunks[0].TextDelta)
	assert.Equal(t, "lo", chunks[1].TextDelta)

	resp := agentloop.ResponseFromChunks(chunks)
	assert.Equal(t, "Hello", resp.Text())
}

func TestClient_StreamResponse_ToolCall(t *testing.T) {
	mock := &mockAPI{responses: []*genai.GenerateContentResponse{{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{
						Name: "add",
						Args: map[string]any{"a": 1},
					},
				}},
			},
		}},
	}}}
	client := newWithAPI(mock)

	stream, err := client.StreamResponse(context.Background(),
		[]agentloop.Message{agentloop.NewUserMessage("1+0?")},
		nil,
	)
	require.NoError(t, err)
	defer stream.Close()

	chunks, err := stream.Collect(context.Background())
	require.NoError(t, err)

	resp := agentloop.ResponseFromChunks(chunks)
	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "add", calls[0].Name)
	assert.NotEmpty(t, calls[0].CallID)
}
