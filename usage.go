// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

// Usage holds token consumption statistics for a model response.
type Usage struct {
	InputTokens  int `json:"inputTokenCount,omitempty"`
	OutputTokens int `json:"outputTokenCount,omitempty"`
	TotalTokens  int `json:"totalTokenCount,omitempty"`
}

// Add accumulates another usage record into this one. The run loop uses it
// to total usage across every model call in a run.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}
