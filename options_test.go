// Copyright (c) The agentloop authors. All rights reserved.

package agentloop_test

import (
	"testing"

	"github.com/agentloop/agentloop"
)

func TestMergeChatOptions(t *testing.T) {
	baseTemp := 0.7
	base := &agentloop.ChatOptions{
		ModelID:     "gpt-4o",
		Temperature: &baseTemp,
		Metadata:    map[string]string{"env": "test", "team": "core"},
	}

	overrideTemp := 0.2
	override := &agentloop.ChatOptions{
		Temperature: &overrideTemp,
		Metadata:    map[string]string{"env": "prod"},
	}

	merged := agentloop.MergeChatOptions(base, override)

	// Unset override fields keep the base value.
	if merged.ModelID != "gpt-4o" {
		t.Errorf("ModelID = %q", merged.ModelID)
	}
	// Set override fields win.
	if *merged.Temperature != 0.2 {
		t.Errorf("Temperature = %v", *merged.Temperature)
	}
	// Metadata merges key-wise, override wins on conflict.
	if merged.Metadata["env"] != "prod" || merged.Metadata["team"] != "core" {
		t.Errorf("Metadata = %v", merged.Metadata)
	}
}

func TestMergeChatOptions_NilHandling(t *testing.T) {
	opts := &agentloop.ChatOptions{ModelID: "m"}

	if got := agentloop.MergeChatOptions(nil, opts); got.ModelID != "m" {
		t.Errorf("nil base: %+v", got)
	}
	if got := agentloop.MergeChatOptions(opts, nil); got.ModelID != "m" {
		t.Errorf("nil override: %+v", got)
	}
	if got := agentloop.MergeChatOptions(nil, nil); got == nil {
		t.Error("both nil should produce empty options")
	}

	// Merging must not mutate the inputs.
	base := &agentloop.ChatOptions{ModelID: "base"}
	_ = agentloop.MergeChatOptions(base, &agentloop.ChatOptions{ModelID: "override"})
	if base.ModelID != "base" {
		t.Error("base mutated")
	}
}

func TestToolChoiceFunction(t *testing.T) {
	tc := agentloop.ToolChoiceFunction("get_weather")
	if tc != agentloop.ToolChoice("function:get_weather") {
		t.Errorf("tc = %q", tc)
	}
}

func TestUsage_Add(t *testing.T) {
	var u agentloop.Usage
	u.Add(agentloop.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15})
	u.Add(agentloop.Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3})

	if u.InputTokens != 11 || u.OutputTokens != 7 || u.TotalTokens != 18 {
		t.Errorf("usage = %+v", u)
	}
}
