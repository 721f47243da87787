// Copyright (c) The agentloop authors. All rights reserved.

package agentloop_test

import (
	"context"
	"errors"
	"testing"

	"github.com/agentloop/agentloop"
)

func TestText_AcceptsAnything(t *testing.T) {
	v := agentloop.Text()
	got, err := v.Validate(context.Background(), "anything at all")
	if err != nil {
		t.Fatal(err)
	}
	if got != "anything at all" {
		t.Errorf("got %q", got)
	}
}

func TestForType_Struct(t *testing.T) {
	type answer struct {
		City       string `json:"city"       jsonschema:"required"`
		Population int    `json:"population" jsonschema:"required"`
	}

	v := agentloop.ForType[answer]()

	got, err := v.Validate(context.Background(), `{"city":"Tokyo","population":37000000}`)
	if err != nil {
		t.Fatal(err)
	}
	if got.City != "Tokyo" || got.Population != 37000000 {
		t.Errorf("got %+v", got)
	}
}

func TestForType_MissingRequired(t *testing.T) {
	type answer struct {
		City       string `json:"city"       jsonschema:"required"`
		Population int    `json:"population" jsonschema:"required"`
	}

	v := agentloop.ForType[answer]()

	_, err := v.Validate(context.Background(), `{"city":"Tokyo"}`)
	var re *agentloop.RetryError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RetryError", err)
	}
	if len(re.Reasons) == 0 {
		t.Error("no reasons")
	}
}

func TestForType_NotJSON(t *testing.T) {
	type answer struct {
		City string `json:"city"`
	}

	v := agentloop.ForType[answer]()

	_, err := v.Validate(context.Background(), "Tokyo is the largest city.")
	var re *agentloop.RetryError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RetryError", err)
	}
}

func TestForType_WrongFieldType(t *testing.T) {
	type answer struct {
		Count int `json:"count" jsonschema:"required"`
	}

	v := agentloop.ForType[answer]()

	_, err := v.Validate(context.Background(), `{"count":"many"}`)
	var re *agentloop.RetryError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v", err)
	}
}

func TestForType_MarkdownFenceStripped(t *testing.T) {
	type answer struct {
		City string `json:"city" jsonschema:"required"`
	}

	v := agentloop.ForType[answer]()

	got, err := v.Validate(context.Background(), "```json\n{\"city\":\"Tokyo\"}\n```")
	if err != nil {
		t.Fatal(err)
	}
	if got.City != "Tokyo" {
		t.Errorf("City = %q", got.City)
	}
}

func TestForType_ScalarInt(t *testing.T) {
	v := agentloop.ForType[int]()

	got, err := v.Validate(context.Background(), "4")
	if err != nil {
		t.Fatal(err)
	}
	if got != 4 {
		t.Errorf("got %d", got)
	}

	_, err = v.Validate(context.Background(), "4.5")
	if err == nil {
		t.Error("expected rejection of non-integer")
	}
}

func TestForType_BareStringAccepted(t *testing.T) {
	v := agentloop.ForType[string]()

	// An unquoted reply is still a valid string result.
	got, err := v.Validate(context.Background(), "plain text answer")
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain text answer" {
		t.Errorf("got %q", got)
	}
}

func TestValidatorFunc_CustomRejection(t *testing.T) {
	v := agentloop.ValidatorFunc[string](func(_ context.Context, raw string) (string, error) {
		if raw != "magic" {
			return "", agentloop.Retry("expected the magic word, got %q", raw)
		}
		return raw, nil
	})

	if _, err := v.Validate(context.Background(), "nope"); err == nil {
		t.Fatal("expected rejection")
	}
	got, err := v.Validate(context.Background(), "magic")
	if err != nil || got != "magic" {
		t.Errorf("got %q err %v", got, err)
	}
}

func TestRetry_FormatsReason(t *testing.T) {
	err := agentloop.Retry("field %q is wrong", "city")
	if len(err.Reasons) != 1 || err.Reasons[0] != `field "city" is wrong` {
		t.Errorf("Reasons = %v", err.Reasons)
	}
}
