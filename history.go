// Copyright (c) The agentloop authors. All rights reserved.

package agentloop

import "context"

// History is the ordered, append-only transcript of one run. Messages are
// never mutated or removed once appended; their order defines the
// exchange's causal order and is replayed verbatim on every model call.
//
// Each run owns its History exclusively; it needs no locking.
type History struct {
	messages []Message
	seeded   int // number of messages present before this run's first append
}

// NewHistory creates a History seeded with prior-turn messages.
func NewHistory(seed []Message) *History {
	h := &History{seeded: len(seed)}
	h.messages = append(h.messages, seed...)
	return h
}

// Append adds messages to the end of the transcript.
func (h *History) Append(msgs ...Message) {
	h.messages = append(h.messages, msgs...)
}

// Messages returns a copy of the full transcript.
func (h *History) Messages() []Message {
	cp := make([]Message, len(h.messages))
	copy(cp, h.messages)
	return cp
}

// NewMessages returns a copy of the messages appended during this run,
// excluding the seed.
func (h *History) NewMessages() []Message {
	cp := make([]Message, len(h.messages)-h.seeded)
	copy(cp, h.messages[h.seeded:])
	return cp
}

// Len returns the transcript length including the seed.
func (h *History) Len() int { return len(h.messages) }

// MessageStore persists conversation messages between runs, for callers
// that want multi-turn conversations without threading message slices
// by hand.
type MessageStore interface {
	// ListMessages returns all stored messages in order.
	ListMessages(ctx context.Context) ([]Message, error)

	// AddMessages appends messages to the store.
	AddMessages(ctx context.Context, msgs []Message) error
}

// InMemoryStore is a simple in-memory [MessageStore].
type InMemoryStore struct {
	messages []Message
}

// NewInMemoryStore creates an empty [InMemoryStore].
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) ListMessages(_ context.Context) ([]Message, error) {
	cp := make([]Message, len(s.messages))
	copy(cp, s.messages)
	return cp, nil
}

func (s *InMemoryStore) AddMessages(_ context.Context, msgs []Message) error {
	s.messages = append(s.messages, msgs...)
	return nil
}
