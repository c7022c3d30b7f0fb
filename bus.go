package gateway

import (
	"encoding/json"
	"sync"
)

// Message is the wire envelope exchanged with plugins. Payload stays a
// raw map on the inbound side; the middleware decodes it into typed
// payloads before anything is dispatched.
type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Handler consumes bus messages.
type Handler func(Message)

// Bus is the bidirectional event channel between host and plugins,
// abstracted as an injectable pub/sub port with explicit lifecycle so
// tests can run isolated instances.
type Bus interface {
	// Attach registers a handler and returns its detach function.
	// Handlers are invoked in registration order.
	Attach(h Handler) func()
	// Broadcast delivers the message to every attached handler.
	Broadcast(msg Message)
}

type busEntry struct {
	id      int
	handler Handler
}

// MessageBus is the in-process Bus implementation.
type MessageBus struct {
	mu      sync.Mutex
	entries []busEntry
	nextID  int
}

var _ Bus = (*MessageBus)(nil)

func NewMessageBus() *MessageBus {
	return &MessageBus{}
}

func (b *MessageBus) Attach(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.entries = append(b.entries, busEntry{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.entries {
			if e.id == id {
				b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
				return
			}
		}
	}
}

func (b *MessageBus) Broadcast(msg Message) {
	b.mu.Lock()
	entries := make([]busEntry, len(b.entries))
	copy(entries, b.entries)
	b.mu.Unlock()

	for _, e := range entries {
		e.handler(msg)
	}
}

// messageFromAction converts a host action into the wire envelope. The
// typed payload is flattened to a map through JSON so plugins see the
// same shape regardless of origin.
func messageFromAction(a Action, logger Logger) (Message, bool) {
	msg := Message{Type: a.Type}
	if a.Payload == nil {
		return msg, true
	}

	raw, err := json.Marshal(a.Payload)
	if err != nil {
		logger.Error("failed to encode broadcast payload for %s: %v", a.Type, err)
		return Message{}, false
	}

	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Error("failed to flatten broadcast payload for %s: %v", a.Type, err)
		return Message{}, false
	}

	msg.Payload = payload
	return msg, true
}
