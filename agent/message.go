package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is the envelope passed into agents and returned from them. The
// same JSON payload shape travels through the work queue, so queue items
// and agent inputs stay interchangeable.
type Message struct {
	// ID is a unique identifier for this message, automatically generated.
	ID string

	// Type identifies the message kind (e.g., "generation_request",
	// "search_result"). Agents use it to route and interpret payloads.
	Type string

	// Payload contains the message data as a JSON string.
	// Use UnmarshalPayload to deserialize into a specific type.
	Payload string

	// Timestamp is the ISO 8601 timestamp when the message was created.
	Timestamp string

	// Metadata carries optional key-value pairs for correlation and tracing.
	Metadata map[string]any
}

// NewMessage creates a message with the given type, serializing the
// payload to JSON and generating an ID and timestamp.
func NewMessage(msgType string, payload any) *Message {
	payloadJSON, _ := json.Marshal(payload)
	return NewRawMessage(msgType, string(payloadJSON))
}

// NewRawMessage creates a message whose payload is already JSON, as when
// wrapping a work item dequeued from the queue.
func NewRawMessage(msgType, payload string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Metadata:  make(map[string]any),
	}
}

// WithMetadata adds metadata to the message and returns it for chaining.
func (m *Message) WithMetadata(key string, value any) *Message {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
	return m
}

// GetMetadataString retrieves string metadata by key, returning the
// default when absent or of another type.
func (m *Message) GetMetadataString(key, defaultValue string) string {
	if m.Metadata == nil {
		return defaultValue
	}
	if val, ok := m.Metadata[key].(string); ok {
		return val
	}
	return defaultValue
}

// UnmarshalPayload deserializes the message payload into the provided
// value, which should be a pointer.
func (m *Message) UnmarshalPayload(v any) error {
	if m.Payload == "" {
		return fmt.Errorf("message payload is empty")
	}
	return json.Unmarshal([]byte(m.Payload), v)
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	clone := &Message{
		ID:        m.ID,
		Type:      m.Type,
		Payload:   m.Payload,
		Timestamp: m.Timestamp,
		Metadata:  make(map[string]any, len(m.Metadata)),
	}
	for k, v := range m.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// String returns a short representation for debugging.
func (m *Message) String() string {
	return fmt.Sprintf("Message{ID:%s, Type:%s}", m.ID, m.Type)
}
