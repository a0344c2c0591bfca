package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Message is a notification delivered through a bridge. Metadata keys are
// flattened into the top-level JSON object next to msg_id, topic and payload.
type Message struct {
	ID       string
	Topic    string
	Payload  any
	Metadata map[string]any
}

// NewMessage creates a message with a generated id
func NewMessage(topic string, payload any) Message {
	return Message{
		ID:       uuid.New().String(),
		Topic:    topic,
		Payload:  payload,
		Metadata: make(map[string]any),
	}
}

// WithMetadata returns a copy of the message with key set
func (m Message) WithMetadata(key string, value any) Message {
	md := make(map[string]any, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		md[k] = v
	}
	md[key] = value
	m.Metadata = md
	return m
}

var reservedMessageKeys = map[string]bool{"msg_id": true, "topic": true, "payload": true}

// MarshalJSON flattens metadata into the message object
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Metadata)+3)
	for k, v := range m.Metadata {
		if reservedMessageKeys[k] {
			return nil, fmt.Errorf("metadata key %q collides with message field", k)
		}
		out[k] = v
	}
	out["msg_id"] = m.ID
	out["topic"] = m.Topic
	out["payload"] = m.Payload
	return json.Marshal(out)
}

// UnmarshalJSON collects unknown top-level keys into metadata
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	msg := Message{Metadata: make(map[string]any)}
	for k, v := range raw {
		var err error
		switch k {
		case "msg_id":
			err = json.Unmarshal(v, &msg.ID)
		case "topic":
			err = json.Unmarshal(v, &msg.Topic)
		case "payload":
			err = json.Unmarshal(v, &msg.Payload)
		default:
			var val any
			err = json.Unmarshal(v, &val)
			msg.Metadata[k] = val
		}
		if err != nil {
			return fmt.Errorf("failed to decode message field %s: %w", k, err)
		}
	}

	*m = msg
	return nil
}
