package dashboard

import (
	"encoding/json"
	"time"
)

// MessageType identifies a websocket push message
type MessageType string

const (
	MessageTypeReading MessageType = "reading"
	MessageTypeWindow  MessageType = "window"
	MessageTypeStatus  MessageType = "status"
)

// Message is the envelope for all pushes to dashboard clients
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadJSON,
		Timestamp: time.Now(),
	}, nil
}

// UnmarshalPayload unmarshals the message payload into the provided struct
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}
