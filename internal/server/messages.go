package server

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	TypeAnnotationsCommitted MessageType = "annotations.committed"
	TypeSessionExpired       MessageType = "session.expired"
)

// Message represents a WebSocket message envelope
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnnotationsCommittedPayload is sent when enrichment results replace the baseline
type AnnotationsCommittedPayload struct {
	SessionID string `json:"session_id"`
	Month     string `json:"month"` // YYYY-MM
	Epoch     uint64 `json:"epoch"`
	Enriched  bool   `json:"enriched"`
}

// SessionExpiredPayload is sent before an idle session is dropped
type SessionExpiredPayload struct {
	SessionID string `json:"session_id"`
}
