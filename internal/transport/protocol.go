package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType discriminates envelopes on the wire.
type MessageType string

const (
	TypePing    MessageType = "ping"
	TypePong    MessageType = "pong"
	TypeText    MessageType = "text"
	TypeAudio   MessageType = "audio"
	TypeMessage MessageType = "message"
	TypeError   MessageType = "error"
)

// Envelope is the JSON frame exchanged with the chat backend.
// Requests use Text; replies carry UserMessage/BotMessage/Emotion.
type Envelope struct {
	Type        MessageType `json:"type"`
	Text        string      `json:"text,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
	RequestID   string      `json:"request_id,omitempty"`
	UserMessage string      `json:"user_message,omitempty"`
	BotMessage  string      `json:"bot_message,omitempty"`
	Emotion     string      `json:"emotion,omitempty"`
	Intent      string      `json:"intent,omitempty"`
	Confidence  float64     `json:"confidence,omitempty"`
	Message     string      `json:"message,omitempty"`
	Data        string      `json:"data,omitempty"`
}

var errMissingType = errors.New("missing type")

// Decode parses one frame. Frames without a type are rejected.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: %w", errMissingType)
	}
	return env, nil
}

// NewText builds the request frame for one user utterance.
func NewText(requestID, text string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeText,
		Text:      text,
		RequestID: requestID,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}
