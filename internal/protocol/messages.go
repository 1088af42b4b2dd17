// Package protocol defines the WebSocket message types for the chat
// channel between clients and the mind. All messages are JSON-encoded
// and wrapped in an Envelope for uniform routing.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of message in the WebSocket protocol.
type MessageType string

const (
	// Client → Mind
	MsgChat      MessageType = "chat.message"
	MsgSubscribe MessageType = "thoughts.subscribe"
	MsgPing      MessageType = "ping"

	// Mind → Client
	MsgReply   MessageType = "chat.reply"
	MsgThought MessageType = "thought.broadcast"
	MsgStatus  MessageType = "mind.status"
	MsgPong    MessageType = "pong"

	// Bidirectional
	MsgError MessageType = "error"
)

// Envelope is the top-level wrapper for all WebSocket communication.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"` // Message ID for correlation.
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope creates an Envelope with a fresh ID and current timestamp.
func NewEnvelope(msgType MessageType, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Envelope{
		Type:      msgType,
		ID:        uuid.New().String(),
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the Payload into the given target.
func (e *Envelope) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// --- Client → Mind payloads ---

// ChatPayload is sent with MsgChat to speak to the mind.
type ChatPayload struct {
	Content string `json:"content"`
	From    string `json:"from,omitempty"` // Speaker name; the creator token decides privilege.
}

// SubscribePayload is sent with MsgSubscribe to control the thought stream.
type SubscribePayload struct {
	Thoughts bool `json:"thoughts"` // Stream every conscious thought, not just replies.
}

// --- Mind → Client payloads ---

// ReplyPayload is sent with MsgReply after a dispatch round completes.
type ReplyPayload struct {
	Content          string  `json:"content"`
	Emotion          string  `json:"emotion"`
	EmotionIntensity float64 `json:"emotion_intensity"`
	ConsciousThought string  `json:"conscious_thought,omitempty"`
	Salience         float64 `json:"salience,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	Phi              float64 `json:"phi"`
}

// ThoughtPayload is sent with MsgThought for each broadcast thought when
// the client subscribed to the stream.
type ThoughtPayload struct {
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Salience   float64 `json:"salience"`
	Confidence float64 `json:"confidence"`
	Emotion    string  `json:"emotion,omitempty"`
	Won        bool    `json:"won_competition"`
}

// StatusPayload is sent with MsgStatus to describe the mind's state.
type StatusPayload struct {
	Name         string  `json:"name"`
	AgeHours     float64 `json:"age_hours"`
	GrowthPhase  string  `json:"growth_phase"`
	Emotion      string  `json:"emotion"`
	Phi          float64 `json:"phi"`
	EpisodeCount int64   `json:"episode_count"`
	ConceptCount int64   `json:"concept_count"`
}

// ErrorPayload is sent with MsgError for protocol-level errors.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
