// Package protocol defines the wire messages exchanged over a board's
// websocket stream, in both directions.
package protocol

import (
	"encoding/json"

	"github.com/collab-board/backend/internal/model"
)

// Kind identifies a message on the wire.
type Kind string

const (
	// Client -> Server kinds
	KindJoin   Kind = "join"
	KindDraw   Kind = "draw"
	KindCursor Kind = "cursor"
	KindText   Kind = "text"
	KindClear  Kind = "clear"
	KindUndo   Kind = "undo"

	// Server -> Client kinds (draw/cursor/text/clear/undo are mirrored
	// back as events, plus the following)
	KindPresenceJoined Kind = "presence-joined"
	KindPresenceLeft   Kind = "presence-left"
	KindSnapshot       Kind = "snapshot"
	KindError          Kind = "error"
)

// Error codes carried by error events.
const (
	CodeProtocolError = "PROTOCOL_ERROR"
	CodeAuthError     = "AUTH_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeCapacity      = "CAPACITY"
	CodeInternal      = "INTERNAL_ERROR"
)

// Message is the envelope for every frame.
type Message struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload announces a participant on a fresh connection.
type JoinPayload struct {
	DisplayName string `json:"displayName"`
}

// DrawPayload is a client drawing operation. UserID is advisory; the
// server stamps the connection's verified identity on the stored action.
type DrawPayload struct {
	Tool   string        `json:"tool"`
	Color  string        `json:"color"`
	Size   float64       `json:"size"`
	Points []model.Point `json:"points"`
	UserID string        `json:"userId,omitempty"`
}

// CursorPayload is an ephemeral cursor position update.
type CursorPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Name  string  `json:"name,omitempty"`
	Color string  `json:"color,omitempty"`
}

// TextPayload is a chat message.
type TextPayload struct {
	Message string `json:"message"`
}

// UndoPayload requests retraction of the sender's most recent action.
type UndoPayload struct {
	UserID string `json:"userId,omitempty"`
}

// UndoEvent names the action retracted by an undo.
type UndoEvent struct {
	Seq          uint64 `json:"seq"`
	UserID       string `json:"userId"`
	RetractedSeq uint64 `json:"retractedSeq"`
}

// ClearEvent announces that all live draw actions were retracted.
type ClearEvent struct {
	Seq    uint64 `json:"seq"`
	UserID string `json:"userId"`
}

// PresenceLeftEvent announces a departed participant.
type PresenceLeftEvent struct {
	UserID string `json:"userId"`
}

// ErrorEvent is delivered only to the connection that caused it.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode wraps payload in a Message envelope and marshals the frame.
func Encode(kind Kind, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Kind: kind, Payload: raw})
}

// Decode parses a frame envelope. Payload stays raw for per-kind parsing.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
