package model

import (
	"strings"
	"time"
)

// Point is a single coordinate on the board canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawAction is one authoritative drawing operation in a board's log.
// Sequence numbers are assigned per board and define the total order
// every participant observes. Retracted actions stay in the log as
// tombstones so sequence numbers remain stable.
type DrawAction struct {
	Seq       uint64    `json:"seq"`
	UserID    string    `json:"userId"`
	Tool      string    `json:"tool"`
	Color     string    `json:"color"`
	Size      float64   `json:"size"`
	Points    []Point   `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
	Retracted bool      `json:"-"`
}

// CursorState is the latest known cursor position for one user.
// Last writer wins; no history is kept.
type CursorState struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
	Name   string  `json:"name"`
}

// ChatMessage is one chat entry in a board's log.
type ChatMessage struct {
	Seq       uint64    `json:"seq"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserPresence describes one connected participant.
type UserPresence struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Color       string    `json:"color"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// BoardInfo is the directory metadata for a board. Live drawing and
// chat state is volatile and never leaves the in-memory board.
type BoardInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

// Snapshot is the complete live state of a board, sent to a joining
// participant. Retracted draw actions are excluded.
type Snapshot struct {
	DrawActions  []DrawAction   `json:"drawActions"`
	Cursors      []CursorState  `json:"cursors"`
	ChatMessages []ChatMessage  `json:"chatMessages"`
	Participants []UserPresence `json:"participants"`
}

// CreateBoardRequest represents a request to create a new board.
type CreateBoardRequest struct {
	Name string `json:"name" binding:"required"`
}

// Validate validates the create board request. A whitespace-only name
// passes JSON binding but is still unusable.
func (r *CreateBoardRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
