// Package board holds the live state of collaborative whiteboard
// sessions and fans events out to their subscribers.
package board

import (
	"fmt"
	"sync"
	"time"

	"github.com/collab-board/backend/internal/model"
	"github.com/collab-board/backend/internal/protocol"
)

// Subscriber receives a board's outbound event stream. SendEvent
// carries authoritative events and must never drop silently: an
// implementation that cannot keep up has to disconnect itself and
// resynchronize from a fresh snapshot. SendTransient carries ephemeral
// events where only the latest value matters and may drop freely.
type Subscriber interface {
	SendEvent(data []byte)
	SendTransient(data []byte)
}

// palette of presentation colors handed to joining participants.
var palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
	"#008080", "#9a6324", "#800000", "#808000",
}

// Board is one collaborative workspace. All mutating operations are
// serialized by a single mutex, which also covers the fan-out so every
// subscriber observes authoritative events in log order. Sends to
// subscribers are non-blocking, so the mutex is never held across a
// blocking operation.
type Board struct {
	id        string
	name      string
	createdAt time.Time

	maxParticipants int

	mu           sync.Mutex
	nextSeq      uint64
	drawLog      []model.DrawAction
	chatLog      []model.ChatMessage
	cursors      map[string]model.CursorState
	participants map[string]model.UserPresence
	subs         map[Subscriber]string

	onEmpty  func()
	onActive func()
}

// New creates an empty board. maxParticipants <= 0 means no cap.
func New(id, name string, maxParticipants int) *Board {
	return &Board{
		id:              id,
		name:            name,
		createdAt:       time.Now(),
		maxParticipants: maxParticipants,
		cursors:         make(map[string]model.CursorState),
		participants:    make(map[string]model.UserPresence),
		subs:            make(map[Subscriber]string),
	}
}

func (b *Board) ID() string           { return b.id }
func (b *Board) Name() string         { return b.name }
func (b *Board) CreatedAt() time.Time { return b.createdAt }

// SetOnEmpty sets the callback invoked after the last subscriber leaves.
func (b *Board) SetOnEmpty(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEmpty = fn
}

// SetOnActive sets the callback invoked when a subscriber joins an
// empty board, canceling any pending reclamation.
func (b *Board) SetOnActive(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onActive = fn
}

// ParticipantCount returns the number of connected subscribers.
func (b *Board) ParticipantCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Join registers a participant and its subscription. The snapshot is
// queued on the subscriber before any subsequent event, under the same
// mutex as ongoing mutations, so the joiner reconstructs exactly the
// state a long-lived observer holds. Re-joining with an already
// registered subscriber is a resynchronization: it re-delivers a fresh
// snapshot, occupies no extra slot, and announces no new presence.
func (b *Board) Join(userID, displayName string, sub Subscriber) (model.UserPresence, error) {
	b.mu.Lock()

	_, resync := b.subs[sub]
	if !resync && b.maxParticipants > 0 && len(b.subs) >= b.maxParticipants {
		b.mu.Unlock()
		return model.UserPresence{}, model.ErrBoardFull
	}

	prev, known := b.participants[userID]
	presence := prev
	if !known {
		presence = model.UserPresence{
			UserID:      userID,
			DisplayName: displayName,
			Color:       b.pickColorLocked(),
			JoinedAt:    time.Now(),
		}
	} else if displayName != "" {
		presence.DisplayName = displayName
	}

	// The presence goes in before the snapshot is taken so the joiner
	// sees its own entry and assigned color.
	b.participants[userID] = presence
	snapData, err := protocol.Encode(protocol.KindSnapshot, b.snapshotLocked())
	if err != nil {
		if known {
			b.participants[userID] = prev
		} else {
			delete(b.participants, userID)
		}
		b.mu.Unlock()
		return model.UserPresence{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	wasEmpty := len(b.subs) == 0
	b.subs[sub] = userID
	sub.SendEvent(snapData)

	if !resync {
		if joined, err := protocol.Encode(protocol.KindPresenceJoined, presence); err == nil {
			b.broadcastLocked(joined, false, sub)
		}
	}

	onActive := b.onActive
	b.mu.Unlock()

	if wasEmpty && onActive != nil {
		onActive()
	}
	return presence, nil
}

// Leave drops a subscription and, when it was the user's last one,
// the presence and cursor entries. The last subscriber out triggers
// the onEmpty callback so the registry can start draining.
func (b *Board) Leave(sub Subscriber) {
	b.mu.Lock()

	userID, ok := b.subs[sub]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, sub)

	lastOfUser := true
	for _, uid := range b.subs {
		if uid == userID {
			lastOfUser = false
			break
		}
	}
	if lastOfUser {
		delete(b.participants, userID)
		delete(b.cursors, userID)
		if left, err := protocol.Encode(protocol.KindPresenceLeft, protocol.PresenceLeftEvent{UserID: userID}); err == nil {
			b.broadcastLocked(left, false, nil)
		}
	}

	empty := len(b.subs) == 0
	onEmpty := b.onEmpty
	b.mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty()
	}
}

// ApplyDraw appends a drawing action to the authoritative log and
// broadcasts it. The action takes the next sequence number. Nothing is
// mutated if the event cannot be encoded.
func (b *Board) ApplyDraw(userID string, p protocol.DrawPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	action := model.DrawAction{
		Seq:       b.nextSeq + 1,
		UserID:    userID,
		Tool:      p.Tool,
		Color:     p.Color,
		Size:      p.Size,
		Points:    p.Points,
		CreatedAt: time.Now(),
	}

	data, err := protocol.Encode(protocol.KindDraw, action)
	if err != nil {
		return fmt.Errorf("failed to encode draw event: %w", err)
	}

	b.nextSeq++
	b.drawLog = append(b.drawLog, action)
	b.broadcastLocked(data, false, nil)
	return nil
}

// ApplyCursor overwrites the user's cursor and broadcasts it as an
// ephemeral event. Cursor updates consume no sequence number.
func (b *Board) ApplyCursor(userID string, p protocol.CursorPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := model.CursorState{
		UserID: userID,
		X:      p.X,
		Y:      p.Y,
		Name:   p.Name,
		Color:  p.Color,
	}
	if presence, ok := b.participants[userID]; ok {
		if state.Name == "" {
			state.Name = presence.DisplayName
		}
		if state.Color == "" {
			state.Color = presence.Color
		}
	}

	data, err := protocol.Encode(protocol.KindCursor, state)
	if err != nil {
		return fmt.Errorf("failed to encode cursor event: %w", err)
	}

	b.cursors[userID] = state
	b.broadcastLocked(data, true, nil)
	return nil
}

// ApplyChat appends a chat message to the log and broadcasts it.
func (b *Board) ApplyChat(userID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg := model.ChatMessage{
		Seq:       b.nextSeq + 1,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	data, err := protocol.Encode(protocol.KindText, msg)
	if err != nil {
		return fmt.Errorf("failed to encode chat event: %w", err)
	}

	b.nextSeq++
	b.chatLog = append(b.chatLog, msg)
	b.broadcastLocked(data, false, nil)
	return nil
}

// ApplyUndo retracts the most recent live draw action authored by
// userID. Actions by other users are never touched, and surviving
// entries keep their sequence numbers: retraction is a tombstone, not
// a splice. A user with nothing to undo is a no-op, not an error.
func (b *Board) ApplyUndo(userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := -1
	for i := len(b.drawLog) - 1; i >= 0; i-- {
		if b.drawLog[i].UserID == userID && !b.drawLog[i].Retracted {
			target = i
			break
		}
	}
	if target < 0 {
		return nil
	}

	event := protocol.UndoEvent{
		Seq:          b.nextSeq + 1,
		UserID:       userID,
		RetractedSeq: b.drawLog[target].Seq,
	}
	data, err := protocol.Encode(protocol.KindUndo, event)
	if err != nil {
		return fmt.Errorf("failed to encode undo event: %w", err)
	}

	b.nextSeq++
	b.drawLog[target].Retracted = true
	b.broadcastLocked(data, false, nil)
	return nil
}

// ApplyClear tombstones every live draw action. Chat history is
// unaffected.
func (b *Board) ApplyClear(userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := protocol.ClearEvent{
		Seq:    b.nextSeq + 1,
		UserID: userID,
	}
	data, err := protocol.Encode(protocol.KindClear, event)
	if err != nil {
		return fmt.Errorf("failed to encode clear event: %w", err)
	}

	b.nextSeq++
	for i := range b.drawLog {
		b.drawLog[i].Retracted = true
	}
	b.broadcastLocked(data, false, nil)
	return nil
}

// Snapshot returns the live, non-retracted state of the board.
func (b *Board) Snapshot() model.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Board) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		DrawActions:  make([]model.DrawAction, 0, len(b.drawLog)),
		Cursors:      make([]model.CursorState, 0, len(b.cursors)),
		ChatMessages: make([]model.ChatMessage, len(b.chatLog)),
		Participants: make([]model.UserPresence, 0, len(b.participants)),
	}
	for _, a := range b.drawLog {
		if !a.Retracted {
			snap.DrawActions = append(snap.DrawActions, a)
		}
	}
	for _, c := range b.cursors {
		snap.Cursors = append(snap.Cursors, c)
	}
	copy(snap.ChatMessages, b.chatLog)
	for _, p := range b.participants {
		snap.Participants = append(snap.Participants, p)
	}
	return snap
}

// broadcastLocked delivers data to every subscriber except skip.
// Callers hold b.mu; per-subscriber sends never block.
func (b *Board) broadcastLocked(data []byte, transient bool, skip Subscriber) {
	for sub := range b.subs {
		if sub == skip {
			continue
		}
		if transient {
			sub.SendTransient(data)
		} else {
			sub.SendEvent(data)
		}
	}
}

// pickColorLocked returns the least-used palette color.
func (b *Board) pickColorLocked() string {
	use := make(map[string]int, len(palette))
	for _, p := range b.participants {
		use[p.Color]++
	}
	best := palette[0]
	for _, c := range palette {
		if use[c] < use[best] {
			best = c
		}
	}
	return best
}
