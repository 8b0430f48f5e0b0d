package board

import (
	"context"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collab-board/backend/internal/model"
)

// idAttempts bounds collision retries during board creation. With an
// 8-hex-char identifier space this practically never exhausts.
const idAttempts = 16

// Directory receives board lifecycle records. Only metadata crosses
// this boundary; live drawing and chat state never does.
type Directory interface {
	RecordCreated(ctx context.Context, info model.BoardInfo) error
	RecordClosed(ctx context.Context, id string, closedAt time.Time) error
}

// Registry maps board identifiers to live boards. Entries are managed
// per-id on a sync.Map, so lookups for unrelated boards never contend.
type Registry struct {
	boards sync.Map // id -> *entry

	grace           time.Duration
	maxParticipants int
	directory       Directory

	// newID is swappable in tests to force collisions.
	newID func() string
}

type entry struct {
	board *Board

	mu         sync.Mutex
	drainTimer *time.Timer
}

// Config holds configuration for the registry.
type Config struct {
	DrainGrace      time.Duration
	MaxParticipants int
}

// NewRegistry creates a board registry. directory may be nil.
func NewRegistry(cfg Config, directory Directory) *Registry {
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = 60 * time.Second
	}
	return &Registry{
		grace:           cfg.DrainGrace,
		maxParticipants: cfg.MaxParticipants,
		directory:       directory,
		newID:           newBoardID,
	}
}

// Create allocates a board under a fresh short identifier. The id is
// collision-checked against the live table; ErrIDCollision is returned
// only once the retry budget is exhausted.
func (r *Registry) Create(ctx context.Context, name string) (*Board, error) {
	if name == "" {
		return nil, model.ErrNameRequired
	}

	for i := 0; i < idAttempts; i++ {
		id := r.newID()
		e := &entry{board: New(id, name, r.maxParticipants)}
		if _, loaded := r.boards.LoadOrStore(id, e); loaded {
			continue
		}

		e.board.SetOnEmpty(func() { r.scheduleDrain(id, e) })
		e.board.SetOnActive(func() { r.cancelDrain(e) })

		// A freshly created board has no participants yet; it is
		// reclaimed like any other empty board unless someone joins.
		r.scheduleDrain(id, e)

		if r.directory != nil {
			info := model.BoardInfo{ID: id, Name: name, CreatedAt: e.board.CreatedAt()}
			if err := r.directory.RecordCreated(ctx, info); err != nil {
				log.Printf("Failed to record board %s in directory: %v", id, err)
			}
		}
		return e.board, nil
	}

	return nil, model.ErrIDCollision
}

// Get returns the live board for id.
func (r *Registry) Get(id string) (*Board, error) {
	v, ok := r.boards.Load(id)
	if !ok {
		return nil, model.ErrBoardNotFound
	}
	return v.(*entry).board, nil
}

// Remove reclaims the board only if it has no participants; otherwise
// it is a no-op.
func (r *Registry) Remove(id string) {
	v, ok := r.boards.Load(id)
	if !ok {
		return
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.board.ParticipantCount() > 0 {
		return
	}
	r.reapLocked(id, e)
}

// List returns all live boards.
func (r *Registry) List() []*Board {
	var boards []*Board
	r.boards.Range(func(_, v interface{}) bool {
		boards = append(boards, v.(*entry).board)
		return true
	})
	return boards
}

// Close stops all drain timers and drops every board.
func (r *Registry) Close() {
	r.boards.Range(func(k, v interface{}) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.drainTimer != nil {
			e.drainTimer.Stop()
			e.drainTimer = nil
		}
		e.mu.Unlock()
		r.boards.Delete(k)
		return true
	})
}

// scheduleDrain arms the grace timer for an empty board. An already
// pending timer is restarted.
func (r *Registry) scheduleDrain(id string, e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drainTimer != nil {
		e.drainTimer.Stop()
	}
	e.drainTimer = time.AfterFunc(r.grace, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.drainTimer = nil
		if e.board.ParticipantCount() > 0 {
			// A reconnect raced the timer; the board stays.
			return
		}
		r.reapLocked(id, e)
	})
}

// cancelDrain stops a pending reclamation after a reconnect.
func (r *Registry) cancelDrain(e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drainTimer != nil {
		e.drainTimer.Stop()
		e.drainTimer = nil
	}
}

// reapLocked removes the board from the table. Callers hold e.mu.
// Live state is discarded, never persisted.
func (r *Registry) reapLocked(id string, e *entry) {
	if _, ok := r.boards.Load(id); !ok {
		return
	}
	r.boards.Delete(id)
	log.Printf("Board %s reclaimed after drain", id)

	if r.directory != nil {
		if err := r.directory.RecordClosed(context.Background(), id, time.Now()); err != nil {
			log.Printf("Failed to record board %s close: %v", id, err)
		}
	}
}

// newBoardID derives a short 8-hex-char identifier from a random UUID.
func newBoardID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}
