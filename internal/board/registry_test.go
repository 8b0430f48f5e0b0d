package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/collab-board/backend/internal/model"
)

// recordingDirectory captures lifecycle records for assertions.
type recordingDirectory struct {
	mu      sync.Mutex
	created []model.BoardInfo
	closed  []string
}

func (d *recordingDirectory) RecordCreated(_ context.Context, info model.BoardInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, info)
	return nil
}

func (d *recordingDirectory) RecordClosed(_ context.Context, id string, _ time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = append(d.closed, id)
	return nil
}

func (d *recordingDirectory) closedIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.closed...)
}

func TestCreateAndGet(t *testing.T) {
	dir := &recordingDirectory{}
	r := NewRegistry(Config{DrainGrace: time.Hour}, dir)
	defer r.Close()

	b, err := r.Create(context.Background(), "retro")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(b.ID()) != 8 {
		t.Errorf("board id %q should be 8 hex chars", b.ID())
	}

	got, err := r.Get(b.ID())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != b {
		t.Error("get returned a different board")
	}

	if _, err := r.Get("00000000"); err != model.ErrBoardNotFound {
		t.Errorf("expected ErrBoardNotFound, got %v", err)
	}

	dir.mu.Lock()
	defer dir.mu.Unlock()
	if len(dir.created) != 1 || dir.created[0].ID != b.ID() {
		t.Errorf("directory should record the creation, got %+v", dir.created)
	}
}

func TestCreateRequiresName(t *testing.T) {
	r := NewRegistry(Config{DrainGrace: time.Hour}, nil)
	defer r.Close()

	if _, err := r.Create(context.Background(), ""); err != model.ErrNameRequired {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestCreateReportsExhaustedIDSpace(t *testing.T) {
	r := NewRegistry(Config{DrainGrace: time.Hour}, nil)
	defer r.Close()

	// Force every attempt onto the same identifier.
	r.newID = func() string { return "deadbeef" }

	if _, err := r.Create(context.Background(), "first"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := r.Create(context.Background(), "second"); err != model.ErrIDCollision {
		t.Fatalf("expected ErrIDCollision, got %v", err)
	}
}

func TestEmptyBoardIsDrainedAfterGrace(t *testing.T) {
	dir := &recordingDirectory{}
	r := NewRegistry(Config{DrainGrace: 20 * time.Millisecond}, dir)
	defer r.Close()

	b, err := r.Create(context.Background(), "ephemeral")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		_, err := r.Get(b.ID())
		return err == model.ErrBoardNotFound
	})

	waitFor(t, 2*time.Second, func() bool {
		ids := dir.closedIDs()
		return len(ids) == 1 && ids[0] == b.ID()
	})
}

func TestJoinCancelsDrain(t *testing.T) {
	r := NewRegistry(Config{DrainGrace: 30 * time.Millisecond}, nil)
	defer r.Close()

	b, err := r.Create(context.Background(), "busy")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	sub := &mockSub{}
	if _, err := b.Join("alice", "Alice", sub); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Well past the grace period the occupied board must survive.
	time.Sleep(100 * time.Millisecond)
	if _, err := r.Get(b.ID()); err != nil {
		t.Fatalf("occupied board was reclaimed: %v", err)
	}

	// Once the last participant leaves, the grace clock restarts.
	b.Leave(sub)
	waitFor(t, 2*time.Second, func() bool {
		_, err := r.Get(b.ID())
		return err == model.ErrBoardNotFound
	})
}

func TestReconnectDuringGraceKeepsState(t *testing.T) {
	r := NewRegistry(Config{DrainGrace: 50 * time.Millisecond}, nil)
	defer r.Close()

	b, err := r.Create(context.Background(), "sticky")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	sub := &mockSub{}
	b.Join("alice", "Alice", sub)
	b.ApplyDraw("alice", drawPayload(2))
	b.Leave(sub)

	// Reconnect before the grace expires.
	again := &mockSub{}
	if _, err := b.Join("alice", "Alice", again); err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	got, err := r.Get(b.ID())
	if err != nil {
		t.Fatalf("board was reclaimed despite the reconnect: %v", err)
	}
	if len(got.Snapshot().DrawActions) != 1 {
		t.Error("live state should survive a within-grace reconnect")
	}
}

func TestRemoveSkipsOccupiedBoard(t *testing.T) {
	r := NewRegistry(Config{DrainGrace: time.Hour}, nil)
	defer r.Close()

	b, _ := r.Create(context.Background(), "occupied")
	b.Join("alice", "Alice", &mockSub{})

	r.Remove(b.ID())
	if _, err := r.Get(b.ID()); err != nil {
		t.Fatalf("remove must not reclaim an occupied board: %v", err)
	}
}

func TestListReturnsLiveBoards(t *testing.T) {
	r := NewRegistry(Config{DrainGrace: time.Hour}, nil)
	defer r.Close()

	r.Create(context.Background(), "one")
	r.Create(context.Background(), "two")

	if got := len(r.List()); got != 2 {
		t.Errorf("expected 2 live boards, got %d", got)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
