package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/collab-board/backend/internal/auth"
	"github.com/collab-board/backend/internal/board"
	"github.com/collab-board/backend/internal/config"
	"github.com/collab-board/backend/internal/protocol"
)

// Time allowed to write a message to the peer.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler attaches websocket connections to boards and dispatches
// their inbound message streams. Connections hold only the board
// identifier; every operation goes back through the registry.
type Handler struct {
	registry *board.Registry
	cfg      config.WSConfig
}

// NewHandler creates a websocket handler over the board registry.
func NewHandler(registry *board.Registry, cfg config.WSConfig) *Handler {
	return &Handler{registry: registry, cfg: cfg}
}

// HandleConnection upgrades the request and runs the connection until
// it drops. Identity is already verified by the caller. Presence is
// registered and the snapshot queued before any later event, so the
// joiner reconstructs the authoritative state.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request, boardID string, identity auth.Identity) error {
	b, err := h.registry.Get(boardID)
	if err != nil {
		http.Error(w, "Board not found", http.StatusNotFound)
		return nil
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, boardID, identity.UserID, h.cfg.SendBuffer)
	go h.writePump(client)

	if _, err := b.Join(identity.UserID, identity.DisplayName, client); err != nil {
		h.sendError(client, protocol.CodeCapacity, err.Error())
		client.Close()
		return nil
	}

	go h.readPump(client)
	return nil
}

// readPump pumps inbound frames from the connection into the board.
func (h *Handler) readPump(client *Client) {
	defer func() {
		if b, err := h.registry.Get(client.BoardID()); err == nil {
			b.Leave(client)
		}
		client.Close()
		client.Conn().Close()
	}()

	pongWait := h.cfg.PongWait()
	client.Conn().SetReadLimit(h.cfg.MaxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	cursorLimit := rate.NewLimiter(rate.Limit(h.cfg.CursorRate), h.cfg.CursorBurst)

	for {
		_, data, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on board %s: %v", client.BoardID(), err)
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			h.sendError(client, protocol.CodeProtocolError, "malformed message")
			continue
		}

		h.dispatch(client, msg, cursorLimit)
	}
}

// dispatch routes one inbound message. Protocol violations are
// reported to the offending connection only; the connection stays
// open.
func (h *Handler) dispatch(client *Client, msg *protocol.Message, cursorLimit *rate.Limiter) {
	b, err := h.registry.Get(client.BoardID())
	if err != nil {
		h.sendError(client, protocol.CodeNotFound, "board no longer exists")
		return
	}

	switch msg.Kind {
	case protocol.KindJoin:
		// Re-join doubles as a resynchronization request: the board
		// re-delivers a fresh snapshot atomically with the subscription.
		var p protocol.JoinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(client, protocol.CodeProtocolError, "invalid join payload")
			return
		}
		if _, err := b.Join(client.UserID(), p.DisplayName, client); err != nil {
			h.sendError(client, protocol.CodeCapacity, err.Error())
		}

	case protocol.KindDraw:
		var p protocol.DrawPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(client, protocol.CodeProtocolError, "invalid draw payload")
			return
		}
		if len(p.Points) == 0 {
			h.sendError(client, protocol.CodeProtocolError, "draw requires at least one point")
			return
		}
		// The verified connection identity is authoritative, not the
		// client-asserted user_id.
		if err := b.ApplyDraw(client.UserID(), p); err != nil {
			h.sendError(client, protocol.CodeInternal, "failed to apply draw")
		}

	case protocol.KindCursor:
		if !cursorLimit.Allow() {
			// Ephemeral: excess updates are dropped, latest wins.
			return
		}
		var p protocol.CursorPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(client, protocol.CodeProtocolError, "invalid cursor payload")
			return
		}
		if err := b.ApplyCursor(client.UserID(), p); err != nil {
			h.sendError(client, protocol.CodeInternal, "failed to apply cursor")
		}

	case protocol.KindText:
		var p protocol.TextPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(client, protocol.CodeProtocolError, "invalid text payload")
			return
		}
		if strings.TrimSpace(p.Message) == "" {
			return
		}
		if err := b.ApplyChat(client.UserID(), p.Message); err != nil {
			h.sendError(client, protocol.CodeInternal, "failed to apply chat")
		}

	case protocol.KindClear:
		if err := b.ApplyClear(client.UserID()); err != nil {
			h.sendError(client, protocol.CodeInternal, "failed to apply clear")
		}

	case protocol.KindUndo:
		// Undo always targets the connection's own actions.
		if err := b.ApplyUndo(client.UserID()); err != nil {
			h.sendError(client, protocol.CodeInternal, "failed to apply undo")
		}

	default:
		h.sendError(client, protocol.CodeProtocolError, "unknown message kind")
	}
}

// writePump pumps queued events to the connection and probes it with
// periodic pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush anything already queued, one frame per event so
			// clients can JSON-parse each frame on its own.
			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued, ok := <-client.SendChan()
				if !ok {
					return
				}
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError delivers an error event to a single connection.
func (h *Handler) sendError(client *Client, code, message string) {
	data, err := protocol.Encode(protocol.KindError, protocol.ErrorEvent{Code: code, Message: message})
	if err != nil {
		return
	}
	client.SendEvent(data)
}

// SetCheckOrigin sets a custom origin checker for the websocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

// AllowOrigins returns an origin checker accepting exactly the listed
// origins. An empty list accepts any origin (development mode). Dials
// without an Origin header, such as non-browser clients, are accepted
// either way.
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return allowed[origin]
	}
}
