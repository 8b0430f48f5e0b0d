package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one participant's websocket connection. It
// implements board.Subscriber: authoritative events either reach the
// send queue or force a disconnect (the participant resynchronizes
// via a fresh snapshot on reconnect); ephemeral events are dropped
// when the queue is full, since only the latest value matters.
type Client struct {
	conn    *websocket.Conn
	boardID string
	userID  string
	send    chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for a verified participant.
func NewClient(conn *websocket.Conn, boardID, userID string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		conn:    conn,
		boardID: boardID,
		userID:  userID,
		send:    make(chan []byte, sendBuffer),
	}
}

// SendEvent queues an authoritative event. A full queue means the
// subscriber cannot keep pace; it is disconnected rather than allowed
// to silently miss log entries.
func (c *Client) SendEvent(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// SendTransient queues an ephemeral event, dropping it if the queue
// is full.
func (c *Client) SendTransient(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
	}
}

// Close closes the client's send queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// BoardID returns the board this client is attached to.
func (c *Client) BoardID() string {
	return c.boardID
}

// UserID returns the verified identity bound to this connection.
func (c *Client) UserID() string {
	return c.userID
}

// Conn returns the underlying websocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}
