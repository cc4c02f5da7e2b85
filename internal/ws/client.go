package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// client wraps a websocket connection with a buffered outbound queue drained
// by a single writePump goroutine, so broadcasts never block on a slow
// socket. Implements session.Conn.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	send chan []byte
	done bool
}

func newClient(conn *websocket.Conn, buffer int) *client {
	if buffer <= 0 {
		buffer = 64
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, buffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Send enqueues data for delivery. Returns false when the client is closed
// or its queue is full; the caller treats either as a skipped delivery, not
// an error.
func (c *client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close shuts the outbound queue down. Idempotent; the writePump closes the
// underlying socket when the queue drains.
func (c *client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	c.done = true
	close(c.send)
}
