package session

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client wraps one live transport connection. Writes are serialized because
// gorilla/websocket allows only one concurrent writer per connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	hook func(any) error
}

func NewClient(conn *websocket.Conn) *Client { return &Client{conn: conn} }

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(any) error) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send delivers one message to this connection. A non-nil error means the
// connection is dead; callers close it and let its read loop run teardown.
func (c *Client) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		return c.hook(msg)
	}
	if c.conn == nil {
		return nil
	}
	return c.conn.WriteJSON(msg)
}

// Close tears down the underlying transport. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
