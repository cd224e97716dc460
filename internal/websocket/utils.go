package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute

	// MaxMessageSize bounds a client frame; larger frames close the connection.
	MaxMessageSize = 4 << 10
)

// Conn serializes writes to a gorilla connection, which supports at most one
// concurrent writer.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// Wrap returns a Conn around c and applies the read limit.
func Wrap(c *websocket.Conn) *Conn {
	c.SetReadLimit(MaxMessageSize)
	return &Conn{Conn: c}
}

// WriteTyped sends a strongly-typed payload.
func (c *Conn) WriteTyped(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{Event: EventError, Error: errMsg})
}

// WriteFieldErrors sends an ErrorResponse carrying per-field validation messages.
func (c *Conn) WriteFieldErrors(errMsg string, fields map[string]string) error {
	return c.WriteTyped(ErrorResponse{Event: EventError, Error: errMsg, Fields: fields})
}

// ReadEnvelope reads the next client message with a read deadline.
func (c *Conn) ReadEnvelope() (RequestEnvelope, error) {
	var env RequestEnvelope
	_ = c.SetReadDeadline(time.Now().Add(readWait))
	err := c.ReadJSON(&env)
	return env, err
}
