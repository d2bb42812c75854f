package backend

import (
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/story-chat/internal/socketio"
)

// Conn is one Engine.IO websocket connection, using gobwas/ws.
// Writes are serialized; a single goroutine reads.
type Conn struct {
	id     string
	conn   net.Conn
	mu     sync.Mutex
	joined bool
}

// NewConn wraps an upgraded connection.
func NewConn(id string, conn net.Conn) *Conn {
	return &Conn{id: id, conn: conn}
}

// ID returns the Engine.IO session id.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address for logging.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// WriteFrame sends one Engine.IO frame as a text message.
func (c *Conn) WriteFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.WriteServerMessage(c.conn, ws.OpText, frame)
}

// ReadFrame receives the next data message. Control frames are handled
// by wsutil. A zero timeout disables the read deadline.
func (c *Conn) ReadFrame(timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}
	data, _, err := wsutil.ReadClientData(c.conn)
	return data, err
}

// Joined reports whether the client has joined the default namespace.
func (c *Conn) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

func (c *Conn) setJoined(joined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = joined
}

// Emit sends an event to the client.
func (c *Conn) Emit(p socketio.Packet) error {
	return c.WriteFrame(p.Frame())
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, nil)
	c.mu.Unlock()
	return c.conn.Close()
}
