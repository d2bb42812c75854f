package socketio

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"
	"nhooyr.io/websocket"
)

// DefaultHandshakeTimeout bounds Connect when ctx carries no deadline.
const DefaultHandshakeTimeout = 20 * time.Second

// EventHandler receives the arguments of a server event.
type EventHandler func(args []*structpb.Value)

// Client is a websocket-only Socket.IO client for the default namespace.
//
// Handlers run on the client's read goroutine. They must not block and must
// not call Close.
type Client struct {
	address          string
	handshakeTimeout time.Duration

	mu             sync.RWMutex
	conn           *websocket.Conn
	sid            string
	handlers       map[string]EventHandler
	onConnect      func()
	onDisconnect   func(reason string)
	onConnectError func(err error)

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// NewClient creates a Client for a server address such as
// "http://localhost:3001". The Socket.IO path is added when absent.
func NewClient(address string) *Client {
	return &Client{
		address:          address,
		handshakeTimeout: DefaultHandshakeTimeout,
		handlers:         make(map[string]EventHandler),
		done:             make(chan struct{}),
	}
}

// On registers the handler for a server event.
func (c *Client) On(event string, h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

// OnConnect registers the callback run once the namespace is joined.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// OnDisconnect registers the callback run once when an established
// connection ends, whichever side ended it.
func (c *Client) OnDisconnect(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// OnConnectError registers the callback run when Connect fails.
func (c *Client) OnConnectError(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnectError = fn
}

// Connect dials the server and joins the default namespace. Failures are
// reported to the connect-error callback and returned.
func (c *Client) Connect(ctx context.Context) error {
	endpoint, err := EndpointURL(c.address)
	if err != nil {
		return c.connectFailed(err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.handshakeTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return c.connectFailed(errors.Wrapf(err, "failed to connect to %s", endpoint))
	}

	open, sid, err := handshake(ctx, conn)
	if err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return c.connectFailed(err)
	}

	c.mu.Lock()
	c.conn = conn
	c.sid = sid
	onConnect := c.onConnect
	c.mu.Unlock()

	log.Debug().Str("component", "socketio").Str("sid", sid).Str("endpoint", endpoint).Msg("Connected")

	if onConnect != nil {
		onConnect()
	}

	c.wg.Add(1)
	go c.readLoop(conn, open.PingInterval+open.PingTimeout)

	return nil
}

func (c *Client) connectFailed(err error) error {
	c.mu.RLock()
	fn := c.onConnectError
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
	return err
}

func handshake(ctx context.Context, conn *websocket.Conn) (OpenInfo, string, error) {
	_, frame, err := conn.Read(ctx)
	if err != nil {
		return OpenInfo{}, "", errors.Wrap(err, "failed to read open packet")
	}
	t, payload, err := DecodeEngine(frame)
	if err != nil {
		return OpenInfo{}, "", err
	}
	if t != EngineOpen {
		return OpenInfo{}, "", errors.Wrapf(ErrBadPacket, "expected open packet, got %q", t)
	}
	open, err := DecodeOpen(payload)
	if err != nil {
		return OpenInfo{}, "", err
	}
	if open.MaxPayload > 0 {
		conn.SetReadLimit(open.MaxPayload)
	}

	connect, err := ConnectPacket(nil)
	if err != nil {
		return OpenInfo{}, "", err
	}
	if err := conn.Write(ctx, websocket.MessageText, connect.Frame()); err != nil {
		return OpenInfo{}, "", errors.Wrap(err, "failed to send connect packet")
	}

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return OpenInfo{}, "", errors.Wrap(err, "failed to read connect reply")
		}
		t, payload, err := DecodeEngine(frame)
		if err != nil {
			return OpenInfo{}, "", err
		}

		switch t {
		case EnginePing:
			if err := conn.Write(ctx, websocket.MessageText, EngineFrame(EnginePong, payload)); err != nil {
				return OpenInfo{}, "", errors.Wrap(err, "failed to send pong")
			}
		case EngineClose:
			return OpenInfo{}, "", errors.New("server closed the connection during handshake")
		case EngineMessage:
			p, err := DecodePacket(payload)
			if err != nil {
				return OpenInfo{}, "", err
			}
			switch p.Type {
			case PacketConnect:
				obj, err := p.Object()
				if err != nil {
					return OpenInfo{}, "", err
				}
				return open, obj.GetFields()["sid"].GetStringValue(), nil
			case PacketConnectError:
				obj, err := p.Object()
				if err != nil {
					return OpenInfo{}, "", err
				}
				return OpenInfo{}, "", errors.Errorf("connection refused by server: %s", obj.GetFields()["message"].GetStringValue())
			}
		}
	}
}

// Emit sends an event with its arguments from the caller's goroutine.
func (c *Client) Emit(ctx context.Context, event string, args ...*structpb.Value) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return errors.New("not connected to server")
	}

	p, err := EventPacket(event, args...)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, p.Frame()); err != nil {
		return errors.Wrapf(err, "failed to emit %q", event)
	}
	return nil
}

// Connected reports whether the namespace is currently joined.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// SID returns the Socket.IO session id assigned by the server.
func (c *Client) SID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sid
}

// Done is closed once an established connection has ended and the
// disconnect callback has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close leaves the namespace and closes the connection. It waits for the
// read goroutine to exit.
func (c *Client) Close() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = conn.Write(ctx, websocket.MessageText, Packet{Type: PacketDisconnect, ID: -1}.Frame())
		cancel()
		c.disconnect("io client disconnect")
	}

	c.wg.Wait()
	return nil
}

func (c *Client) disconnect(reason string) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		fn := c.onDisconnect
		c.mu.Unlock()

		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}

		log.Debug().Str("component", "socketio").Str("reason", reason).Msg("Disconnected")
		if fn != nil {
			fn(reason)
		}
		// Done is closed last so waiters see the callback's effects.
		close(c.done)
	})
}

func (c *Client) readLoop(conn *websocket.Conn, silence time.Duration) {
	defer c.wg.Done()

	for {
		ctx, cancel := context.Background(), context.CancelFunc(func() {})
		if silence > 0 {
			ctx, cancel = context.WithTimeout(context.Background(), silence)
		}
		_, frame, err := conn.Read(ctx)
		cancel()
		if err != nil {
			reason := "transport close"
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "ping timeout"
			}
			select {
			case <-c.done:
			default:
				log.Debug().Str("component", "socketio").Err(err).Msg("Error reading from server")
			}
			c.disconnect(reason)
			return
		}

		t, payload, err := DecodeEngine(frame)
		if err != nil {
			log.Warn().Str("component", "socketio").Err(err).Msg("Failed to decode frame")
			continue
		}

		switch t {
		case EnginePing:
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			err := conn.Write(ctx, websocket.MessageText, EngineFrame(EnginePong, payload))
			cancel()
			if err != nil {
				c.disconnect("transport error")
				return
			}
		case EngineClose:
			c.disconnect("transport close")
			return
		case EngineMessage:
			if !c.handlePacket(payload) {
				c.disconnect("io server disconnect")
				return
			}
		}
	}
}

// handlePacket dispatches one Socket.IO packet. It returns false when the
// server asked to leave the namespace.
func (c *Client) handlePacket(payload []byte) bool {
	p, err := DecodePacket(payload)
	if err != nil {
		log.Warn().Str("component", "socketio").Err(err).Msg("Failed to decode packet")
		return true
	}
	if p.Namespace != "" && p.Namespace != "/" {
		return true
	}

	switch p.Type {
	case PacketDisconnect:
		return false
	case PacketEvent:
		name, args, err := p.Event()
		if err != nil {
			log.Warn().Str("component", "socketio").Err(err).Msg("Failed to decode event")
			return true
		}
		c.mu.RLock()
		h := c.handlers[name]
		c.mu.RUnlock()
		if h == nil {
			log.Debug().Str("component", "socketio").Str("event", name).Msg("No handler for event")
			return true
		}
		h(args)
	default:
		log.Debug().Str("component", "socketio").Str("type", string(rune(p.Type))).Msg("Ignoring packet")
	}
	return true
}

// EndpointURL turns a server address into the Engine.IO websocket endpoint.
// http and ws map to ws, https and wss to wss; a missing scheme means http.
func EndpointURL(address string) (string, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", errors.Wrapf(err, "invalid server address %q", address)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported scheme %q in server address", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("server address %q has no host", address)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
