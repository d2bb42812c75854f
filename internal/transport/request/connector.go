// Package request adapts request/response backends to the bridge. There is
// no long-lived connection: the Connector reports itself connected at once and
// every Send is a full exchange whose reply is put on the queue.
package request

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/pkg/protocol"
)

// Exchanger performs one chat round trip. Errors are classified with
// bridge.NewError.
type Exchanger interface {
	Exchange(ctx context.Context, req protocol.ChatRequest) (protocol.Reply, error)
}

// Connector serves an Exchanger through the bridge.
type Connector struct {
	name      string
	exchanger Exchanger
}

// NewConnector creates a Connector. name is used for logging only.
func NewConnector(name string, ex Exchanger) *Connector {
	return &Connector{name: name, exchanger: ex}
}

// Run implements bridge.Connector.
func (c *Connector) Run(ctx context.Context, q *bridge.Queue) {
	h := &handle{
		name:      c.name,
		exchanger: c.exchanger,
		q:         q,
		closed:    make(chan struct{}),
	}

	log.Debug().Str("component", c.name).Msg("Backend ready")
	q.Put(bridge.Status(true, nil), bridge.ConnectionReady(h))

	select {
	case <-h.closed:
	case <-ctx.Done():
		h.Close()
	}

	q.Put(bridge.Disconnected(nil)...)
}

type handle struct {
	name      string
	exchanger Exchanger
	q         *bridge.Queue

	closeOnce sync.Once
	closed    chan struct{}
}

// Send performs the exchange and enqueues the reply.
func (h *handle) Send(ctx context.Context, req protocol.ChatRequest) error {
	select {
	case <-h.closed:
		return bridge.NewError(bridge.KindSend, "send", errors.New("connection closed"))
	default:
	}

	reply, err := h.exchanger.Exchange(ctx, req)
	if err != nil {
		log.Warn().Str("component", h.name).Err(err).Msg("Chat request failed")
		return err
	}

	h.q.Put(bridge.ReplyEvents(reply)...)
	return nil
}

func (h *handle) Close() error {
	h.closeOnce.Do(func() { close(h.closed) })
	return nil
}
