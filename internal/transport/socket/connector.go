// Package socket is the push transport: a Socket.IO connection whose
// callbacks translate backend events into bridge events.
package socket

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/internal/socketio"
	"github.com/omochice/story-chat/pkg/protocol"
)

// Connector opens Socket.IO connections to the chat backend.
type Connector struct {
	address string
}

// NewConnector creates a Connector for a backend address such as
// "http://localhost:3001".
func NewConnector(address string) *Connector {
	return &Connector{address: address}
}

// Run implements bridge.Connector. It blocks until the connection ends or
// ctx is done. Connect failures are reported by the connect-error callback.
func (c *Connector) Run(ctx context.Context, q *bridge.Queue) {
	logger := log.With().Str("component", "socket").Str("address", c.address).Logger()

	client := socketio.NewClient(c.address)
	registerHandlers(client, q)

	logger.Info().Msg("Connecting to backend")
	if err := client.Connect(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to connect to backend")
		return
	}

	select {
	case <-client.Done():
		logger.Info().Msg("Connection ended")
	case <-ctx.Done():
		logger.Info().Msg("Connection cancelled")
		client.Close()
	}
}

// registerHandlers wires client callbacks to the queue. Callbacks only
// enqueue. The handle is announced together with the connected status, before
// the client starts reading, so it always precedes the matching disconnect.
func registerHandlers(client *socketio.Client, q *bridge.Queue) {
	client.OnConnect(func() {
		q.Put(bridge.Status(true, nil), bridge.ConnectionReady(&handle{client: client}))
	})

	client.OnDisconnect(func(reason string) {
		log.Debug().Str("component", "socket").Str("reason", reason).Msg("Disconnected from backend")
		q.Put(bridge.Disconnected(nil)...)
	})

	client.OnConnectError(func(err error) {
		q.Put(bridge.Disconnected(bridge.NewError(bridge.KindConnect, "connect", err))...)
	})

	client.On(protocol.EventMessageReply, func(args []*structpb.Value) {
		if len(args) == 0 {
			log.Warn().Str("component", "socket").Msg("messageReply without payload")
			return
		}
		reply, skipped := protocol.ReplyFromValue(args[0])
		for _, err := range skipped {
			log.Warn().Str("component", "socket").Err(err).Msg("Skipping malformed reply part")
		}
		q.Put(bridge.ReplyEvents(reply)...)
	})

	client.On(protocol.EventMessageChunk, func(args []*structpb.Value) {
		if len(args) == 0 {
			return
		}
		chunk, err := protocol.ChunkFromValue(args[0])
		if err != nil {
			log.Warn().Str("component", "socket").Err(err).Msg("Skipping malformed chunk")
			return
		}
		q.Put(bridge.PartialResponse(chunk.Name, chunk.Message))
	})
}

// handle is the live Socket.IO connection handed to the UI cycle.
type handle struct {
	client *socketio.Client
}

func (h *handle) Send(ctx context.Context, req protocol.ChatRequest) error {
	if err := h.client.Emit(ctx, protocol.EventCreateChat, req.Value()); err != nil {
		return bridge.NewError(bridge.KindSend, "send", err)
	}
	return nil
}

func (h *handle) Close() error {
	return h.client.Close()
}
