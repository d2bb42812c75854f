package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/internal/socketio"
	"github.com/omochice/story-chat/pkg/protocol"
)

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("EIO") != "4" || q.Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}

	netConn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Warn().Str("component", "backend").Err(err).Msg("Failed to upgrade connection")
		return
	}

	c := NewConn(uuid.NewString(), netConn)
	logger := log.With().Str("component", "backend").Str("sid", c.ID()).Str("remote", c.RemoteAddr()).Logger()

	s.hub.Register(c)
	defer func() {
		s.hub.Unregister(c)
		c.Close()
		logger.Debug().Msg("Client disconnected")
	}()

	open := socketio.OpenInfo{
		SID:          c.ID(),
		PingInterval: s.pingInterval,
		PingTimeout:  s.pingTimeout,
		MaxPayload:   DefaultMaxPayload,
	}
	payload, err := open.Encode()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode open packet")
		return
	}
	if err := c.WriteFrame(socketio.EngineFrame(socketio.EngineOpen, payload)); err != nil {
		logger.Warn().Err(err).Msg("Failed to send open packet")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.pingLoop(ctx, c)

	for {
		data, err := c.ReadFrame(s.pingInterval + s.pingTimeout)
		if err != nil {
			logger.Debug().Err(err).Msg("Read ended")
			return
		}

		t, payload, err := socketio.DecodeEngine(data)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to decode frame")
			continue
		}

		switch t {
		case socketio.EnginePing:
			c.WriteFrame(socketio.EngineFrame(socketio.EnginePong, payload))
		case socketio.EngineClose:
			return
		case socketio.EngineMessage:
			if !s.handlePacket(ctx, r, c, payload, logger) {
				return
			}
		}
	}
}

func (s *Server) pingLoop(ctx context.Context, c *Conn) {
	if s.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.WriteFrame(socketio.EngineFrame(socketio.EnginePing, nil)); err != nil {
				return
			}
		}
	}
}

// handlePacket handles one Socket.IO packet. It returns false when the
// client left.
func (s *Server) handlePacket(ctx context.Context, r *http.Request, c *Conn, payload []byte, logger zerolog.Logger) bool {
	p, err := socketio.DecodePacket(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to decode packet")
		return true
	}

	switch p.Type {
	case socketio.PacketConnect:
		if s.connectGuard != nil {
			if err := s.connectGuard(r); err != nil {
				logger.Info().Err(err).Msg("Connection refused")
				if reject, err := socketio.ConnectErrorPacket(err.Error()); err == nil {
					c.Emit(reject)
				}
				return true
			}
		}
		accept, err := socketio.ConnectPacket(&structpb.Struct{Fields: map[string]*structpb.Value{
			"sid": structpb.NewStringValue(c.ID()),
		}})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encode connect packet")
			return false
		}
		if err := c.Emit(accept); err != nil {
			return false
		}
		c.setJoined(true)
		logger.Debug().Msg("Client joined")

	case socketio.PacketDisconnect:
		c.setJoined(false)
		return false

	case socketio.PacketEvent:
		if !c.Joined() {
			logger.Warn().Msg("Event before connect")
			return true
		}
		name, args, err := p.Event()
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to decode event")
			return true
		}
		if name != protocol.EventCreateChat {
			logger.Debug().Str("event", name).Msg("Ignoring event")
			return true
		}
		if len(args) == 0 {
			logger.Warn().Msg("createChat without payload")
			return true
		}
		req, err := protocol.ChatRequestFromValue(args[0])
		if err != nil {
			logger.Warn().Err(err).Msg("Malformed chat request")
			return true
		}
		s.replyOverSocket(ctx, c, req, logger)
	}

	return true
}

func (s *Server) replyOverSocket(ctx context.Context, c *Conn, req protocol.ChatRequest, logger zerolog.Logger) {
	logger.Info().Str("story", req.StoryID).Str("message", req.Message).Msg("Chat request")

	reply, err := s.responder.Respond(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Responder failed")
		return
	}

	if s.chunked {
		for _, a := range reply.Answers {
			for _, word := range strings.SplitAfter(a.Message, " ") {
				chunk := structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
					"name":    structpb.NewStringValue(a.Name),
					"message": structpb.NewStringValue(word),
				}})
				p, err := socketio.EventPacket(protocol.EventMessageChunk, chunk)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to encode chunk")
					return
				}
				if err := c.Emit(p); err != nil {
					return
				}
			}
		}
	}

	p, err := socketio.EventPacket(protocol.EventMessageReply, structpb.NewStructValue(reply.Struct()))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode reply")
		return
	}
	if err := c.Emit(p); err != nil {
		logger.Warn().Err(err).Msg("Failed to send reply")
	}
}
