// Package backend is a small stand-in for the story chat backend. It serves
// the Socket.IO push endpoint, the REST endpoint and the GraphQL endpoint from
// one router and answers every chat request through a Responder.
package backend

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/internal/socketio"
)

const (
	DefaultPingInterval = 25 * time.Second
	DefaultPingTimeout  = 20 * time.Second
	DefaultMaxPayload   = 1000000
)

// Server is the stub chat backend.
type Server struct {
	responder    Responder
	hub          *Hub
	pingInterval time.Duration
	pingTimeout  time.Duration
	chunked      bool
	connectGuard func(r *http.Request) error
}

// Option configures a Server.
type Option func(*Server)

// WithResponder sets the Responder. The default is Echo.
func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithPing sets the Engine.IO heartbeat.
func WithPing(interval, timeout time.Duration) Option {
	return func(s *Server) {
		s.pingInterval = interval
		s.pingTimeout = timeout
	}
}

// WithChunks makes the push endpoint stream every answer word by word as
// messageChunk events before the final messageReply.
func WithChunks() Option {
	return func(s *Server) { s.chunked = true }
}

// WithConnectGuard rejects Socket.IO connections for which guard returns an
// error. The error text is sent to the client in a CONNECT_ERROR packet.
func WithConnectGuard(guard func(r *http.Request) error) Option {
	return func(s *Server) { s.connectGuard = guard }
}

// New creates a Server.
func New(opts ...Option) *Server {
	s := &Server{
		responder:    Echo{},
		hub:          NewHub(),
		pingInterval: DefaultPingInterval,
		pingTimeout:  DefaultPingTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving all three endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/socket.io/", s.handleSocket)
	r.Post("/api/chat", s.handleChat)
	r.Post("/graphql", s.handleGraphQL)

	return r
}

// ClientCount returns the number of connected Socket.IO clients.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// Broadcast emits an event to every joined Socket.IO client and returns how
// many clients it reached.
func (s *Server) Broadcast(event string, args ...*structpb.Value) int {
	p, err := socketio.EventPacket(event, args...)
	if err != nil {
		log.Error().Str("component", "backend").Err(err).Msg("Failed to encode broadcast")
		return 0
	}

	sent := 0
	for _, c := range s.hub.Joined() {
		if err := c.Emit(p); err != nil {
			log.Warn().Str("component", "backend").Str("sid", c.ID()).Err(err).Msg("Failed to broadcast")
			continue
		}
		sent++
	}
	return sent
}

// ListenAndServe serves the handler on every address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addrs ...string) error {
	if len(addrs) == 0 {
		return errors.New("no listen address")
	}

	g, ctx := errgroup.WithContext(ctx)
	handler := s.Handler()

	for _, addr := range addrs {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", addr)
		}
		srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		log.Info().Str("component", "backend").Str("addr", listener.Addr().String()).Msg("Backend listening")

		g.Go(func() error {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "serve %s", addr)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.hub.CloseAll()
		return nil
	})

	return g.Wait()
}
