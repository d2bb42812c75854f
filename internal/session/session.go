// Package session runs the chat UI cycle: it owns the conversation state,
// keeps one backend connection alive and turns each cycle into a View and a
// Trigger for the driver that renders it.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/pkg/protocol"
)

const (
	DefaultReconnectInterval = 2 * time.Second
	DefaultConnectYield      = 100 * time.Millisecond
)

// Config tunes the cycle. Zero durations disable the respective wait.
type Config struct {
	StoryID string
	// PollInterval, when positive, restarts a connected cycle on a fixed
	// cadence. Zero waits for the next event instead.
	PollInterval time.Duration
	// ReconnectInterval is the minimum spacing between connect attempts.
	ReconnectInterval time.Duration
	// ConnectYield is how long a cycle waits for a fresh attempt's first
	// event before rendering.
	ConnectYield time.Duration
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		StoryID:           protocol.DefaultStoryID,
		ReconnectInterval: DefaultReconnectInterval,
		ConnectYield:      DefaultConnectYield,
	}
}

// ActionKind identifies a user action.
type ActionKind int

const (
	ActionSubmit ActionKind = iota
	ActionChoose
)

// Action is something the user did between cycles.
type Action struct {
	Kind ActionKind
	Text string
}

// SubmitText is a free-text submission.
func SubmitText(text string) Action {
	return Action{Kind: ActionSubmit, Text: text}
}

// ChooseOption is an answer-option selection.
func ChooseOption(option string) Action {
	return Action{Kind: ActionChoose, Text: option}
}

type attempt struct {
	done chan struct{}
}

func (a *attempt) alive() bool {
	if a == nil {
		return false
	}
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Session is one chat session. All methods except Queue must be called from
// the single goroutine driving the cycle.
type Session struct {
	id        string
	cfg       Config
	connector bridge.Connector
	queue     *bridge.Queue
	limiter   *rate.Limiter
	logger    zerolog.Logger

	state   State
	attempt *attempt
	action  *Action

	connCtx    context.Context
	connCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a session that connects through connector.
func New(connector bridge.Connector, cfg Config) *Session {
	if cfg.StoryID == "" {
		cfg.StoryID = protocol.DefaultStoryID
	}

	limit := rate.Inf
	if cfg.ReconnectInterval > 0 {
		limit = rate.Every(cfg.ReconnectInterval)
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:         id,
		cfg:        cfg,
		connector:  connector,
		queue:      bridge.NewQueue(),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     log.With().Str("component", "session").Str("session", id).Logger(),
		connCtx:    ctx,
		connCancel: cancel,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Queue returns the inbound event queue. Drivers wait on it.
func (s *Session) Queue() *bridge.Queue {
	return s.queue
}

// State returns the current conversation state.
func (s *Session) State() *State {
	return &s.state
}

// Act records a user action for the next cycle. A newer action replaces
// one not yet consumed.
func (s *Session) Act(a Action) {
	s.action = &a
}

// Cycle runs one UI cycle.
func (s *Session) Cycle(ctx context.Context) Result {
	retryIn := s.ensureConnection(ctx)

	if s.state.Drain(s.queue) {
		return Result{Trigger: restartNow()}
	}

	view := s.view()

	if t := s.consumeAction(ctx); t.Cause != Continue {
		return Result{View: view, Trigger: t}
	}

	switch {
	case s.state.Connected && !s.queue.Empty():
		return Result{View: view, Trigger: restartNow()}
	case s.state.Connected && s.cfg.PollInterval > 0:
		return Result{View: view, Trigger: restartAfter(s.cfg.PollInterval)}
	case s.state.Connected:
		return Result{View: view, Trigger: waitForEvent()}
	case retryIn > 0:
		return Result{View: view, Trigger: restartAfter(retryIn)}
	case s.state.Handle == nil && !s.attempt.alive():
		// The attempt ended after this cycle checked it.
		return Result{View: view, Trigger: restartNow()}
	default:
		return Result{View: view, Trigger: waitForEvent()}
	}
}

// ensureConnection launches a connect attempt when there is no handle, no
// live attempt and no connection. It returns how long until an attempt may
// be launched when the reconnect window is still closed.
func (s *Session) ensureConnection(ctx context.Context) time.Duration {
	if s.state.Handle != nil || s.state.Connected || s.attempt.alive() {
		return 0
	}

	r := s.limiter.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return d
	}

	a := &attempt{done: make(chan struct{})}
	s.attempt = a
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// A driver waiting for events must see the attempt end.
		defer s.queue.Wake()
		defer close(a.done)
		s.connector.Run(s.connCtx, s.queue)
	}()
	s.logger.Debug().Msg("Launched connect attempt")

	if s.cfg.ConnectYield > 0 {
		yieldCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectYield)
		defer cancel()
		_ = s.queue.Wait(yieldCtx)
	}
	return 0
}

func (s *Session) status() ConnectionStatus {
	switch {
	case s.state.Connected:
		return StatusConnected
	case s.attempt.alive():
		return StatusConnecting
	case s.state.Failed:
		return StatusFailed
	default:
		return StatusDisconnected
	}
}

func (s *Session) inputMode() InputMode {
	switch {
	case !s.state.Connected:
		return InputWaiting
	case len(s.state.Options) > 0:
		return InputOptions
	default:
		return InputText
	}
}

func (s *Session) view() *View {
	v := &View{
		SessionID: s.id,
		Messages:  append([]Message(nil), s.state.Messages...),
		Options:   append([]string(nil), s.state.Options...),
		Status:    s.status(),
		Errors:    s.state.takeErrors(),
		Input:     s.inputMode(),
	}
	if !s.state.Pending.Empty() {
		pending := s.state.Pending
		v.Pending = &pending
	}
	return v
}

func (s *Session) consumeAction(ctx context.Context) Trigger {
	if s.action == nil {
		return proceed()
	}
	a := *s.action
	s.action = nil

	mode := s.inputMode()
	switch {
	case a.Kind == ActionSubmit && mode == InputText:
		return s.Submit(ctx, a.Text)
	case a.Kind == ActionChoose && mode == InputOptions && contains(s.state.Options, a.Text):
		return s.Choose(ctx, a.Text)
	}

	s.logger.Debug().Str("input", mode.String()).Str("text", a.Text).Msg("Ignoring action")
	return proceed()
}

// Submit sends free text typed by the user.
func (s *Session) Submit(ctx context.Context, text string) Trigger {
	if strings.TrimSpace(text) == "" {
		return proceed()
	}
	s.state.Messages = append(s.state.Messages, Message{Role: RoleUser, Content: text})
	return s.send(ctx, text)
}

// Choose sends an answer option. The options disappear before the send,
// whatever its outcome.
func (s *Session) Choose(ctx context.Context, option string) Trigger {
	s.state.Messages = append(s.state.Messages, Message{Role: RoleUser, Content: option})
	s.state.Options = nil
	return s.send(ctx, option)
}

func (s *Session) send(ctx context.Context, text string) Trigger {
	h := s.state.Handle
	if h == nil {
		s.state.Errors = append(s.state.Errors, "Not connected to backend. Your message was not sent.")
		return restartNow()
	}

	req := protocol.ChatRequest{StoryID: s.cfg.StoryID, Message: text}
	if err := h.Send(ctx, req); err != nil {
		s.logger.Warn().Err(err).Msg("Send failed")
		if cerr := h.Close(); cerr != nil {
			s.logger.Debug().Err(cerr).Msg("Failed to close handle")
		}
		s.state.Handle = nil
		s.state.Connected = false
		s.state.Failed = true
		s.state.surface(err)
		return restartNow()
	}

	s.state.Pending = ResponseBuffer{}
	s.state.Options = nil
	return restartNow()
}

// Close ends the session: the connection is closed and connect attempts
// are cancelled. It waits for them to return.
func (s *Session) Close() error {
	s.connCancel()
	if h := s.state.Handle; h != nil {
		s.state.Handle = nil
		h.Close()
	}
	s.wg.Wait()
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
