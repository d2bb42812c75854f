package session

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/pkg/protocol"
)

// RoleUser is the role of messages typed or chosen by the user.
const RoleUser = "user"

// Message is one entry of the chat history.
type Message struct {
	Role    string
	Content string
}

// ResponseBuffer holds an answer that is still arriving.
type ResponseBuffer struct {
	Name string
	Text string
}

// Empty reports whether nothing has arrived yet.
func (b ResponseBuffer) Empty() bool {
	return b.Text == ""
}

// State is the conversation state. It is owned by the UI cycle and never
// shared with transport goroutines.
type State struct {
	// Messages is append-only.
	Messages []Message
	// Pending and Options are never both non-empty.
	Pending ResponseBuffer
	Options []string

	Connected bool
	// Failed is set when the last connection ended with an error and
	// cleared when a connection comes up.
	Failed bool
	Handle bridge.Handle

	// Errors are banners not yet shown.
	Errors []string
}

// Drain applies every queued event and reports whether any of them
// changed what the user sees.
func (s *State) Drain(q *bridge.Queue) bool {
	changed := false
	for _, ev := range q.Drain() {
		if s.Apply(ev) {
			changed = true
		}
	}
	return changed
}

// Apply applies one event and reports whether a re-render is needed.
func (s *State) Apply(ev bridge.Event) bool {
	switch ev.Kind {
	case bridge.EventStatus:
		changed := s.Connected != ev.Connected
		s.Connected = ev.Connected
		if ev.Connected {
			s.Failed = false
		}
		if ev.Err != nil {
			s.Failed = true
			s.surface(ev.Err)
			changed = true
		}
		return changed

	case bridge.EventConnectionReady:
		if s.Handle != nil && s.Handle != ev.Handle {
			log.Warn().Str("component", "session").Msg("Replacing a live connection handle")
			s.Handle.Close()
		}
		s.Handle = ev.Handle
		return true

	case bridge.EventConnectionCleared:
		s.Handle = nil
		return true

	case bridge.EventFinalResponse:
		if strings.TrimSpace(ev.Content) == "" {
			return false
		}
		s.Messages = append(s.Messages, Message{Role: answerName(ev.Name), Content: ev.Content})
		s.Pending = ResponseBuffer{}
		s.Options = nil
		return true

	case bridge.EventPartialResponse:
		if ev.Content == "" {
			return false
		}
		name := answerName(ev.Name)
		if name != s.Pending.Name {
			// Chunks of a different answer start a new buffer.
			s.Pending = ResponseBuffer{Name: name}
		}
		s.Pending.Text += ev.Content
		s.Options = nil
		return true

	case bridge.EventAnswerOptions:
		if len(ev.Options) == 0 {
			return false
		}
		s.Options = append([]string(nil), ev.Options...)
		s.Pending = ResponseBuffer{}
		return true

	default:
		log.Warn().Str("component", "session").Stringer("kind", ev.Kind).Msg("Unknown event")
		return false
	}
}

func (s *State) surface(err error) {
	s.Errors = append(s.Errors, bridge.Banner(err))
}

// takeErrors returns the pending banners and forgets them.
func (s *State) takeErrors() []string {
	errs := s.Errors
	s.Errors = nil
	return errs
}

func answerName(name string) string {
	if name == "" {
		return protocol.DefaultAnswerName
	}
	return name
}
