// Package bridge carries events from transport goroutines to the UI cycle.
//
// Connection callbacks never touch conversation state. They translate what
// happened on the wire into Events and Put them on a Queue; the UI cycle is
// the only consumer and the only writer of state.
package bridge

import "github.com/omochice/story-chat/pkg/protocol"

// EventKind identifies the variant carried by an Event.
type EventKind int

const (
	EventStatus EventKind = iota
	EventConnectionReady
	EventConnectionCleared
	EventFinalResponse
	EventAnswerOptions
	EventPartialResponse
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventConnectionReady:
		return "connection-ready"
	case EventConnectionCleared:
		return "connection-cleared"
	case EventFinalResponse:
		return "final-response"
	case EventAnswerOptions:
		return "answer-options"
	case EventPartialResponse:
		return "partial-response"
	default:
		return "unknown"
	}
}

// Event is a tagged variant. Only the fields of its Kind are meaningful:
//
//	status:            Connected, Err (optional)
//	connection-ready:  Handle
//	connection-cleared
//	final-response:    Name, Content
//	partial-response:  Name, Content
//	answer-options:    Options
type Event struct {
	Kind      EventKind
	Connected bool
	Err       error
	Handle    Handle
	Name      string
	Content   string
	Options   []string
}

// Status reports a connection state change, optionally with the error that caused it.
func Status(connected bool, err error) Event {
	return Event{Kind: EventStatus, Connected: connected, Err: err}
}

// ConnectionReady hands a live connection to the UI cycle.
func ConnectionReady(h Handle) Event {
	return Event{Kind: EventConnectionReady, Handle: h}
}

// ConnectionCleared tells the UI cycle the connection handle is gone.
func ConnectionCleared() Event {
	return Event{Kind: EventConnectionCleared}
}

// FinalResponse carries a complete answer.
func FinalResponse(name, content string) Event {
	return Event{Kind: EventFinalResponse, Name: name, Content: content}
}

// PartialResponse carries a piece of an answer that is still being produced.
func PartialResponse(name, content string) Event {
	return Event{Kind: EventPartialResponse, Name: name, Content: content}
}

// AnswerOptions offers quick-reply choices.
func AnswerOptions(options []string) Event {
	return Event{Kind: EventAnswerOptions, Options: append([]string(nil), options...)}
}

// Disconnected is the pair of events every transport emits when a
// connection ends or never came up.
func Disconnected(err error) []Event {
	return []Event{Status(false, err), ConnectionCleared()}
}

// ReplyEvents translates a backend reply into events: one final-response per
// answer, then answer-options when the reply offers any.
func ReplyEvents(reply protocol.Reply) []Event {
	events := make([]Event, 0, len(reply.Answers)+1)
	for _, a := range reply.Answers {
		events = append(events, FinalResponse(a.Name, a.Message))
	}
	if opts := reply.Options(); len(opts) > 0 {
		events = append(events, AnswerOptions(opts))
	}
	return events
}
