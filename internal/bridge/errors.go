package bridge

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/omochice/story-chat/pkg/protocol"
)

// Kind classifies transport failures. None of them is fatal; each ends up as
// a banner in the UI.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnect: the connection was never established or was refused.
	KindConnect
	// KindSend: an outbound message could not be delivered.
	KindSend
	// KindMalformedPayload: part of an inbound payload had the wrong shape.
	KindMalformedPayload
	// KindTimeout: a request/response exchange took too long.
	KindTimeout
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "ConnectError"
	case KindSend:
		return "SendError"
	case KindMalformedPayload:
		return "MalformedPayload"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error is a classified transport error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError classifies err. It returns nil when err is nil.
func NewError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Cause returns the underlying error, for errors.Cause.
func (e *Error) Cause() error { return e.Err }

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, protocol.ErrMalformedPayload) {
		return KindMalformedPayload
	}
	return KindUnknown
}

// Banner renders err as the text shown to the user.
func Banner(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindConnect:
		return fmt.Sprintf("Connection failed: %v", err)
	case KindTimeout:
		return fmt.Sprintf("Request timed out. The server took too long to respond (%v)", err)
	case KindSend:
		return fmt.Sprintf("Error sending message: %v. Connection lost?", err)
	case KindMalformedPayload:
		return fmt.Sprintf("Received a malformed reply: %v", err)
	default:
		return err.Error()
	}
}
