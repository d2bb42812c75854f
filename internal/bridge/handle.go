package bridge

import (
	"context"

	"github.com/omochice/story-chat/pkg/protocol"
)

// Handle is a live connection to the backend, owned by the UI cycle.
type Handle interface {
	// Send transmits a chat request from the caller's goroutine.
	Send(ctx context.Context, req protocol.ChatRequest) error

	// Close ends the connection. The owning Connector reports the
	// disconnect through the queue.
	Close() error
}

// Connector establishes connections on behalf of the UI cycle.
type Connector interface {
	// Run connects, announces the Handle with ConnectionReady and blocks
	// until the connection ends or ctx is done. Everything Run has to say
	// goes through q. Run is always called on its own goroutine.
	Run(ctx context.Context, q *Queue)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, q *Queue)

// Run implements Connector.
func (f ConnectorFunc) Run(ctx context.Context, q *Queue) {
	f(ctx, q)
}
