package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/omochice/story-chat/pkg/protocol"
)

// Responder produces the reply to a chat request.
type Responder interface {
	Respond(ctx context.Context, req protocol.ChatRequest) (protocol.Reply, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req protocol.ChatRequest) (protocol.Reply, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, req protocol.ChatRequest) (protocol.Reply, error) {
	return f(ctx, req)
}

// Echo answers every message by repeating it. Messages ending in a question
// mark also offer Yes/No options.
type Echo struct {
	Name string
}

// Respond implements Responder.
func (e Echo) Respond(_ context.Context, req protocol.ChatRequest) (protocol.Reply, error) {
	name := e.Name
	if name == "" {
		name = protocol.DefaultAnswerName
	}

	reply := protocol.Reply{
		Answers: []protocol.Answer{{Name: name, Message: fmt.Sprintf("You said: %s", req.Message)}},
	}
	if strings.HasSuffix(strings.TrimSpace(req.Message), "?") {
		reply.AnswerOptions = &protocol.AnswerOptions{IsNeeded: true, Options: []string{"Yes", "No"}}
	}
	return reply, nil
}
