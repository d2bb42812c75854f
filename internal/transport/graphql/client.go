// Package graphql talks to the backend's GraphQL endpoint through the
// createChat mutation.
package graphql

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/internal/transport/request"
	"github.com/omochice/story-chat/pkg/protocol"
)

// Path is the GraphQL endpoint below the server address.
const Path = "/graphql"

// CreateChatMutation is the only operation the client sends.
const CreateChatMutation = `mutation CreateChatMessage($storyId: String!, $message: String!) {
  createChat(input: {storyId: $storyId, message: $message}) {
    answers {
      name
      message
    }
    answerOptions {
      isNeeded
      options
    }
  }
}`

// Client is a GraphQL chat client.
type Client struct {
	url    string
	poster *request.Poster
}

// NewClient creates a Client for a server address such as
// "http://localhost:3003".
func NewClient(address string, timeout time.Duration) *Client {
	return &Client{
		url:    strings.TrimRight(address, "/") + Path,
		poster: request.NewPoster(timeout),
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Exchange implements request.Exchanger.
func (c *Client) Exchange(ctx context.Context, req protocol.ChatRequest) (protocol.Reply, error) {
	body, err := protojson.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"query":     structpb.NewStringValue(CreateChatMutation),
		"variables": structpb.NewStructValue(req.Struct()),
	}})
	if err != nil {
		return protocol.Reply{}, bridge.NewError(bridge.KindSend, "graphql", err)
	}

	data, err := c.poster.PostJSON(ctx, c.url, body)
	if err != nil {
		return protocol.Reply{}, err
	}

	doc := &structpb.Struct{}
	if err := protojson.Unmarshal(data, doc); err != nil {
		return protocol.Reply{}, bridge.NewError(bridge.KindMalformedPayload, "graphql",
			errors.Wrapf(protocol.ErrMalformedPayload, "response is not a JSON object: %v", err))
	}

	if errs := doc.GetFields()["errors"].GetListValue().GetValues(); len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.GetStructValue().GetFields()["message"].GetStringValue())
		}
		return protocol.Reply{}, bridge.NewError(bridge.KindSend, "graphql",
			errors.Errorf("GraphQL request failed: %s", strings.Join(messages, "; ")))
	}

	created := doc.GetFields()["data"].GetStructValue().GetFields()["createChat"].GetStructValue()
	if created == nil {
		return protocol.Reply{}, bridge.NewError(bridge.KindMalformedPayload, "graphql",
			errors.Wrap(protocol.ErrMalformedPayload, "response has no createChat data"))
	}

	reply, skipped := protocol.ReplyFromStruct(created)
	for _, err := range skipped {
		log.Warn().Str("component", "graphql").Err(err).Msg("Skipping malformed reply part")
	}
	return reply, nil
}
