// Package rest talks to the backend's REST endpoint: POST /api/chat.
package rest

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/internal/transport/request"
	"github.com/omochice/story-chat/pkg/protocol"
)

// Path is the chat endpoint below the server address.
const Path = "/api/chat"

// Client is a REST chat client.
type Client struct {
	url    string
	poster *request.Poster
}

// NewClient creates a Client for a server address such as
// "http://localhost:3002".
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
	body, err := req.Encode()
	if err != nil {
		return protocol.Reply{}, bridge.NewError(bridge.KindSend, "rest", err)
	}

	data, err := c.poster.PostJSON(ctx, c.url, body)
	if err != nil {
		return protocol.Reply{}, err
	}

	reply, skipped, err := protocol.DecodeReply(data)
	if err != nil {
		return protocol.Reply{}, bridge.NewError(bridge.KindMalformedPayload, "rest", err)
	}
	for _, err := range skipped {
		log.Warn().Str("component", "rest").Err(err).Msg("Skipping malformed reply part")
	}
	return reply, nil
}
