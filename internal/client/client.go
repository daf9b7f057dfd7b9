// Package client is the chat client side of the relay: it posts user text
// to the server's /api/chat route and turns whatever comes back into a
// single display string or a user-readable error.
package client

import (
	"context"
	"strings"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/relay"
	"chat-relay/internal/reply"
)

const ChatPath = "/api/chat"

// AttemptTimeout bounds each attempt against /api/chat.
const AttemptTimeout = 10 * time.Second

const (
	msgTimeout = "The request timed out. Please check your internet connection and try again."
	msgNetwork = "Network error. Please check your internet connection or try using a different browser."
	msgParse   = "There was a problem processing the response. Please try again."
	msgGeneric = "Sorry, I couldn't connect to the server. Please try again later."
)

// Outcome is the terminal result of one Send: exactly one of Text or Err
// is meaningful.
type Outcome struct {
	Text string
	Err  error
}

type Client struct {
	relay *relay.Relay
}

// New returns a client for the server at baseURL. opts are applied after
// the client defaults (three 10s attempts, 1s linear backoff, no reply
// rewriting).
func New(baseURL string, opts ...relay.Option) *Client {
	defaults := []relay.Option{
		relay.WithTimeouts(AttemptTimeout, AttemptTimeout, AttemptTimeout),
		relay.WithBackoff(time.Second),
		relay.WithTransform(relay.Validate),
	}
	endpoint := strings.TrimRight(baseURL, "/") + ChatPath
	return &Client{relay: relay.New(endpoint, append(defaults, opts...)...)}
}

// Send relays text and normalizes the reply.
func (c *Client) Send(ctx context.Context, text string) Outcome {
	raw, err := c.relay.Forward(ctx, models.ChatRequest{Text: text})
	if err != nil {
		return Outcome{Err: err}
	}

	msg, err := reply.Text(raw)
	if err != nil {
		return Outcome{Err: &relay.Error{Kind: relay.KindParse, Err: err}}
	}
	return Outcome{Text: msg}
}

// UserMessage turns a Send error into the text shown in the transcript.
func UserMessage(err error) string {
	kind, _ := relay.KindOf(err)
	switch kind {
	case relay.KindTimeout, relay.KindAbort:
		return msgTimeout
	case relay.KindNetwork:
		return msgNetwork
	case relay.KindParse:
		return msgParse
	default:
		return msgGeneric
	}
}
