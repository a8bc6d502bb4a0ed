// Package stream turns a streamed text/event-stream reply into a growing chat
// message. A Client owns the conversation's chat.Store and runs at most one
// Session at a time; each Session posts the user's text, then folds the
// "data: " frames of the response into an assistant message until the
// "[DONE]" sentinel, the end of the body, an error or cancellation.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/streamchat/pkg/chat"
	"github.com/papercomputeco/streamchat/pkg/eventstream"
	"github.com/papercomputeco/streamchat/pkg/sse"
)

const (
	streamPath = "/stream"

	// DefaultAssistantName is the sender of streamed replies and apologies.
	DefaultAssistantName = "AI Assistant"

	// DefaultUserName is the sender of messages typed by the local user.
	DefaultUserName = "User"

	// DefaultApology is the fixed text shown when a session fails.
	DefaultApology = "Sorry, something went wrong. Please try again later."
)

// EventSink receives an event for every finished session. dispatch.Pool
// satisfies it.
type EventSink interface {
	Enqueue(event *eventstream.SessionFinishedEvent) bool
}

// Config is the stream client configuration.
type Config struct {
	// BaseURL is the backend root; requests go to BaseURL + "/stream".
	BaseURL string

	// HTTPClient performs requests. Defaults to a client with a 5 minute
	// timeout, since replies can be slow.
	HTTPClient *http.Client

	// AssistantName is the sender used for streamed replies and apologies.
	AssistantName string

	// Apology is the text of the message appended when a session fails.
	Apology string

	// Framing selects how read boundaries relate to protocol lines.
	Framing sse.Framing

	// StrictUTF8 fails the session on malformed UTF-8 instead of substituting
	// U+FFFD.
	StrictUTF8 bool

	// Events optionally receives a SessionFinishedEvent per session.
	Events EventSink

	Logger *slog.Logger
}

// Client is the orchestrating layer between a front end and the stream
// endpoint. It owns the Store and enforces a single in-flight session.
type Client struct {
	cfg      Config
	endpoint string
	store    *chat.Store
	inflight atomic.Bool
}

// NewClient validates c, applies defaults and returns a Client writing into store.
func NewClient(store *chat.Store, c Config) (*Client, error) {
	if store == nil {
		return nil, errors.New("stream client requires a store")
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", c.BaseURL)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.AssistantName == "" {
		c.AssistantName = DefaultAssistantName
	}
	if c.Apology == "" {
		c.Apology = DefaultApology
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		cfg:      c,
		endpoint: strings.TrimRight(c.BaseURL, "/") + streamPath,
		store:    store,
	}, nil
}

// Send appends the user's message and streams the assistant's reply into the
// store. The returned error is only about the call itself (blank input or a
// session already in flight); stream failures are reported through the store
// and Result.
func (c *Client) Send(ctx context.Context, text, sender string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyMessage
	}
	if !c.inflight.CompareAndSwap(false, true) {
		return Result{}, ErrSessionInFlight
	}
	defer c.inflight.Store(false)

	if sender == "" {
		sender = DefaultUserName
	}
	c.store.Append(chat.NewMessage(sender, text, true))

	res := newSession(text, c.endpoint, &c.cfg, c.store).Run(ctx)
	c.emit(res)

	return res, nil
}

// Stream runs a session for text without appending a user message first.
func (c *Client) Stream(ctx context.Context, text string) (Result, error) {
	if !c.inflight.CompareAndSwap(false, true) {
		return Result{}, ErrSessionInFlight
	}
	defer c.inflight.Store(false)

	res := newSession(text, c.endpoint, &c.cfg, c.store).Run(ctx)
	c.emit(res)

	return res, nil
}

// InFlight reports whether a session is currently running.
func (c *Client) InFlight() bool {
	return c.inflight.Load()
}

// Snapshot returns a copy of the conversation.
func (c *Client) Snapshot() []chat.Message {
	return c.store.Snapshot()
}

// Subscribe registers fn for conversation snapshots; see chat.Store.Subscribe.
func (c *Client) Subscribe(fn chat.Subscriber) (unsubscribe func()) {
	return c.store.Subscribe(fn)
}

// Clear empties the conversation.
func (c *Client) Clear() {
	c.store.Clear()
}

// Count returns the number of messages in the conversation.
func (c *Client) Count() int {
	return c.store.Count()
}

// Endpoint returns the full URL sessions post to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) emit(res Result) {
	if c.cfg.Events == nil {
		return
	}

	stats := eventstream.SessionStats{
		MessageID:  res.MessageID,
		State:      res.State.String(),
		Chars:      len(res.Text),
		Frames:     res.Frames,
		Ignored:    res.Ignored,
		DurationMs: res.Duration.Milliseconds(),
		HTTPStatus: res.HTTPStatus,
	}
	if res.Err != nil {
		stats.Error = res.Err.Error()
	}

	c.cfg.Events.Enqueue(&eventstream.SessionFinishedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeSessionFinished,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Session:       stats,
	})
}
