package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/streamchat/pkg/chat"
	"github.com/papercomputeco/streamchat/pkg/sse"
)

// maxErrorBody bounds how much of a non-success response body is kept for logs.
const maxErrorBody = 4 * 1024

// streamRequest is the JSON body posted to the stream endpoint.
type streamRequest struct {
	Message string `json:"message"`
}

// Result describes how a Session ended.
type Result struct {
	State State

	// MessageID is the assistant message the session streamed into. Empty
	// when the session failed before streaming started.
	MessageID string

	// Text is the accumulated assistant text, partial for Failed and
	// Cancelled sessions.
	Text string

	Frames     int
	Ignored    int
	HTTPStatus int
	Duration   time.Duration

	// Err is the classified failure (*TransportError, sse.ErrDecode or a
	// context error). It is informational: the user-facing outcome has already
	// been written to the store.
	Err error
}

// Session consumes one streamed reply into the store. A Session runs once.
type Session struct {
	text     string
	endpoint string
	cfg      *Config
	store    *chat.Store
	logger   *slog.Logger

	state atomic.Int32

	messageID string
	acc       chat.Accumulator
	parser    *sse.Parser
	frames    int
	status    int
}

func newSession(text, endpoint string, cfg *Config, store *chat.Store) *Session {
	return &Session{
		text:     text,
		endpoint: endpoint,
		cfg:      cfg,
		store:    store,
		logger:   cfg.Logger,
		parser:   sse.NewParser(cfg.Framing),
	}
}

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Run sends the request and streams the reply into the store. It never
// returns an error: transport and decoding failures become an apology
// message, and cancelling ctx stops reading and keeps the partial text.
func (s *Session) Run(ctx context.Context) Result {
	start := time.Now()
	if !s.state.CompareAndSwap(int32(Idle), int32(Sending)) {
		return Result{State: s.State(), Err: errors.New("session already ran")}
	}
	s.logger.Debug("session sending", "endpoint", s.endpoint)

	resp, err := s.send(ctx)
	if err != nil {
		return s.finish(ctx, err, start)
	}
	defer resp.Body.Close()

	s.transition(Streaming)
	placeholder := chat.NewMessage(s.cfg.AssistantName, "", false)
	s.messageID = placeholder.ID
	s.store.Append(placeholder)

	err = s.consume(resp.Body)
	return s.finish(ctx, err, start)
}

func (s *Session) send(ctx context.Context) (*http.Response, error) {
	body, err := json.Marshal(streamRequest{Message: s.text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	s.status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(respBody)),
		}
	}

	return resp, nil
}

// consume reads the body until the sentinel, EOF or an error. It returns nil
// for both the sentinel and a natural end of stream.
func (s *Session) consume(body io.Reader) error {
	dec := sse.NewDecoder(body, s.cfg.StrictUTF8)

	for {
		text, err := dec.Next()
		if errors.Is(err, io.EOF) {
			for frame := range s.parser.Flush() {
				if s.apply(frame) {
					break
				}
			}
			s.logger.Debug("stream ended without sentinel", "message_id", s.messageID)
			return nil
		}
		if err != nil {
			if errors.Is(err, sse.ErrDecode) {
				return err
			}
			return &TransportError{Err: fmt.Errorf("reading stream: %w", err)}
		}

		for frame := range s.parser.Frames(text) {
			if s.apply(frame) {
				s.logger.Debug("stream sentinel received", "message_id", s.messageID)
				return nil
			}
		}
	}
}

// apply folds one frame into the placeholder message and reports whether the
// frame ended the stream.
func (s *Session) apply(frame sse.Frame) bool {
	if frame.Done {
		return true
	}

	s.frames++
	text := s.acc.Append(frame.Payload)
	if err := s.store.Update(s.messageID, text); err != nil {
		// The front end may clear the conversation mid-stream; keep reading
		// so the result still carries the full reply.
		s.logger.Debug("could not update streaming message", "message_id", s.messageID, "error", err)
	}
	return false
}

func (s *Session) finish(ctx context.Context, err error, start time.Time) Result {
	res := Result{
		MessageID:  s.messageID,
		Text:       s.acc.String(),
		Frames:     s.frames,
		Ignored:    s.parser.Ignored(),
		HTTPStatus: s.status,
		Duration:   time.Since(start),
	}

	switch {
	case err == nil:
		s.transition(Completed)
	case ctx.Err() != nil:
		s.transition(Cancelled)
		err = ctx.Err()
	default:
		s.transition(Failed)
		s.logger.Error("stream session failed",
			"error", err,
			"message_id", s.messageID,
			"partial_chars", s.acc.Len(),
		)
		apology := chat.NewMessage(s.cfg.AssistantName, s.cfg.Apology, false)
		apology.Final = true
		s.store.Append(apology)
	}

	if s.messageID != "" {
		if ferr := s.store.Finalize(s.messageID); ferr != nil && !errors.Is(ferr, chat.ErrNotFound) {
			s.logger.Warn("could not finalize message", "message_id", s.messageID, "error", ferr)
		}
	}

	res.State = s.State()
	res.Err = err
	s.logger.Debug("session finished",
		"state", res.State,
		"frames", res.Frames,
		"chars", len(res.Text),
		"duration", res.Duration,
	)
	return res
}

func (s *Session) transition(to State) {
	from := State(s.state.Swap(int32(to)))
	s.logger.Debug("session transition", "from", from, "to", to)
}
