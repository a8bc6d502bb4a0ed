package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/streamchat/pkg/sse"
	"github.com/papercomputeco/streamchat/pkg/utils"
)

// ErrorResponse is the JSON body of every non-streaming error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamRequest is the JSON body accepted by POST /stream.
type StreamRequest struct {
	Message string `json:"message"`
}

// Server is the demo stream backend.
type Server struct {
	config     Config
	logger     *slog.Logger
	app        *fiber.App
	tokenDelay atomic.Int64
}

// New creates a stream backend with its routes registered.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: config.Logger,
		app:    app,
	}
	s.tokenDelay.Store(int64(config.TokenDelay))

	app.Get("/ping", s.handlePing)
	app.Post("/stream", s.handleStream)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting stream server",
		"listen", s.config.ListenAddr,
		"token_delay", s.TokenDelay(),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting stream server",
		"listen", listener.Addr().String(),
		"token_delay", s.TokenDelay(),
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Handler exposes the fiber app as a net/http handler. Responses are buffered
// in full before they are written, so it suits tests and embedding rather than
// live token pacing.
func (s *Server) Handler() http.HandlerFunc {
	return adaptor.FiberApp(s.app)
}

// SetTokenDelay changes the per-token delay for subsequent replies.
func (s *Server) SetTokenDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.tokenDelay.Store(int64(d))
}

// TokenDelay returns the current per-token delay.
func (s *Server) TokenDelay() time.Duration {
	return time.Duration(s.tokenDelay.Load())
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStream validates the request and streams the echoed reply.
func (s *Server) handleStream(c *fiber.Ctx) error {
	var req StreamRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Debug("invalid stream request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	tokens := Tokenize(req.Message)
	if len(tokens) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	s.logger.Debug("streaming reply",
		"message", utils.Truncate(req.Message, 64),
		"tokens", len(tokens),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// io.Pipe gives per-write backpressure; fasthttp flushes each chunk of a
	// body stream of unknown size (-1) as it arrives.
	pr, pw := io.Pipe()
	go s.writeTokens(pw, tokens, s.TokenDelay())
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// writeTokens writes one frame per token then the sentinel. It stops early
// when the client goes away and the pipe reader is closed.
func (s *Server) writeTokens(pw *io.PipeWriter, tokens []string, delay time.Duration) {
	defer pw.Close()

	start := time.Now()
	for _, token := range tokens {
		if delay > 0 {
			time.Sleep(delay)
		}
		if _, err := io.WriteString(pw, Frame(token)); err != nil {
			s.logger.Debug("client went away mid-stream", "error", err)
			return
		}
	}

	if _, err := io.WriteString(pw, Frame(sse.DoneSentinel)); err != nil {
		s.logger.Debug("client went away before sentinel", "error", err)
		return
	}

	s.logger.Debug("reply streamed",
		"tokens", len(tokens),
		"duration", time.Since(start),
	)
}

// Tokenize splits message into words, keeping the separating space on every
// word after the first so the concatenated tokens read naturally.
func Tokenize(message string) []string {
	words := strings.Fields(message)
	for i := 1; i < len(words); i++ {
		words[i] = " " + words[i]
	}
	return words
}

// Frame renders one event-stream frame carrying payload.
func Frame(payload string) string {
	return sse.DataPrefix + payload + "\n\n"
}
