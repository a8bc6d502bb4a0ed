// Package server provides a demo stream backend: POST /stream answers a chat
// message with a text/event-stream reply that echoes the message word by word,
// one "data: " frame per token, followed by "data: [DONE]".
package server

import (
	"log/slog"
	"time"
)

// Config is the stream backend configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// TokenDelay is the pause before each streamed token. Zero streams as fast
	// as the client reads.
	TokenDelay time.Duration

	Logger *slog.Logger
}
