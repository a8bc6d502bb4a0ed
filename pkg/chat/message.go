// Package chat holds the in-memory conversation state for a streamchat client:
// the ordered message list, the observer surface the front end renders from,
// and the text accumulator used while an assistant reply is streaming in.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single chat entry.
type Message struct {
	// ID is opaque and never changes once the message is appended.
	ID string `json:"id"`

	// Sender is the display identity of the author.
	Sender string `json:"sender"`

	// Text is the message body. Assistant messages grow while a stream is in
	// flight and are frozen once Final is set.
	Text string `json:"text"`

	Timestamp time.Time `json:"timestamp"`

	// IsOwn marks messages authored by the local user.
	IsOwn bool `json:"is_own"`

	// Final marks a message whose text can no longer be updated.
	Final bool `json:"final"`
}

// NewMessage creates a message with a fresh ID and the current time.
// Messages authored by the local user are final from the start.
func NewMessage(sender, text string, isOwn bool) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
		IsOwn:     isOwn,
		Final:     isOwn,
	}
}
