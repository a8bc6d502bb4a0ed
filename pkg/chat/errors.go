package chat

import "errors"

var (
	// ErrNotFound is returned when an update targets a message that is not in
	// the store, including UpdateLast on an empty store.
	ErrNotFound = errors.New("message not found")

	// ErrFrozen is returned when an update targets a finalized message.
	ErrFrozen = errors.New("message is final")
)
