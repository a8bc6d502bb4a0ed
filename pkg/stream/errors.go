package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionInFlight is returned by Client.Send while another session is
	// still streaming.
	ErrSessionInFlight = errors.New("a stream session is already in flight")

	// ErrEmptyMessage is returned by Client.Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// TransportError covers a non-success HTTP status or a network failure
// before or during streaming.
type TransportError struct {
	// StatusCode is set when the server answered with a non-success status.
	StatusCode int

	// Body holds the start of an error response body, if any.
	Body string

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("stream endpoint returned status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("stream endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("stream transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
