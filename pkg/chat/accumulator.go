package chat

import "strings"

// Accumulator owns the growing text of one in-flight assistant message.
// It knows nothing about the Store: callers write the returned text into the
// owning message themselves.
type Accumulator struct {
	buf strings.Builder
}

// Append concatenates payload onto the buffer and returns the full text.
func (a *Accumulator) Append(payload string) string {
	a.buf.WriteString(payload)
	return a.buf.String()
}

// String returns the accumulated text.
func (a *Accumulator) String() string {
	return a.buf.String()
}

// Len returns the accumulated length in bytes.
func (a *Accumulator) Len() int {
	return a.buf.Len()
}
