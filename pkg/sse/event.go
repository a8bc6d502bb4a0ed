// Package sse parses the line-oriented "data: " framing used by streamchat
// backends into payload frames. It is purpose-built for consuming a single
// streamed reply: lines without the data prefix are ignored and the "[DONE]"
// sentinel is reported as a distinct frame rather than as content.
//
// This package intentionally does NOT implement the full SSE event model
// (event types, IDs, retry, multi-line data joining).
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

const (
	// DataPrefix marks the lines that carry a payload.
	DataPrefix = "data: "

	// DoneSentinel is the payload that ends a stream.
	DoneSentinel = "[DONE]"
)

// Frame is a single payload extracted from the stream.
type Frame struct {
	// Payload is the raw text following the data prefix. It is empty when
	// Done is set.
	Payload string

	// Done reports that the end-of-stream sentinel was received. Callers must
	// stop consuming content for the stream once they see it.
	Done bool
}

// Framing selects how chunk boundaries relate to line boundaries.
type Framing int

const (
	// FramingChunk treats the end of every chunk as the end of a line, so a
	// backend may deliver one frame per read without a trailing newline.
	// A frame split across two reads is NOT reassembled.
	FramingChunk Framing = iota

	// FramingLine only ends lines at '\n'. Undelimited trailing content is held
	// and prepended to the next chunk, so frames may be split anywhere.
	FramingLine
)

// String implements fmt.Stringer.
func (f Framing) String() string {
	switch f {
	case FramingChunk:
		return "chunk"
	case FramingLine:
		return "line"
	default:
		return "unknown"
	}
}

// ParseFraming maps a config value to a Framing.
func ParseFraming(s string) (Framing, bool) {
	switch s {
	case "chunk", "":
		return FramingChunk, true
	case "line":
		return FramingLine, true
	default:
		return FramingChunk, false
	}
}
