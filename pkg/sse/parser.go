package sse

import (
	"iter"
	"strings"
)

// Parser splits decoded text chunks into frames.
//
// ┌──────────────┐   ┌────────────────────┐   ┌───────┐
// │ decoded text │──▶│ Parser.Frames(...) │──▶│ Frame │
// └──────────────┘   └────────────────────┘   └───────┘
//
// A Parser is not safe for concurrent use; one Parser serves one stream.
type Parser struct {
	framing Framing

	// pending holds text not yet consumed as a complete line.
	pending string

	// ignored counts lines dropped for lacking the data prefix.
	ignored int
}

// NewParser returns a Parser using the given framing.
func NewParser(framing Framing) *Parser {
	return &Parser{framing: framing}
}

// Frames adds chunk to the parser and returns a lazy sequence of the frames
// completed by it. Lines are consumed as the sequence is iterated; if the
// caller stops early (for example after a Done frame) the rest stays pending.
func (p *Parser) Frames(chunk string) iter.Seq[Frame] {
	p.pending += chunk
	if p.framing == FramingChunk && p.pending != "" && !strings.HasSuffix(p.pending, "\n") {
		p.pending += "\n"
	}

	return func(yield func(Frame) bool) {
		for {
			line, ok := p.nextLine()
			if !ok {
				return
			}

			frame, ok := p.parseLine(line)
			if !ok {
				continue
			}

			if !yield(frame) {
				return
			}
		}
	}
}

// Flush parses any undelimited content left at the end of the stream.
func (p *Parser) Flush() iter.Seq[Frame] {
	rest := p.pending
	p.pending = ""

	return func(yield func(Frame) bool) {
		if rest == "" {
			return
		}
		if frame, ok := p.parseLine(rest); ok {
			yield(frame)
		}
	}
}

// Pending returns the buffered text that has not formed a complete line.
func (p *Parser) Pending() string {
	return p.pending
}

// Ignored returns how many non-data lines have been dropped so far.
func (p *Parser) Ignored() int {
	return p.ignored
}

func (p *Parser) nextLine() (string, bool) {
	idx := strings.IndexByte(p.pending, '\n')
	if idx < 0 {
		return "", false
	}

	line := p.pending[:idx]
	p.pending = p.pending[idx+1:]
	return line, true
}

// parseLine extracts a frame from a single line. Blank lines, lines without
// the data prefix and empty payloads yield no frame.
func (p *Parser) parseLine(line string) (Frame, bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return Frame{}, false
	}

	payload, ok := strings.CutPrefix(line, DataPrefix)
	if !ok {
		p.ignored++
		return Frame{}, false
	}

	switch payload {
	case "":
		return Frame{}, false
	case DoneSentinel:
		return Frame{Done: true}, true
	default:
		return Frame{Payload: payload}, true
	}
}
