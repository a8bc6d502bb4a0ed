package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/streamchat/pkg/chat"
)

// Echo mirrors the newest non-own message of a conversation onto w as it
// grows. Register Observe as a chat.Store subscriber.
type Echo struct {
	w      io.Writer
	prefix func(m chat.Message) string

	mu      sync.Mutex
	id      string
	printed string
	head    string
}

// NewEcho returns an Echo writing to w. prefix, if set, is written before the
// first chunk of every new message.
func NewEcho(w io.Writer, prefix func(m chat.Message) string) *Echo {
	return &Echo{w: w, prefix: prefix}
}

// Observe writes whatever the newest non-own message gained since the last
// snapshot. A new message starts on a fresh line; an empty snapshot resets.
func (e *Echo) Observe(snap []chat.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(snap) == 0 {
		e.id, e.printed, e.head = "", "", ""
		return
	}

	last := snap[len(snap)-1]
	if last.IsOwn {
		return
	}

	if last.ID != e.id {
		if e.id != "" {
			fmt.Fprintln(e.w)
		}
		e.id, e.printed, e.head = last.ID, "", ""
		if e.prefix != nil {
			e.head = e.prefix(last)
			fmt.Fprint(e.w, e.head)
		}
	}

	// Text only grows while streaming; anything else is redrawn in full.
	if !strings.HasPrefix(last.Text, e.printed) {
		fmt.Fprintf(e.w, "\n%s%s", e.head, last.Text)
		e.printed = last.Text
		return
	}
	if len(last.Text) > len(e.printed) {
		fmt.Fprint(e.w, last.Text[len(e.printed):])
		e.printed = last.Text
	}
}

// Finish ends the echoed line, if any, so the next message starts without a
// leading blank line.
func (e *Echo) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.id == "" {
		return
	}
	fmt.Fprintln(e.w)
	e.id, e.printed, e.head = "", "", ""
}

// Current returns the ID and text of the message being echoed.
func (e *Echo) Current() (id, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id, e.printed
}

// Rows returns how many terminal rows the echoed message (prefix included)
// occupies at the given width.
func (e *Echo) Rows(width int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.id == "" {
		return 0
	}
	if width <= 0 {
		width = 80
	}

	rows := 0
	for _, line := range strings.Split(e.head+e.printed, "\n") {
		w := lipgloss.Width(line)
		rows += max(1, (w+width-1)/width)
	}
	return rows
}

// Erase moves the cursor back over the echoed message and clears it, so it
// can be redrawn (for example as rendered markdown). It only makes sense on a
// terminal.
func (e *Echo) Erase(width int) {
	rows := e.Rows(width)
	if rows == 0 {
		return
	}

	fmt.Fprint(e.w, "\r")
	if rows > 1 {
		fmt.Fprintf(e.w, "\x1b[%dA", rows-1)
	}
	fmt.Fprint(e.w, "\x1b[J")

	e.mu.Lock()
	e.id, e.printed, e.head = "", "", ""
	e.mu.Unlock()
}
