package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionFinished is emitted once a stream session reaches a
	// terminal state.
	EventTypeSessionFinished = "streamchat.session.finished"
)

// SessionFinishedEvent is a transport-neutral event payload describing one
// finished stream session.
type SessionFinishedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Session       SessionStats `json:"session"`
}

// SessionStats captures the outcome of a stream session.
type SessionStats struct {
	MessageID  string `json:"message_id,omitempty"`
	State      string `json:"state"`
	Chars      int    `json:"chars"`
	Frames     int    `json:"frames"`
	Ignored    int    `json:"ignored_lines"`
	DurationMs int64  `json:"duration_ms"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Error      string `json:"error,omitempty"`
}
