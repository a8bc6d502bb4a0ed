package stream

// State is the lifecycle state of a Session.
//
//	Idle ──▶ Sending ──▶ Streaming ──▶ Completed
//	            │            │
//	            ├────────────┴──▶ Failed
//	            └────────────┴──▶ Cancelled
type State int32

const (
	Idle State = iota
	Sending
	Streaming
	Completed
	Failed
	Cancelled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}
