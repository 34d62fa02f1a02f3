package domain

// SessionState tracks the lifecycle of one client connection.
// Transitions are one-way: Connecting -> Active -> Closed.
// Active is entered exactly once, on the first inbound frame
// (always interpreted as the display name). Closed is terminal.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}
