package chat

// State is the lifecycle position of a Client
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateSending
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further calls can succeed from this state
func (s State) Terminal() bool {
	return s == StateFailed || s == StateClosed
}
