package replay

// State is the lifecycle position of a request body.
type State int

const (
	StateInit State = iota
	StateSent
	StateReplaying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSent:
		return "sent"
	case StateReplaying:
		return "replaying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
