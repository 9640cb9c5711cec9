package session

// State is the lifecycle position of a Manager.
//
//	Idle -> Initiating -> Connecting -> Active -> Ending -> Idle
//
// Errored is reachable from Initiating, Connecting and Active and is left
// only through Reset.
type State int

const (
	StateIdle State = iota
	StateInitiating
	StateConnecting
	StateActive
	StateEnding
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitiating:
		return "initiating"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// live reports whether a session holds resources that EndCall must release.
func (s State) live() bool {
	return s == StateInitiating || s == StateConnecting || s == StateActive
}
