package session

// State is the session lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	Generating
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Generating:
		return "generating"
	case Finished:
		return "finished"
	}
	return "unknown"
}
