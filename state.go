package lazysentry

// State is the load state of a [Facade].
//
//	StateIdle → StateLoading    [Init]
//	StateLoading → StateLoaded  [load resolution]
//	StateLoading → StateFailed  [load, submit, or init failure]
//
// StateLoaded and StateFailed are terminal.
type State uint32

const (
	// StateIdle indicates Init has not been called. Calls are queued.
	StateIdle State = iota
	// StateLoading indicates the library is being loaded. Calls and global
	// handler events are queued.
	StateLoading
	// StateLoaded indicates calls go directly to the real library.
	StateLoaded
	// StateFailed indicates the load failed. Calls and global handler events
	// continue to be queued, indefinitely.
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateLoaded:
		return "Loaded"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
