package inject

// State is the injection lifecycle of one embedded context.
type State int

const (
	// StateUninitialized means the agent is absent or presumed lost.
	StateUninitialized State = iota

	// StateInitializing means an installation is in progress.
	StateInitializing

	// StateReady means the agent answered its last installation or probe.
	StateReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
