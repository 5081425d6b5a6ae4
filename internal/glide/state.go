package glide

// State is the phase of the gesture an [Orchestrator] is tracking.
type State int

const (
	// StateIdle waits for the next gesture.
	StateIdle State = iota

	// StateGliding accepts samples of an active gesture.
	StateGliding

	// StateCommitting computes the final suggestions of a finished gesture.
	StateCommitting

	// StateCancelled marks a gesture aborted by the user until its
	// cancellation has been delivered.
	StateCancelled
)

// String returns the name of s.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGliding:
		return "gliding"
	case StateCommitting:
		return "committing"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
