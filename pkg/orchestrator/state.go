// pkg/orchestrator/state.go

package orchestrator

// State is a step of the control loop.
type State int

const (
	StateModeSelection State = iota
	StateActionSelection
	StatePreStop
	StateParameterResolution
	StatePersist
	StatePatch
	StateStart
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateModeSelection:
		return "mode_selection"
	case StateActionSelection:
		return "action_selection"
	case StatePreStop:
		return "pre_stop"
	case StateParameterResolution:
		return "parameter_resolution"
	case StatePersist:
		return "persist"
	case StatePatch:
		return "patch"
	case StateStart:
		return "start"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
