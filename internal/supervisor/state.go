// Package supervisor spawns the local backend sidecar, pumps its output
// into the diagnostics ring and owns the handle used to kill it.
package supervisor

// State represents the lifecycle state of the supervised sidecar.
type State int

const (
	// StateIdle is the initial state before anything has been spawned.
	StateIdle State = iota

	// StateStarting indicates the sidecar process is being spawned.
	StateStarting

	// StateRunning indicates the sidecar process is alive.
	StateRunning

	// StateExited indicates the process exited on its own.
	StateExited

	// StateStopped indicates the process was killed by Terminate.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsActive returns true while a process is being started or is running.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning
}

// IsTerminal returns true once the process is gone.
func (s State) IsTerminal() bool {
	return s == StateExited || s == StateStopped
}
