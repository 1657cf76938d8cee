package resolver

// State is a step of the resolution state machine.
type State int

const (
	StateInit State = iota
	StateProbeRemote
	StateRemoteHealthy
	StateRemoteUnhealthy
	StateUserDecision
	StateSpawnLocal
	StatePollLocal
	StateLocalReady
	StateLocalTimeout
	StateResolved
)

var stateNames = [...]string{
	StateInit:            "init",
	StateProbeRemote:     "probe_remote",
	StateRemoteHealthy:   "remote_healthy",
	StateRemoteUnhealthy: "remote_unhealthy",
	StateUserDecision:    "user_decision",
	StateSpawnLocal:      "spawn_local",
	StatePollLocal:       "poll_local",
	StateLocalReady:      "local_ready",
	StateLocalTimeout:    "local_timeout",
	StateResolved:        "resolved",
}

// String returns the snake_case name used in logs and metrics.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// States lists every state in order.
func States() []State {
	out := make([]State, len(stateNames))
	for i := range out {
		out[i] = State(i)
	}
	return out
}
