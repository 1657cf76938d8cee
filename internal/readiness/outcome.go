package readiness

// Killer is the only capability over the sidecar process that leaves the
// supervisor: a best-effort kill.
type Killer interface {
	Kill() error
	PID() int
}

// Outcome is the terminal result of a resolution pass.
type Outcome struct {
	// Endpoint is set when the outcome is Ok.
	Endpoint Endpoint

	// Process is the sidecar spawned for this session, nil when the backend
	// is remote or was already running.
	Process Killer

	// Err is non-nil when resolution failed. Its message is the reason.
	Err error
}

// Ok builds a successful outcome.
func Ok(ep Endpoint, proc Killer) Outcome {
	return Outcome{Endpoint: ep, Process: proc}
}

// Failed builds a failed outcome.
func Failed(err error) Outcome {
	return Outcome{Err: err}
}

// OK reports whether the backend is usable.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Reason returns the failure message, or "" for Ok outcomes.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
