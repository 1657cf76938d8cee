package resolver

import (
	"errors"
	"fmt"
	"time"
)

// ErrUserCancelled is the failure reported when the user declines both
// retrying the remote server and starting a local one.
var ErrUserCancelled = errors.New("user cancelled")

// SpawnError reports that the sidecar could not be launched at all.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn sidecar server: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// StartTimeoutError reports that the sidecar was spawned but never became
// reachable. Logs holds the captured output at the time of the timeout.
type StartTimeoutError struct {
	Timeout time.Duration
	Logs    string
}

func (e *StartTimeoutError) Error() string {
	return fmt.Sprintf("failed to start sidecar server within %s, logs:\n%s", e.Timeout, e.Logs)
}
