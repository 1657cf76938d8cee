package supervisor

import (
	"context"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/go-sidecar-shell/internal/process"
)

// Handle is exclusive ownership of one spawned sidecar process.
type Handle struct {
	cmd       *exec.Cmd
	pid       int
	port      int
	startTime time.Time

	done     chan struct{}
	exitCode int // valid once done is closed
	exited   atomic.Bool
}

func newHandle(cmd *exec.Cmd, port int, start time.Time) *Handle {
	return &Handle{
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		port:      port,
		startTime: start,
		done:      make(chan struct{}),
	}
}

// PID returns the process id.
func (h *Handle) PID() int {
	return h.pid
}

// Port returns the port the sidecar was asked to serve on.
func (h *Handle) Port() int {
	return h.port
}

// Kill sends a kill signal to the process tree. Killing a process that has
// already exited is a no-op.
func (h *Handle) Kill() error {
	if h.exited.Load() {
		return nil
	}
	return process.KillTree(h.cmd.Process)
}

// Done is closed after the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether the process has exited.
func (h *Handle) Exited() bool {
	return h.exited.Load()
}

// ExitCode returns the exit code once the process has exited.
func (h *Handle) ExitCode() (code int, ok bool) {
	select {
	case <-h.done:
		return h.exitCode, true
	default:
		return 0, false
	}
}

// Wait blocks until the process exits or ctx ends.
func (h *Handle) Wait(ctx context.Context) (int, error) {
	select {
	case <-h.done:
		return h.exitCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Uptime returns how long the process has been (or was) running.
func (h *Handle) Uptime() time.Duration {
	return time.Since(h.startTime)
}

func (h *Handle) finish(exitCode int) {
	h.exitCode = exitCode
	h.exited.Store(true)
	close(h.done)
}
