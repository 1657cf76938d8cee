package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-sidecar-shell/internal/logging"
	"github.com/randomizedcoder/go-sidecar-shell/internal/process"
)

// ErrAlreadyRunning is returned by Spawn while a live sidecar is held.
var ErrAlreadyRunning = errors.New("sidecar already running")

// eventBuffer is the depth of the ordered line channel between the stream
// readers and the pump.
const eventBuffer = 64

// Callbacks contains optional callback functions for supervisor events.
type Callbacks struct {
	// OnStateChange is called when the sidecar state changes.
	OnStateChange func(oldState, newState State)

	// OnStart is called when the sidecar process starts.
	OnStart func(pid int)

	// OnExit is called when the sidecar process exits.
	OnExit func(pid int, exitCode int, uptime time.Duration)

	// OnLine is called for every captured output line.
	OnLine func(stream logging.Stream)
}

// Config holds configuration for creating a new Supervisor.
type Config struct {
	Launcher  process.Launcher
	Output    *logging.OutputHandler
	Logger    *slog.Logger
	Callbacks Callbacks
}

// Supervisor owns at most one sidecar process at a time.
type Supervisor struct {
	launcher  process.Launcher
	output    *logging.OutputHandler
	logger    *slog.Logger
	callbacks Callbacks

	state   State
	stateMu sync.RWMutex

	// spawnMu serializes Spawn calls. It is separate from mu so the
	// handle slot is never locked while a process is being started.
	spawnMu sync.Mutex

	// mu guards handle and is only held to take or set it.
	mu     sync.Mutex
	handle *Handle
}

// New creates a new Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	output := cfg.Output
	if output == nil {
		output = logging.NewOutputHandler(logging.NewLogRing(0), logger, nil, nil, false)
	}

	return &Supervisor{
		launcher:  cfg.Launcher,
		output:    output,
		logger:    logger,
		callbacks: cfg.Callbacks,
		state:     StateIdle,
	}
}

// Spawn launches the sidecar on port and starts pumping its output.
// It fails with ErrAlreadyRunning while a previously spawned process is
// still held and alive.
func (s *Supervisor) Spawn(port int) (*Handle, error) {
	s.spawnMu.Lock()
	defer s.spawnMu.Unlock()

	if h := s.Current(); h != nil && !h.Exited() {
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, h.PID())
	}

	s.setState(StateStarting)

	cmd, err := s.launcher.BuildCommand(port)
	if err != nil {
		s.logger.Error("failed_to_build_command", "launcher", s.launcher.Name(), "error", err)
		s.setState(StateIdle)
		return nil, fmt.Errorf("build sidecar command: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.setState(StateIdle)
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.setState(StateIdle)
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	// Every sidecar leads its own group, whatever the launcher set up,
	// so Terminate never signals the host's group.
	process.ConfigureProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		s.logger.Error("failed_to_start_sidecar",
			"launcher", s.launcher.Name(),
			"path", cmd.Path,
			"error", err,
		)
		s.setState(StateIdle)
		return nil, fmt.Errorf("start sidecar: %w", err)
	}

	h := newHandle(cmd, port, start)

	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()

	s.setState(StateRunning)
	s.logger.Info("sidecar_started",
		"pid", h.PID(),
		"port", port,
		"launcher", s.launcher.Name(),
	)

	if s.callbacks.OnStart != nil {
		s.callbacks.OnStart(h.PID())
	}

	go s.pump(h, stdout, stderr)

	return h, nil
}

// pump forwards both output streams to the handler in arrival order, then
// reaps the process. It runs for the lifetime of the process.
func (s *Supervisor) pump(h *Handle, stdout, stderr io.Reader) {
	events := make(chan logging.Entry, eventBuffer)

	var readers sync.WaitGroup
	readers.Add(2)
	for _, src := range []struct {
		r      io.Reader
		stream logging.Stream
	}{
		{stdout, logging.StreamStdout},
		{stderr, logging.StreamStderr},
	} {
		go func(r io.Reader, stream logging.Stream) {
			defer readers.Done()
			err := logging.ReadLines(r, func(line string) {
				events <- logging.Entry{Stream: stream, Line: line}
			})
			if err != nil {
				s.logger.Debug("sidecar_stream_read_error", "stream", stream.String(), "error", err)
			}
		}(src.r, src.stream)
	}

	go func() {
		readers.Wait()
		close(events)
	}()

	for e := range events {
		s.output.HandleLine(e.Stream, e.Line)
		if s.callbacks.OnLine != nil {
			s.callbacks.OnLine(e.Stream)
		}
	}

	// Both pipes are at EOF, so Wait will not race the readers.
	waitErr := h.cmd.Wait()
	exitCode := extractExitCode(waitErr)
	uptime := h.Uptime()
	h.finish(exitCode)

	s.logger.Info("sidecar_exited",
		"pid", h.PID(),
		"exit_code", exitCode,
		"uptime", uptime.String(),
	)

	// Stopped wins over exited when Terminate got there first
	s.stateMu.Lock()
	old := s.state
	if old == StateRunning {
		s.state = StateExited
	}
	newState := s.state
	s.stateMu.Unlock()
	if s.callbacks.OnStateChange != nil && old != newState {
		s.callbacks.OnStateChange(old, newState)
	}

	if s.callbacks.OnExit != nil {
		s.callbacks.OnExit(h.PID(), exitCode, uptime)
	}
}

// Current returns the held handle without taking it.
func (s *Supervisor) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Take removes and returns the held handle, nil when empty.
func (s *Supervisor) Take() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handle
	s.handle = nil
	return h
}

// Terminate takes the held handle and kills it. Errors are swallowed since
// the process may already be gone. It reports whether a handle was held;
// calling it again is a no-op.
func (s *Supervisor) Terminate() bool {
	h := s.Take()
	if h == nil {
		s.logger.Debug("sidecar_not_running")
		return false
	}

	if err := h.Kill(); err != nil {
		s.logger.Debug("sidecar_kill_error", "pid", h.PID(), "error", err)
	}
	s.setState(StateStopped)
	s.logger.Info("sidecar_killed", "pid", h.PID())
	return true
}

// Logs returns the diagnostics ring contents.
func (s *Supervisor) Logs() string {
	if ring := s.output.Ring(); ring != nil {
		return ring.String()
	}
	return ""
}

// State returns the current state of the supervisor.
func (s *Supervisor) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// setState updates the state and calls the callback if registered.
func (s *Supervisor) setState(newState State) {
	s.stateMu.Lock()
	oldState := s.state
	s.state = newState
	s.stateMu.Unlock()

	if s.callbacks.OnStateChange != nil && oldState != newState {
		s.callbacks.OnStateChange(oldState, newState)
	}
}

// Launcher returns the launch strategy in use.
func (s *Supervisor) Launcher() process.Launcher {
	return s.launcher
}

// extractExitCode extracts the exit code from a Wait() error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}

	// Unknown error, assume exit code 1
	return 1
}
