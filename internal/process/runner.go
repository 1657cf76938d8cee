// Package process builds the command used to launch the backend sidecar.
//
// Two launch strategies exist. ShellLauncher runs the sidecar through the
// user's login shell so PATH and version managers from shell profiles are
// honored. DirectLauncher execs the bundled binary as-is. The platform
// default is chosen at build time by NewPlatformLauncher.
package process

import (
	"fmt"
	"os/exec"
)

// Launcher creates ready-to-start sidecar commands.
// This interface allows the supervisor to be launch-strategy agnostic.
type Launcher interface {
	// BuildCommand returns a command that serves on the given port.
	// The command must NOT be started yet.
	BuildCommand(port int) (*exec.Cmd, error)

	// CommandString renders the command for diagnostics (--print-cmd).
	CommandString(port int) string

	// Name returns a human-readable name for this strategy.
	Name() string
}

// LaunchMode selects a Launcher.
type LaunchMode string

const (
	// LaunchAuto picks the platform default.
	LaunchAuto LaunchMode = "auto"

	// LaunchShell wraps the sidecar in an interactive login shell.
	LaunchShell LaunchMode = "shell"

	// LaunchDirect execs the sidecar binary directly.
	LaunchDirect LaunchMode = "direct"
)

// NewLauncher returns the launcher for mode.
func NewLauncher(mode LaunchMode, cfg *SidecarConfig) (Launcher, error) {
	switch mode {
	case LaunchAuto, "":
		return NewPlatformLauncher(cfg), nil
	case LaunchShell:
		return NewShellLauncher(cfg), nil
	case LaunchDirect:
		return NewDirectLauncher(cfg), nil
	default:
		return nil, fmt.Errorf("unknown launch mode %q", mode)
	}
}
