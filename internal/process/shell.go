package process

import (
	"errors"
	"os/exec"
	"strings"
)

// ShellLauncher runs the sidecar as `$SHELL -il -c '<command>'` so the
// user's login and interactive profiles are sourced first.
type ShellLauncher struct {
	config *SidecarConfig
}

// NewShellLauncher creates a login-shell launcher.
func NewShellLauncher(cfg *SidecarConfig) *ShellLauncher {
	return &ShellLauncher{config: cfg}
}

// Name returns "shell".
func (l *ShellLauncher) Name() string {
	return "shell"
}

// Shell returns the shell that will wrap the sidecar.
func (l *ShellLauncher) Shell() string {
	if l.config.Shell != "" {
		return l.config.Shell
	}
	return UserShell()
}

// Script returns the single command string handed to the shell.
func (l *ShellLauncher) Script(port int) string {
	parts := []string{shellQuote(l.config.BinaryPath)}
	for _, a := range l.config.argv(port) {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// BuildCommand creates the shell-wrapped exec.Cmd.
func (l *ShellLauncher) BuildCommand(port int) (*exec.Cmd, error) {
	if l.config.BinaryPath == "" {
		return nil, errors.New("sidecar binary path is empty")
	}
	cmd := exec.Command(l.Shell(), "-il", "-c", l.Script(port))
	cmd.Env = l.config.Environ()
	ConfigureProcessGroup(cmd)
	return cmd, nil
}

// CommandString returns the command that would be executed.
func (l *ShellLauncher) CommandString(port int) string {
	return envPrefix(l.config) + l.Shell() + " -il -c " + shellQuote(l.Script(port))
}
