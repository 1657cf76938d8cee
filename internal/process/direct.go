package process

import (
	"errors"
	"os/exec"
	"strings"
)

// DirectLauncher execs the bundled sidecar binary directly.
type DirectLauncher struct {
	config *SidecarConfig
}

// NewDirectLauncher creates a direct launcher.
func NewDirectLauncher(cfg *SidecarConfig) *DirectLauncher {
	return &DirectLauncher{config: cfg}
}

// Name returns "direct".
func (l *DirectLauncher) Name() string {
	return "direct"
}

// BuildCommand creates an exec.Cmd running the binary with the port argument.
func (l *DirectLauncher) BuildCommand(port int) (*exec.Cmd, error) {
	if l.config.BinaryPath == "" {
		return nil, errors.New("sidecar binary path is empty")
	}
	cmd := exec.Command(l.config.BinaryPath, l.config.argv(port)...)
	cmd.Env = l.config.Environ()
	ConfigureProcessGroup(cmd)
	return cmd, nil
}

// CommandString returns the command that would be executed.
func (l *DirectLauncher) CommandString(port int) string {
	parts := []string{shellQuote(l.config.BinaryPath)}
	for _, a := range l.config.argv(port) {
		parts = append(parts, shellQuote(a))
	}
	return envPrefix(l.config) + strings.Join(parts, " ")
}

// envPrefix renders the added environment for CommandString.
func envPrefix(c *SidecarConfig) string {
	var b strings.Builder
	for _, kv := range c.ownEnv() {
		b.WriteString(shellQuote(kv))
		b.WriteByte(' ')
	}
	return b.String()
}
