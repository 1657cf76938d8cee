package process

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Environment variables passed to the sidecar.
const (
	// EnvClient identifies the kind of client that launched the server.
	EnvClient = "SIDECAR_CLIENT"

	// EnvClientSession is unique per shell launch.
	EnvClientSession = "SIDECAR_CLIENT_SESSION"

	// EnvIconDiscovery enables the server's experimental icon discovery.
	EnvIconDiscovery = "SIDECAR_EXPERIMENTAL_ICON_DISCOVERY"

	// EnvStateHome isolates the sidecar's state under the app data dir.
	EnvStateHome = "XDG_STATE_HOME"
)

// SidecarConfig holds configuration for launching the backend server.
type SidecarConfig struct {
	// BinaryPath is the path to the sidecar executable.
	BinaryPath string

	// Args precede the --port argument (e.g. "serve").
	Args []string

	// StateDir is exported as XDG_STATE_HOME.
	StateDir string

	// ClientName is exported as SIDECAR_CLIENT.
	ClientName string

	// SessionID is exported as SIDECAR_CLIENT_SESSION.
	SessionID string

	// IconDiscovery exports SIDECAR_EXPERIMENTAL_ICON_DISCOVERY=true.
	IconDiscovery bool

	// ExtraEnv entries ("KEY=value") are appended last and win.
	ExtraEnv []string

	// Shell is the login shell used by ShellLauncher. Empty means $SHELL.
	Shell string
}

// DefaultSidecarConfig returns a SidecarConfig with sensible defaults and a
// fresh session id.
func DefaultSidecarConfig(binaryPath, stateDir string) *SidecarConfig {
	return &SidecarConfig{
		BinaryPath:    binaryPath,
		Args:          []string{"serve"},
		StateDir:      stateDir,
		ClientName:    "desktop",
		SessionID:     uuid.NewString(),
		IconDiscovery: true,
	}
}

// PortArg formats the port argument understood by the sidecar.
func PortArg(port int) string {
	return fmt.Sprintf("--port=%d", port)
}

// argv returns the sidecar arguments for port, excluding the binary.
func (c *SidecarConfig) argv(port int) []string {
	args := make([]string, 0, len(c.Args)+1)
	args = append(args, c.Args...)
	return append(args, PortArg(port))
}

// Environ returns the child environment: the parent's environment plus the
// client identity and state directory variables.
func (c *SidecarConfig) Environ() []string {
	env := os.Environ()
	env = append(env, c.ownEnv()...)
	return env
}

// ownEnv returns only the variables the shell adds.
func (c *SidecarConfig) ownEnv() []string {
	var env []string
	if c.IconDiscovery {
		env = append(env, EnvIconDiscovery+"=true")
	}
	if c.ClientName != "" {
		env = append(env, EnvClient+"="+c.ClientName)
	}
	if c.SessionID != "" {
		env = append(env, EnvClientSession+"="+c.SessionID)
	}
	if c.StateDir != "" {
		env = append(env, EnvStateHome+"="+c.StateDir)
	}
	return append(env, c.ExtraEnv...)
}

// UserShell returns $SHELL, or /bin/sh when unset.
func UserShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
