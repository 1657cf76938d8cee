//go:build windows

package process

import (
	"os"
	"os/exec"
)

// NewPlatformLauncher returns the direct launcher on windows, where the
// sidecar is bundled next to the shell executable.
func NewPlatformLauncher(cfg *SidecarConfig) Launcher {
	return NewDirectLauncher(cfg)
}

// ConfigureProcessGroup is a no-op on windows.
func ConfigureProcessGroup(cmd *exec.Cmd) {}

// KillTree kills the process.
func KillTree(p *os.Process) error {
	return p.Kill()
}
