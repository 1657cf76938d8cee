//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// NewPlatformLauncher returns the login-shell launcher. Outside windows
// there is no native sidecar mechanism and GUI-launched apps do not
// inherit the user's shell PATH.
func NewPlatformLauncher(cfg *SidecarConfig) Launcher {
	return NewShellLauncher(cfg)
}

// ConfigureProcessGroup puts the child in its own process group so the
// whole tree (shell wrapper included) can be signalled at once. Other
// attributes already set on cmd are kept.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pgid = 0
}

// KillTree sends SIGKILL to the process group led by p. A process that
// shares its group with someone else (the host, typically) is killed
// alone.
func KillTree(p *os.Process) error {
	if pgid, err := syscall.Getpgid(p.Pid); err == nil && pgid == p.Pid {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return p.Kill()
}
