// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
)

// MinFileDescriptors is the soft limit below which the fd check fails.
// The sidecar, its shell, pipes and probes all hold descriptors.
const MinFileDescriptors = 256

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options describe what the shell is about to do.
type Options struct {
	SidecarPath string
	Shell       string // empty when launching directly
	StateDir    string
	Port        int // 0 when an ephemeral port will be chosen
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 5),
		Passed: true,
	}
	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkFileDescriptors())
	add(checkSidecar(opts.SidecarPath, opts.Shell != ""))
	if opts.Shell != "" {
		add(checkShell(opts.Shell))
	}
	add(checkStateDir(opts.StateDir))
	if opts.Port > 0 {
		add(checkPort(opts.Port))
	}

	return result
}

// checkFileDescriptors verifies the soft fd limit.
func checkFileDescriptors() Check {
	actual, ok := fileDescriptorLimit()
	if !ok {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check on this platform",
		}
	}
	return Check{
		Name:     "file_descriptors",
		Required: MinFileDescriptors,
		Actual:   actual,
		Passed:   actual >= MinFileDescriptors,
		Message:  fmt.Sprintf("ulimit -n %d (need %d)", actual, MinFileDescriptors),
	}
}

// checkSidecar verifies the sidecar binary resolves on PATH. Under a login
// shell the user's profile may extend PATH, so a miss is only a warning.
func checkSidecar(path string, viaShell bool) Check {
	if path == "" {
		return Check{Name: "sidecar", Passed: false, Message: "no sidecar binary configured"}
	}
	found, err := exec.LookPath(path)
	if err != nil {
		if viaShell {
			return Check{
				Name:    "sidecar",
				Passed:  true,
				Warning: true,
				Message: fmt.Sprintf("%s not on PATH (login shell may still find it)", path),
			}
		}
		return Check{
			Name:    "sidecar",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}
	return Check{
		Name:    "sidecar",
		Passed:  true,
		Message: "found at " + found,
	}
}

// checkShell verifies the login shell is executable.
func checkShell(shell string) Check {
	found, err := exec.LookPath(shell)
	if err != nil {
		return Check{
			Name:    "shell",
			Passed:  false,
			Message: fmt.Sprintf("%s: %v", shell, err),
		}
	}
	return Check{Name: "shell", Passed: true, Message: found}
}

// checkStateDir verifies the sidecar state directory is writable.
func checkStateDir(dir string) Check {
	if dir == "" {
		return Check{Name: "state_dir", Passed: true, Warning: true, Message: "not set"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "state_dir", Passed: false, Message: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{Name: "state_dir", Passed: false, Message: fmt.Sprintf("%s not writable: %v", dir, err)}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return Check{Name: "state_dir", Passed: true, Message: dir + " writable"}
}

// checkPort reports whether a fixed port is free. A busy port is only a
// warning: a server already listening there is reused.
func checkPort(port int) Check {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return Check{
			Name:    "port",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%d in use (an existing server will be reused)", port),
		}
	}
	ln.Close()
	return Check{Name: "port", Passed: true, Message: fmt.Sprintf("%d free", port)}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case "sidecar":
		return "install the sidecar binary or pass --sidecar-path"
	case "shell":
		return "set $SHELL or use --launch-mode=direct"
	case "state_dir":
		return "pass --state-dir pointing at a writable directory"
	default:
		return "see documentation"
	}
}
