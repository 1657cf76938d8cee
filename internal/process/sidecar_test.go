package process

import (
	"runtime"
	"strings"
	"testing"
)

func newTestSidecarConfig() *SidecarConfig {
	return &SidecarConfig{
		BinaryPath:    "/opt/app/bin/sidecar-server",
		Args:          []string{"serve"},
		StateDir:      "/home/u/.local/share/app",
		ClientName:    "desktop",
		SessionID:     "0b6c4d8e-1111-2222-3333-444455556666",
		IconDiscovery: true,
	}
}

func TestPortArg(t *testing.T) {
	if got := PortArg(4096); got != "--port=4096" {
		t.Errorf("PortArg = %q", got)
	}
}

func TestDefaultSidecarConfig(t *testing.T) {
	a := DefaultSidecarConfig("sidecar", "/state")
	b := DefaultSidecarConfig("sidecar", "/state")

	if a.ClientName != "desktop" {
		t.Errorf("ClientName = %q", a.ClientName)
	}
	if len(a.Args) != 1 || a.Args[0] != "serve" {
		t.Errorf("Args = %v", a.Args)
	}
	if a.SessionID == "" || a.SessionID == b.SessionID {
		t.Errorf("session ids should be unique and non-empty: %q %q", a.SessionID, b.SessionID)
	}
}

func TestSidecarConfig_Environ(t *testing.T) {
	t.Setenv("SIDECAR_SHELL_TEST_MARKER", "inherited")

	cfg := newTestSidecarConfig()
	cfg.ExtraEnv = []string{"FOO=bar"}
	env := cfg.Environ()

	want := []string{
		"SIDECAR_SHELL_TEST_MARKER=inherited",
		"SIDECAR_CLIENT=desktop",
		"SIDECAR_CLIENT_SESSION=0b6c4d8e-1111-2222-3333-444455556666",
		"SIDECAR_EXPERIMENTAL_ICON_DISCOVERY=true",
		"XDG_STATE_HOME=/home/u/.local/share/app",
		"FOO=bar",
	}
	joined := strings.Join(env, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("environment missing %q", w)
		}
	}

	// Extra env is last so it overrides earlier entries
	if env[len(env)-1] != "FOO=bar" {
		t.Errorf("last env entry = %q", env[len(env)-1])
	}
}

func TestSidecarConfig_OwnEnv_Omissions(t *testing.T) {
	cfg := &SidecarConfig{BinaryPath: "x"}
	if env := cfg.ownEnv(); len(env) != 0 {
		t.Errorf("empty config should add no env, got %v", env)
	}
}

func TestShellQuote(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"serve", "serve"},
		{"--port=4096", "--port=4096"},
		{"/Applications/My App.app/sidecar", "'/Applications/My App.app/sidecar'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
		{"$HOME", "'$HOME'"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			if got := shellQuote(tc.in); got != tc.want {
				t.Errorf("shellQuote(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestShellLauncher_BuildCommand(t *testing.T) {
	cfg := newTestSidecarConfig()
	cfg.BinaryPath = "/Applications/My App.app/sidecar"
	cfg.Shell = "/bin/zsh"
	l := NewShellLauncher(cfg)

	cmd, err := l.BuildCommand(4096)
	if err != nil {
		t.Fatalf("BuildCommand error: %v", err)
	}

	if cmd.Path != "/bin/zsh" && !strings.HasSuffix(cmd.Path, "zsh") {
		t.Errorf("Path = %q, want zsh", cmd.Path)
	}
	wantArgs := []string{"/bin/zsh", "-il", "-c", "'/Applications/My App.app/sidecar' serve --port=4096"}
	if len(cmd.Args) != len(wantArgs) {
		t.Fatalf("Args = %q, want %q", cmd.Args, wantArgs)
	}
	for i := range wantArgs {
		if cmd.Args[i] != wantArgs[i] {
			t.Errorf("Args[%d] = %q, want %q", i, cmd.Args[i], wantArgs[i])
		}
	}
	if cmd.Process != nil {
		t.Error("command must not be started")
	}
}

func TestShellLauncher_DefaultShell(t *testing.T) {
	t.Setenv("SHELL", "")
	l := NewShellLauncher(newTestSidecarConfig())
	if l.Shell() != "/bin/sh" {
		t.Errorf("Shell() = %q, want /bin/sh", l.Shell())
	}

	t.Setenv("SHELL", "/usr/bin/fish")
	if l.Shell() != "/usr/bin/fish" {
		t.Errorf("Shell() = %q, want $SHELL", l.Shell())
	}
}

func TestDirectLauncher_BuildCommand(t *testing.T) {
	l := NewDirectLauncher(newTestSidecarConfig())

	cmd, err := l.BuildCommand(5173)
	if err != nil {
		t.Fatalf("BuildCommand error: %v", err)
	}

	wantArgs := []string{"/opt/app/bin/sidecar-server", "serve", "--port=5173"}
	if strings.Join(cmd.Args, " ") != strings.Join(wantArgs, " ") {
		t.Errorf("Args = %q, want %q", cmd.Args, wantArgs)
	}
}

func TestLaunchers_EmptyBinary(t *testing.T) {
	cfg := &SidecarConfig{}
	if _, err := NewDirectLauncher(cfg).BuildCommand(1); err == nil {
		t.Error("direct launcher should reject empty binary path")
	}
	if _, err := NewShellLauncher(cfg).BuildCommand(1); err == nil {
		t.Error("shell launcher should reject empty binary path")
	}
}

func TestCommandString(t *testing.T) {
	cfg := newTestSidecarConfig()
	cfg.Shell = "/bin/bash"

	shell := NewShellLauncher(cfg).CommandString(4096)
	if !strings.Contains(shell, "/bin/bash -il -c '/opt/app/bin/sidecar-server serve --port=4096'") {
		t.Errorf("shell CommandString = %q", shell)
	}
	if !strings.HasPrefix(shell, "SIDECAR_EXPERIMENTAL_ICON_DISCOVERY=true ") {
		t.Errorf("shell CommandString should start with env: %q", shell)
	}

	direct := NewDirectLauncher(cfg).CommandString(4096)
	if !strings.HasSuffix(direct, "/opt/app/bin/sidecar-server serve --port=4096") {
		t.Errorf("direct CommandString = %q", direct)
	}
}

func TestNewLauncher(t *testing.T) {
	cfg := newTestSidecarConfig()

	testCases := []struct {
		mode     LaunchMode
		wantName string
		wantErr  bool
	}{
		{LaunchShell, "shell", false},
		{LaunchDirect, "direct", false},
		{"bogus", "", true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.mode), func(t *testing.T) {
			l, err := NewLauncher(tc.mode, cfg)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLauncher error: %v", err)
			}
			if l.Name() != tc.wantName {
				t.Errorf("Name() = %q, want %q", l.Name(), tc.wantName)
			}
		})
	}

	auto, err := NewLauncher(LaunchAuto, cfg)
	if err != nil {
		t.Fatalf("auto: %v", err)
	}
	want := "shell"
	if runtime.GOOS == "windows" {
		want = "direct"
	}
	if auto.Name() != want {
		t.Errorf("auto launcher = %q, want %q", auto.Name(), want)
	}
}
