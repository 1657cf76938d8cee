package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/go-sidecar-shell/internal/config"
	"github.com/randomizedcoder/go-sidecar-shell/internal/metrics"
	"github.com/randomizedcoder/go-sidecar-shell/internal/settings"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPort, "")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	require.Contains(t, out, version)
}

func TestServerURL_SetGetClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	out, err := execute(t, "server-url", "get", "--settings", path)
	require.NoError(t, err)
	require.Contains(t, out, "not set")

	out, err = execute(t, "server-url", "set", "https://example.com:4096", "--settings", path)
	require.NoError(t, err)
	require.Contains(t, out, "https://example.com:4096")

	store, err := settings.Open(path)
	require.NoError(t, err)
	got, ok := store.DefaultServerURL()
	require.True(t, ok, "url should be persisted")
	require.Equal(t, "https://example.com:4096", got)

	out, err = execute(t, "server-url", "get", "--settings", path)
	require.NoError(t, err)
	require.Equal(t, "https://example.com:4096", strings.TrimSpace(out))

	_, err = execute(t, "server-url", "clear", "--settings", path)
	require.NoError(t, err)

	out, err = execute(t, "server-url", "get", "--settings", path)
	require.NoError(t, err)
	require.Contains(t, out, "not set")
}

func TestServerURL_SetRejectsInvalidURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	_, err := execute(t, "server-url", "set", "ftp://example.com", "--settings", path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "invalid url must not create the settings file")
}

func TestServerURL_SetRequiresArgument(t *testing.T) {
	_, err := execute(t, "server-url", "set", "--settings", filepath.Join(t.TempDir(), "s.yaml"))
	require.Error(t, err)
}

func TestPrintCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"subcommand", []string{"print-cmd"}},
		{"flag", []string{"--print-cmd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args,
				"--launch-mode", "direct",
				"--sidecar-path", "/opt/sidecar",
				"--port", "4567",
			)
			out, err := execute(t, args...)
			require.NoError(t, err)
			require.Contains(t, out, "direct launcher")
			require.Contains(t, out, "/opt/sidecar")
			require.Contains(t, out, "--port=4567")
		})
	}
}

func TestPrintCmd_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "shell.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"launch_mode: direct\nsidecar_path: /usr/local/bin/backend\nport: 5001\n"), 0o644))

	out, err := execute(t, "print-cmd", "--config", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "/usr/local/bin/backend")
	require.Contains(t, out, "--port=5001")

	// Flags win over the file.
	out, err = execute(t, "print-cmd", "--config", cfgPath, "--port", "5002")
	require.NoError(t, err)
	require.Contains(t, out, "--port=5002")
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, err := execute(t, "--print-cmd", "--on-remote-failure", "shrug")
	require.Error(t, err)
	require.Contains(t, err.Error(), "on_remote_failure")
}

func TestStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version: "test", LaunchMode: "direct", Port: 4096,
		States: []string{"spawn_local", "resolved"},
	}, reg)
	c.SetState("spawn_local")
	c.SidecarStarted()
	c.SetState("resolved")
	c.RecordResolved("local", "local(4096)", "", 0)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(metrics.NewServer(metrics.ServerConfig{Gatherer: reg}, logger).Handler())
	defer srv.Close()

	out, err := execute(t, "status", "--metrics", strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	require.Contains(t, out, "State:            resolved")
	require.Contains(t, out, "Ready:            true")
	require.Contains(t, out, "Sidecar starts:   1")
	require.Contains(t, out, "Resolved (local): 1")
}

func TestStatus_RequiresMetricsAddr(t *testing.T) {
	_, err := execute(t, "status")
	require.Error(t, err)
}
