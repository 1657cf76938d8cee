package config

import (
	"strings"

	"github.com/spf13/pflag"
)

// RegisterFlags defines the shell's flags on fs, defaulting to cfg's values.
// Flag names map to config keys by replacing dashes with underscores.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	// Sidecar
	fs.StringVar(&cfg.SidecarPath, "sidecar-path", cfg.SidecarPath, "Sidecar server binary")
	fs.StringSliceVar(&cfg.SidecarArgs, "sidecar-args", cfg.SidecarArgs, "Arguments before --port")
	fs.StringArrayVar(&cfg.SidecarEnv, "sidecar-env", cfg.SidecarEnv, "Extra sidecar environment variable KEY=VALUE (can repeat)")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Directory exported to the sidecar as XDG_STATE_HOME")
	fs.StringVar(&cfg.LaunchMode, "launch-mode", cfg.LaunchMode, `Launch strategy: "auto", "shell", "direct"`)
	fs.StringVar(&cfg.Shell, "shell", cfg.Shell, "Login shell for shell launch mode (default $SHELL)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Fixed sidecar port (0 = ephemeral)")
	fs.StringVar(&cfg.ClientName, "client-name", cfg.ClientName, "Client name exported to the sidecar")
	fs.BoolVar(&cfg.IconDiscovery, "icon-discovery", cfg.IconDiscovery, "Enable the sidecar's experimental icon discovery")

	// Resolution
	fs.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "Remote server for this run (overrides the stored default)")
	fs.StringVar(&cfg.SettingsPath, "settings", cfg.SettingsPath, "Settings file (default under the user config dir)")
	fs.StringVar(&cfg.OnRemoteFailure, "on-remote-failure", cfg.OnRemoteFailure,
		`When the remote server is unreachable: "prompt", "retry", "local", "cancel"`)
	fs.IntVar(&cfg.RemoteRetries, "remote-retries", cfg.RemoteRetries, "Automatic retries before falling back (with --on-remote-failure=retry)")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Local readiness poll interval")
	fs.DurationVar(&cfg.StartTimeout, "start-timeout", cfg.StartTimeout, "How long to wait for the local sidecar")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "Remote health check timeout")

	// Window
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run without the terminal UI")
	fs.BoolVar(&cfg.UpdaterEnabled, "updater", cfg.UpdaterEnabled, "Advertise the updater to the UI")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to this file")

	// Diagnostics
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the sidecar command and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
	fs.BoolVar(&cfg.StrictPreflight, "strict-preflight", cfg.StrictPreflight, "Fail on preflight check failures")
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	switch name {
	case "settings":
		return "settings_path"
	case "metrics":
		return "metrics_addr"
	case "updater":
		return "updater_enabled"
	}
	return strings.ReplaceAll(name, "-", "_")
}
