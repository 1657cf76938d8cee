// Package config provides configuration management for go-sidecar-shell.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/randomizedcoder/go-sidecar-shell/internal/port"
)

// AppName names the settings and state directories.
const AppName = "go-sidecar-shell"

// EnvPort overrides the sidecar port at runtime.
const EnvPort = "SIDECAR_PORT"

// BuildPort is a port fixed at build time:
//
//	go build -ldflags "-X github.com/randomizedcoder/go-sidecar-shell/internal/config.BuildPort=4096"
var BuildPort string

// Config holds all configuration options for the shell.
type Config struct {
	// Sidecar
	SidecarPath   string   `mapstructure:"sidecar_path"`
	SidecarArgs   []string `mapstructure:"sidecar_args"`
	SidecarEnv    []string `mapstructure:"sidecar_env"`
	StateDir      string   `mapstructure:"state_dir"`
	LaunchMode    string   `mapstructure:"launch_mode"` // auto, shell, direct
	Shell         string   `mapstructure:"shell"`       // empty = $SHELL
	Port          int      `mapstructure:"port"`        // 0 = ephemeral
	ClientName    string   `mapstructure:"client_name"`
	IconDiscovery bool     `mapstructure:"icon_discovery"`

	// Resolution
	ServerURL       string        `mapstructure:"server_url"` // overrides the stored default
	SettingsPath    string        `mapstructure:"settings_path"`
	OnRemoteFailure string        `mapstructure:"on_remote_failure"` // prompt, retry, local, cancel
	RemoteRetries   int           `mapstructure:"remote_retries"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	StartTimeout    time.Duration `mapstructure:"start_timeout"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`

	// Window
	Headless       bool `mapstructure:"headless"`
	UpdaterEnabled bool `mapstructure:"updater_enabled"`

	// Observability
	MetricsAddr string `mapstructure:"metrics_addr"` // empty = disabled
	Verbose     bool   `mapstructure:"verbose"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // json, text
	LogFile     string `mapstructure:"log_file"`

	// Diagnostic modes
	PrintCmd        bool `mapstructure:"print_cmd"`
	SkipPreflight   bool `mapstructure:"skip_preflight"`
	StrictPreflight bool `mapstructure:"strict_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Sidecar
		SidecarPath:   "sidecar",
		SidecarArgs:   []string{"serve"},
		StateDir:      defaultStateDir(),
		LaunchMode:    "auto",
		ClientName:    "desktop",
		IconDiscovery: true,

		// Resolution
		OnRemoteFailure: "prompt",
		RemoteRetries:   3,
		PollInterval:    10 * time.Millisecond,
		StartTimeout:    7 * time.Second,
		HTTPTimeout:     3 * time.Second,

		// Observability
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// defaultStateDir is the per-user directory handed to the sidecar as
// XDG_STATE_HOME.
func defaultStateDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

// PortOverride returns the fixed port, if any. The build-time port wins
// over the environment, which wins over the --port flag.
func (c *Config) PortOverride() int {
	flagPort := ""
	if c.Port > 0 {
		flagPort = strconv.Itoa(c.Port)
	}
	return port.FirstOverride(BuildPort, os.Getenv(EnvPort), flagPort)
}
