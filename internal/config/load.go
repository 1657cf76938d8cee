package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SIDECAR_SHELL_LAUNCH_MODE.
const EnvPrefix = "SIDECAR_SHELL"

// Load merges defaults, an optional YAML config file, SIDECAR_SHELL_*
// environment variables and flags that were set on fs, in increasing
// priority. A missing file is an error only when path is non-empty.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	setDefaults(v, defaults)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || f.Name == "help" || f.Name == "version" {
				return
			}
			if err := v.BindPFlag(flagKey(f.Name), f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("sidecar_path", d.SidecarPath)
	v.SetDefault("sidecar_args", d.SidecarArgs)
	v.SetDefault("sidecar_env", d.SidecarEnv)
	v.SetDefault("state_dir", d.StateDir)
	v.SetDefault("launch_mode", d.LaunchMode)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("port", d.Port)
	v.SetDefault("client_name", d.ClientName)
	v.SetDefault("icon_discovery", d.IconDiscovery)

	v.SetDefault("server_url", d.ServerURL)
	v.SetDefault("settings_path", d.SettingsPath)
	v.SetDefault("on_remote_failure", d.OnRemoteFailure)
	v.SetDefault("remote_retries", d.RemoteRetries)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("start_timeout", d.StartTimeout)
	v.SetDefault("http_timeout", d.HTTPTimeout)

	v.SetDefault("headless", d.Headless)
	v.SetDefault("updater_enabled", d.UpdaterEnabled)

	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", d.LogFile)

	v.SetDefault("print_cmd", d.PrintCmd)
	v.SetDefault("skip_preflight", d.SkipPreflight)
	v.SetDefault("strict_preflight", d.StrictPreflight)
}
