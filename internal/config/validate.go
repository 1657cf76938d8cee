package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.SidecarPath) == "" {
		errs = append(errs, ValidationError{
			Field:   "sidecar_path",
			Message: "must not be empty",
		})
	}

	switch cfg.LaunchMode {
	case "auto", "shell", "direct":
	default:
		errs = append(errs, ValidationError{
			Field:   "launch_mode",
			Message: fmt.Sprintf("must be auto, shell or direct (got %q)", cfg.LaunchMode),
		})
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "port",
			Message: fmt.Sprintf("must be between 0 and 65535 (got %d)", cfg.Port),
		})
	}

	if cfg.ServerURL != "" {
		if err := validateURL(cfg.ServerURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server_url",
				Message: err.Error(),
			})
		}
	}

	switch cfg.OnRemoteFailure {
	case "prompt", "retry", "local", "cancel":
	default:
		errs = append(errs, ValidationError{
			Field:   "on_remote_failure",
			Message: fmt.Sprintf("must be prompt, retry, local or cancel (got %q)", cfg.OnRemoteFailure),
		})
	}

	if cfg.RemoteRetries < 0 {
		errs = append(errs, ValidationError{
			Field:   "remote_retries",
			Message: "must not be negative",
		})
	}

	if cfg.PollInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "poll_interval",
			Message: "must be positive",
		})
	}

	if cfg.StartTimeout < cfg.PollInterval {
		errs = append(errs, ValidationError{
			Field:   "start_timeout",
			Message: fmt.Sprintf("must be at least the poll interval (%v)", cfg.PollInterval),
		})
	}

	if cfg.HTTPTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "http_timeout",
			Message: "must be positive",
		})
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be json or text (got %q)", cfg.LogFormat),
		})
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("unknown level %q", cfg.LogLevel),
		})
	}

	if cfg.SkipPreflight && cfg.StrictPreflight {
		errs = append(errs, ValidationError{
			Field:   "strict_preflight",
			Message: "cannot be combined with skip_preflight",
		})
	}

	for _, kv := range cfg.SidecarEnv {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			errs = append(errs, ValidationError{
				Field:   "sidecar_env",
				Message: fmt.Sprintf("expected KEY=VALUE, got %q", kv),
			})
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateURL checks if the URL is valid and uses http or https.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https (got %q)", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must have a host")
	}

	return nil
}
