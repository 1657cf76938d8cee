package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-sidecar-shell/internal/config"
	"github.com/randomizedcoder/go-sidecar-shell/internal/logging"
	"github.com/randomizedcoder/go-sidecar-shell/internal/orchestrator"
	"github.com/randomizedcoder/go-sidecar-shell/internal/port"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "go-sidecar-shell",
		Short: "Start or connect to the backend server for the desktop UI",
		Long: `go-sidecar-shell resolves the backend server for a session. A configured
remote server is health checked first; otherwise a local sidecar is launched
on a loopback port and polled until it accepts connections.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cfgFile)
			if err != nil {
				return err
			}
			if cfg.PrintCmd {
				return printCommand(cmd.OutOrStdout(), cfg)
			}
			return runShell(cmd, cfg)
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	config.RegisterFlags(cmd.PersistentFlags(), config.DefaultConfig())

	cmd.AddCommand(
		newServerURLCmd(&cfgFile),
		newPrintCmdCmd(&cfgFile),
		newStatusCmd(&cfgFile),
	)
	return cmd
}

// loadConfig merges the config file, environment and flags and validates
// the result.
func loadConfig(cmd *cobra.Command, cfgFile string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func runShell(cmd *cobra.Command, cfg *config.Config) error {
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logging.SetDefault(logger)

	if !cfg.Headless {
		// Query the background color before Bubble Tea owns stdin so the
		// terminal's reply is not read as key input.
		_ = lipgloss.HasDarkBackground()
	}

	logger.Info("starting",
		"version", version,
		"sidecar_path", cfg.SidecarPath,
		"launch_mode", cfg.LaunchMode,
		"headless", cfg.Headless,
		"metrics_addr", cfg.MetricsAddr,
	)

	orch, err := orchestrator.New(cfg, logger, orchestrator.Deps{
		Version: version,
		Stdin:   cmd.InOrStdin(),
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if err := orch.Run(cmd.Context()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		return err
	}
	return nil
}

// newLogger picks the log destination. The TUI owns the terminal, so logs
// are discarded there unless a log file is given.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return logging.NewLoggerWithWriter(f, cfg.LogFormat, level), func() { _ = f.Close() }, nil
	}
	if !cfg.Headless {
		return logging.NewLoggerWithWriter(io.Discard, cfg.LogFormat, level), func() {}, nil
	}
	return logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose), func() {}, nil
}

func newPrintCmdCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "print-cmd",
		Short: "Print the command used to launch the sidecar and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			return printCommand(cmd.OutOrStdout(), cfg)
		},
	}
}

// printCommand prints the sidecar command that would be run.
func printCommand(w io.Writer, cfg *config.Config) error {
	launcher, err := orchestrator.NewLauncher(cfg)
	if err != nil {
		return err
	}
	p, err := port.Select(cfg.PortOverride())
	if err != nil {
		return fmt.Errorf("failed to select port: %w", err)
	}

	fmt.Fprintf(w, "# Sidecar command (%s launcher):\n", launcher.Name())
	fmt.Fprintln(w)
	fmt.Fprintln(w, launcher.CommandString(p))
	return nil
}
