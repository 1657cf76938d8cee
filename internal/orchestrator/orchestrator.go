package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-sidecar-shell/internal/config"
	"github.com/randomizedcoder/go-sidecar-shell/internal/health"
	"github.com/randomizedcoder/go-sidecar-shell/internal/logging"
	"github.com/randomizedcoder/go-sidecar-shell/internal/metrics"
	"github.com/randomizedcoder/go-sidecar-shell/internal/port"
	"github.com/randomizedcoder/go-sidecar-shell/internal/preflight"
	"github.com/randomizedcoder/go-sidecar-shell/internal/process"
	"github.com/randomizedcoder/go-sidecar-shell/internal/readiness"
	"github.com/randomizedcoder/go-sidecar-shell/internal/resolver"
	"github.com/randomizedcoder/go-sidecar-shell/internal/settings"
	"github.com/randomizedcoder/go-sidecar-shell/internal/supervisor"
	"github.com/randomizedcoder/go-sidecar-shell/internal/tui"
)

// shutdownTimeout bounds how long Run waits for the resolver, the window
// and the metrics server once shutdown has begun.
const shutdownTimeout = 10 * time.Second

// Deps overrides collaborators. Zero fields are built from the config.
type Deps struct {
	Version string

	// Settings replaces the settings file named by the config.
	Settings resolver.SettingsReader

	// Prompter replaces the prompter chosen by on_remote_failure.
	Prompter resolver.Prompter

	// Registry receives the shell's metrics. Nil means a fresh registry.
	Registry *prometheus.Registry

	// Stdin feeds the console prompter in headless mode.
	Stdin io.Reader

	// Stdout receives the exit summary and, in headless mode, mirrored
	// sidecar output. Stderr receives preflight results and console prompts.
	Stdout io.Writer
	Stderr io.Writer

	// TeaOptions are passed to the Bubble Tea program.
	TeaOptions []tea.ProgramOption
}

// Orchestrator coordinates all components for one shell session.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger
	deps   Deps

	launcher  process.Launcher
	settings  resolver.SettingsReader
	ring      *logging.LogRing
	output    *logging.OutputHandler
	broadcast *readiness.Broadcast
	registry  *prometheus.Registry

	// Built by Run once the port is known.
	port          int
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	prober        *health.Prober
	supervisor    *supervisor.Supervisor
	resolver      *resolver.Resolver
	shell         *tui.Shell
	window        resolver.Window

	lastPID   atomic.Int64
	startTime time.Time
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	launcher, err := NewLauncher(cfg)
	if err != nil {
		return nil, err
	}

	store := deps.Settings
	if store == nil {
		s, err := OpenSettings(cfg.SettingsPath)
		if err != nil {
			return nil, err
		}
		store = s
	}
	if cfg.ServerURL != "" {
		store = overrideSettings{base: store, url: cfg.ServerURL}
	}

	ring := logging.NewLogRing(0)

	// The TUI owns the terminal, so sidecar output is only mirrored when
	// running headless.
	var stdout, stderr io.Writer
	if cfg.Headless {
		stdout, stderr = deps.Stdout, deps.Stderr
	}

	return &Orchestrator{
		config:    cfg,
		logger:    logger,
		deps:      deps,
		launcher:  launcher,
		settings:  store,
		ring:      ring,
		output:    logging.NewOutputHandler(ring, logger, stdout, stderr, cfg.Verbose),
		broadcast: readiness.NewBroadcast(),
		registry:  deps.Registry,
	}, nil
}

// NewLauncher builds the sidecar launcher described by cfg.
func NewLauncher(cfg *config.Config) (process.Launcher, error) {
	sc := process.DefaultSidecarConfig(cfg.SidecarPath, cfg.StateDir)
	if len(cfg.SidecarArgs) > 0 {
		sc.Args = cfg.SidecarArgs
	}
	if cfg.ClientName != "" {
		sc.ClientName = cfg.ClientName
	}
	sc.IconDiscovery = cfg.IconDiscovery
	sc.ExtraEnv = cfg.SidecarEnv
	sc.Shell = cfg.Shell

	launcher, err := process.NewLauncher(process.LaunchMode(cfg.LaunchMode), sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create launcher: %w", err)
	}
	return launcher, nil
}

// OpenSettings opens the settings file at path, or the per-user default
// when path is empty.
func OpenSettings(path string) (*settings.Store, error) {
	if path == "" {
		p, err := settings.DefaultPath(config.AppName)
		if err != nil {
			return nil, fmt.Errorf("failed to locate settings: %w", err)
		}
		path = p
	}
	store, err := settings.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	return store, nil
}

// Run executes one session. It blocks until the window closes, the
// context is cancelled, a signal arrives or, when headless, resolution
// fails. The sidecar is always terminated before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	if !o.config.SkipPreflight {
		if err := o.preflight(); err != nil {
			return err
		}
	}

	p, err := port.Select(o.config.PortOverride())
	if err != nil {
		return fmt.Errorf("failed to select port: %w", err)
	}
	o.logger.Info("port_selected", "port", p, "fixed", o.config.PortOverride() > 0)
	o.wire(p)

	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	var (
		windowDone <-chan struct{}
		windowErr  = make(chan error, 1)
	)
	if o.shell != nil {
		windowDone = o.shell.Done()
		go func() { windowErr <- o.shell.Run() }()
	} else if err := o.window.Eval(resolver.InitScript(p, o.config.UpdaterEnabled)); err != nil {
		o.logger.Warn("window_eval_failed", "error", err)
	}

	resolved := make(chan readiness.Outcome, 1)
	go func() {
		resolved <- o.resolver.Run(ctx, o.broadcast)
	}()

	var (
		outcome     readiness.Outcome
		haveOutcome bool
	)

wait:
	for {
		select {
		case sig := <-sigCh:
			o.logger.Info("received_signal", "signal", sig.String())
			break wait
		case <-ctx.Done():
			o.logger.Info("context_cancelled")
			break wait
		case <-windowDone:
			o.logger.Info("window_closed")
			break wait
		case outcome = <-resolved:
			haveOutcome = true
			resolved = nil
			if o.shell != nil {
				o.shell.Resolved(outcome)
			}
			if !outcome.OK() && o.shell == nil {
				break wait
			}
		}
	}

	// Cancel context to stop an in-flight resolution
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if !haveOutcome {
		select {
		case outcome = <-resolved:
			haveOutcome = true
		case <-shutdownCtx.Done():
			o.logger.Warn("resolver_shutdown_timeout")
		}
	}

	// The resolver has stopped spawning, so whatever the supervisor holds
	// now is the last sidecar of the session.
	o.supervisor.Terminate()

	var errs []error
	if o.shell != nil {
		o.shell.Quit()
		select {
		case <-windowDone:
			if err := <-windowErr; err != nil {
				errs = append(errs, fmt.Errorf("window: %w", err))
			}
		case <-shutdownCtx.Done():
			o.logger.Warn("window_shutdown_timeout")
		}
	}

	if o.metricsServer != nil {
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
	}

	o.printExitSummary(o.deps.Stdout)

	if haveOutcome && !outcome.OK() && !errors.Is(outcome.Err, context.Canceled) {
		errs = append(errs, outcome.Err)
	}
	return errors.Join(errs...)
}

// preflight runs the checks and prints them. Failures only abort the run
// with --strict-preflight.
func (o *Orchestrator) preflight() error {
	opts := preflight.Options{
		SidecarPath: o.config.SidecarPath,
		StateDir:    o.config.StateDir,
		Port:        o.config.PortOverride(),
	}
	if sl, ok := o.launcher.(*process.ShellLauncher); ok {
		opts.Shell = sl.Shell()
	}

	result := preflight.RunAll(opts)
	preflight.PrintResults(o.deps.Stderr, result)
	if result.Passed {
		return nil
	}
	if o.config.StrictPreflight {
		return fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
	}
	o.logger.Warn("preflight_failed", "strict", false)
	return nil
}

// wire builds the port-dependent components.
func (o *Orchestrator) wire(p int) {
	o.port = p

	states := resolver.States()
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = s.String()
	}
	o.metrics = metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version:    o.deps.Version,
		LaunchMode: o.launcher.Name(),
		Port:       p,
		States:     names,
	}, o.registry)

	if o.config.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(metrics.ServerConfig{
			Addr:      o.config.MetricsAddr,
			Gatherer:  o.registry,
			Readiness: o.broadcast,
			Logs:      o.ring,
		}, o.logger)
	}

	o.prober = health.NewProber(health.Config{
		HTTPTimeout: o.config.HTTPTimeout,
		Observer:    o.metrics,
	})

	o.supervisor = supervisor.New(supervisor.Config{
		Launcher: o.launcher,
		Output:   o.output,
		Logger:   o.logger,
		Callbacks: supervisor.Callbacks{
			OnStart: o.onStart,
			OnExit:  o.onExit,
			OnLine:  o.onLine,
		},
	})

	if o.config.Headless {
		o.window = newConsoleWindow(o.logger)
	} else {
		o.shell = tui.NewShell(tui.Config{
			Version:     o.deps.Version,
			MetricsAddr: o.config.MetricsAddr,
			Logs:        o.ring,
			InitScript:  resolver.InitScript(p, o.config.UpdaterEnabled),
		}, append([]tea.ProgramOption{tea.WithAltScreen()}, o.deps.TeaOptions...)...)
		o.window = o.shell
	}

	o.resolver = resolver.New(resolver.Config{
		Port:         p,
		PollInterval: o.config.PollInterval,
		StartTimeout: o.config.StartTimeout,
		Settings:     o.settings,
		Prober:       o.prober,
		Spawner:      supervisorSpawner(o.supervisor),
		Prompter:     o.prompter(),
		Window:       o.window,
		Diagnostics:  o.ring,
		Logger:       o.logger,
		Callbacks: resolver.Callbacks{
			OnStateChange: o.onResolverState,
			OnDecision:    o.onDecision,
			OnResolved:    o.onResolved,
		},
	})
}

// prompter picks how an unhealthy remote server is handled.
func (o *Orchestrator) prompter() resolver.Prompter {
	if o.deps.Prompter != nil {
		return o.deps.Prompter
	}
	switch o.config.OnRemoteFailure {
	case "retry":
		return resolver.NewRetryPrompter(o.config.RemoteRetries, resolver.DecisionFallbackToLocal,
			time.Now().UnixNano(), resolver.DefaultBackoffConfig())
	case "local":
		return resolver.FixedPrompter{Decision: resolver.DecisionFallbackToLocal}
	case "cancel":
		return resolver.FixedPrompter{Decision: resolver.DecisionCancel}
	}
	if o.shell != nil {
		return o.shell
	}
	return resolver.NewConsolePrompter(o.deps.Stdin, o.deps.Stderr)
}

// supervisorSpawner adapts the supervisor to resolver.Spawner. A nil
// *Handle must not be returned inside a non-nil interface.
func supervisorSpawner(s *supervisor.Supervisor) resolver.Spawner {
	return resolver.SpawnFunc(func(p int) (readiness.Killer, error) {
		h, err := s.Spawn(p)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
}

// EnsureServerStarted blocks until resolution has finished. It returns the
// failure reason when resolution failed.
func (o *Orchestrator) EnsureServerStarted(ctx context.Context) error {
	return o.broadcast.EnsureReady(ctx)
}

// Callback handlers

func (o *Orchestrator) onResolverState(_, next resolver.State) {
	o.metrics.SetState(next.String())
	if o.shell != nil {
		o.shell.SetState(next.String())
	}
}

func (o *Orchestrator) onDecision(d resolver.Decision) {
	o.metrics.RecordDecision(d.String())
}

func (o *Orchestrator) onResolved(out readiness.Outcome, elapsed time.Duration) {
	o.metrics.RecordResolved(resultLabel(out), out.Endpoint.String(), out.Reason(), elapsed)
}

func (o *Orchestrator) onStart(pid int) {
	o.metrics.SidecarStarted()
	o.lastPID.Store(int64(pid))
	if o.config.Verbose {
		o.logger.Debug("sidecar_process_started", "pid", pid)
	}
}

func (o *Orchestrator) onExit(pid int, exitCode int, uptime time.Duration) {
	o.metrics.RecordExit(exitCode, uptime)
}

func (o *Orchestrator) onLine(stream logging.Stream) {
	o.metrics.LineCaptured(stream.String())
}

// resultLabel maps an outcome to the resolutions_total label.
func resultLabel(out readiness.Outcome) string {
	switch {
	case !out.OK():
		return "failed"
	case out.Endpoint.Kind == readiness.KindRemote:
		return "remote"
	case out.Process == nil:
		return "already_running"
	default:
		return "local"
	}
}

// Port returns the selected sidecar port, 0 before Run.
func (o *Orchestrator) Port() int {
	return o.port
}

// Broadcast returns the readiness broadcast for external access.
func (o *Orchestrator) Broadcast() *readiness.Broadcast {
	return o.broadcast
}

// Metrics returns the metrics collector, nil before Run.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Logs returns the captured sidecar output.
func (o *Orchestrator) Logs() string {
	return o.ring.String()
}
