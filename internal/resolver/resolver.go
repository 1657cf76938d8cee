package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randomizedcoder/go-sidecar-shell/internal/readiness"
	"github.com/randomizedcoder/go-sidecar-shell/internal/settings"
)

const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultStartTimeout = 7 * time.Second
)

// SettingsReader reads persisted user settings.
type SettingsReader interface {
	Get(key string) (string, bool)
}

// Prober checks whether a server is reachable.
type Prober interface {
	TCPReachable(ctx context.Context, port int) bool
	HTTPHealthy(ctx context.Context, baseURL string) bool
}

// Spawner launches the local sidecar on a port.
type Spawner interface {
	Spawn(port int) (readiness.Killer, error)
}

// SpawnFunc adapts a function to Spawner.
type SpawnFunc func(port int) (readiness.Killer, error)

func (f SpawnFunc) Spawn(port int) (readiness.Killer, error) {
	return f(port)
}

// Diagnostics renders captured sidecar output.
type Diagnostics interface {
	String() string
}

// Callbacks observe resolution progress. All fields are optional.
type Callbacks struct {
	OnStateChange func(old, next State)
	OnDecision    func(d Decision)
	OnResolved    func(o readiness.Outcome, elapsed time.Duration)
}

// Config configures a Resolver.
type Config struct {
	Port         int
	PollInterval time.Duration
	StartTimeout time.Duration
	SettingsKey  string

	Settings    SettingsReader
	Prober      Prober
	Spawner     Spawner
	Prompter    Prompter
	Window      Window
	Diagnostics Diagnostics
	Logger      *slog.Logger
	Callbacks   Callbacks
}

// Resolver decides which server the UI talks to and, when needed, starts
// and waits for the local sidecar.
type Resolver struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a Resolver. Zero durations take their defaults.
func New(cfg Config) *Resolver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = DefaultStartTimeout
	}
	if cfg.SettingsKey == "" {
		cfg.SettingsKey = settings.DefaultServerURLKey
	}
	if cfg.Prompter == nil {
		cfg.Prompter = FixedPrompter{Decision: DecisionFallbackToLocal}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cfg:    cfg,
		logger: logger.With("component", "resolver"),
		state:  StateInit,
	}
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) setState(next State) {
	r.mu.Lock()
	old := r.state
	r.state = next
	r.mu.Unlock()

	if old == next {
		return
	}
	r.logger.Debug("resolver_state", "from", old.String(), "to", next.String())
	if r.cfg.Callbacks.OnStateChange != nil {
		r.cfg.Callbacks.OnStateChange(old, next)
	}
}

// Run resolves, notifies the window on success and publishes the outcome.
func (r *Resolver) Run(ctx context.Context, b *readiness.Broadcast) readiness.Outcome {
	o := r.Resolve(ctx)

	if o.OK() && r.cfg.Window != nil {
		if err := r.cfg.Window.Eval(ReadyScript()); err != nil {
			r.logger.Warn("window_eval_failed", "error", err)
		}
		if o.Endpoint.Kind == readiness.KindRemote {
			if err := r.cfg.Window.Eval(ServerURLScript(o.Endpoint.URL)); err != nil {
				r.logger.Warn("window_eval_failed", "error", err)
			}
		}
	}

	if b != nil && !b.Publish(o) {
		r.logger.Warn("outcome_already_published")
	}
	return o
}

// Resolve runs the state machine to completion and returns the outcome.
func (r *Resolver) Resolve(ctx context.Context) readiness.Outcome {
	start := time.Now()
	r.setState(StateInit)

	o := r.resolve(ctx)

	r.setState(StateResolved)
	elapsed := time.Since(start)
	if o.OK() {
		r.logger.Info("server_resolved",
			"endpoint", o.Endpoint.String(),
			"elapsed", elapsed,
		)
	} else {
		r.logger.Error("server_resolution_failed",
			"error", o.Err,
			"elapsed", elapsed,
		)
	}
	if r.cfg.Callbacks.OnResolved != nil {
		r.cfg.Callbacks.OnResolved(o, elapsed)
	}
	return o
}

func (r *Resolver) resolve(ctx context.Context) readiness.Outcome {
	url, ok := r.configuredURL()
	if !ok {
		if r.cfg.Prober.TCPReachable(ctx, r.cfg.Port) {
			r.logger.Info("sidecar_already_running", "port", r.cfg.Port)
			return readiness.Ok(readiness.Local(r.cfg.Port), nil)
		}
		return r.startLocal(ctx)
	}

	r.logger.Info("configured_server_url", "url", url)
	for {
		if err := ctx.Err(); err != nil {
			return readiness.Failed(err)
		}

		r.setState(StateProbeRemote)
		if r.cfg.Prober.HTTPHealthy(ctx, url) {
			r.setState(StateRemoteHealthy)
			r.logger.Info("remote_server_healthy", "url", url)
			return readiness.Ok(readiness.Remote(url), nil)
		}
		r.setState(StateRemoteUnhealthy)
		r.logger.Warn("remote_server_unhealthy", "url", url)

		r.setState(StateUserDecision)
		d, err := r.cfg.Prompter.Ask(ctx, NewRemoteFailurePrompt(url))
		if err != nil {
			r.logger.Warn("prompt_failed", "error", err)
			d = DecisionCancel
		}
		r.logger.Info("user_decision", "decision", d.String())
		if r.cfg.Callbacks.OnDecision != nil {
			r.cfg.Callbacks.OnDecision(d)
		}

		switch d {
		case DecisionRetry:
			continue
		case DecisionFallbackToLocal:
			return r.startLocal(ctx)
		default:
			return readiness.Failed(ErrUserCancelled)
		}
	}
}

func (r *Resolver) configuredURL() (string, bool) {
	if r.cfg.Settings == nil {
		return "", false
	}
	url, ok := r.cfg.Settings.Get(r.cfg.SettingsKey)
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

func (r *Resolver) startLocal(ctx context.Context) readiness.Outcome {
	r.setState(StateSpawnLocal)
	proc, err := r.cfg.Spawner.Spawn(r.cfg.Port)
	if err != nil {
		return readiness.Failed(&SpawnError{Err: err})
	}

	r.setState(StatePollLocal)
	start := time.Now()
	for {
		if time.Since(start) > r.cfg.StartTimeout {
			r.setState(StateLocalTimeout)
			return readiness.Failed(&StartTimeoutError{
				Timeout: r.cfg.StartTimeout,
				Logs:    r.logs(),
			})
		}

		if !sleep(ctx, r.cfg.PollInterval) {
			return readiness.Failed(ctx.Err())
		}

		if r.cfg.Prober.TCPReachable(ctx, r.cfg.Port) {
			// One more interval so the listener is fully accepting.
			if !sleep(ctx, r.cfg.PollInterval) {
				return readiness.Failed(ctx.Err())
			}
			r.setState(StateLocalReady)
			r.logger.Info("server_ready",
				"port", r.cfg.Port,
				"elapsed", time.Since(start),
			)
			return readiness.Ok(readiness.Local(r.cfg.Port), proc)
		}
	}
}

func (r *Resolver) logs() string {
	if r.cfg.Diagnostics == nil {
		return ""
	}
	return r.cfg.Diagnostics.String()
}
