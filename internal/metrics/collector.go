// Package metrics provides Prometheus metrics for go-sidecar-shell.
//
// Metrics cover three areas:
//   - Resolution: which backend was chosen, how long it took, what the user decided
//   - Probes: TCP and HTTP health probe results and latency
//   - Sidecar: process starts, exits, uptime and captured output
package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-sidecar-shell/internal/health"
)

const namespace = "sidecar_shell"

// Collector manages all Prometheus metrics for the shell.
type Collector struct {
	// --- Overview ---
	info          *prometheus.GaugeVec
	ready         prometheus.Gauge
	resolverState *prometheus.GaugeVec

	// --- Resolution ---
	resolutionsTotal  *prometheus.CounterVec
	resolutionSeconds prometheus.Histogram
	decisionsTotal    *prometheus.CounterVec

	// --- Probes ---
	probesTotal         *prometheus.CounterVec
	probeLatencySeconds *prometheus.HistogramVec

	// --- Sidecar ---
	sidecarRunning       prometheus.Gauge
	sidecarStartsTotal   prometheus.Counter
	sidecarExitsTotal    *prometheus.CounterVec
	sidecarUptimeSeconds prometheus.Histogram
	outputLinesTotal     *prometheus.CounterVec

	states []string

	startTime time.Time

	// For summary generation
	mu             sync.Mutex
	currentState   string
	endpoint       string
	failure        string
	resolutionTime time.Duration
	starts         int64
	exitCodes      map[int]int64
	uptimes        []time.Duration
	decisions      map[string]int64
	probes         map[string]int64
	lines          map[string]int64
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version    string
	LaunchMode string
	Port       int

	// States lists every resolver state name so the state gauge exposes
	// a complete one-hot set.
	States []string
}

// NewCollector creates a collector on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Information about the shell (value always 1)",
		}, []string{"version", "launch_mode", "port"}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 once a backend has been resolved successfully",
		}),
		resolverState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolver_state",
			Help:      "Current resolver state (1 for the active state)",
		}, []string{"state"}),

		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolution outcomes by result",
		}, []string{"result"}),
		resolutionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_seconds",
			Help:      "Time from start to a resolved outcome",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 7, 10, 30},
		}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "User decisions after a failed remote probe",
		}, []string{"decision"}),

		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Health probes by kind and result",
		}, []string{"kind", "result"}),
		probeLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_latency_seconds",
			Help:      "Health probe latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"kind"}),

		sidecarRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sidecar_running",
			Help:      "1 while an owned sidecar process is alive",
		}),
		sidecarStartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sidecar_starts_total",
			Help:      "Sidecar processes started",
		}),
		sidecarExitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sidecar_exits_total",
			Help:      "Sidecar exits by category (success, error, signal)",
		}, []string{"category"}),
		sidecarUptimeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sidecar_uptime_seconds",
			Help:      "Sidecar process lifetime",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 3600, 14400, 86400},
		}),
		outputLinesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_lines_total",
			Help:      "Sidecar output lines captured by stream",
		}, []string{"stream"}),

		states:    cfg.States,
		startTime: time.Now(),
		exitCodes: make(map[int]int64),
		decisions: make(map[string]int64),
		probes:    make(map[string]int64),
		lines:     make(map[string]int64),
	}

	registry.MustRegister(
		c.info,
		c.ready,
		c.resolverState,
		c.resolutionsTotal,
		c.resolutionSeconds,
		c.decisionsTotal,
		c.probesTotal,
		c.probeLatencySeconds,
		c.sidecarRunning,
		c.sidecarStartsTotal,
		c.sidecarExitsTotal,
		c.sidecarUptimeSeconds,
		c.outputLinesTotal,
	)

	c.info.WithLabelValues(cfg.Version, cfg.LaunchMode, strconv.Itoa(cfg.Port)).Set(1)
	for _, s := range c.states {
		c.resolverState.WithLabelValues(s).Set(0)
	}

	return c
}

// =============================================================================
// Resolution
// =============================================================================

// SetState marks name as the active resolver state.
func (c *Collector) SetState(name string) {
	c.mu.Lock()
	prev := c.currentState
	c.currentState = name
	c.mu.Unlock()

	if prev != "" {
		c.resolverState.WithLabelValues(prev).Set(0)
	}
	c.resolverState.WithLabelValues(name).Set(1)
}

// RecordDecision counts a user decision.
func (c *Collector) RecordDecision(decision string) {
	c.decisionsTotal.WithLabelValues(decision).Inc()

	c.mu.Lock()
	c.decisions[decision]++
	c.mu.Unlock()
}

// RecordResolved records the final outcome. result is one of "remote",
// "local", "already_running" or "failed".
func (c *Collector) RecordResolved(result, endpoint, failure string, elapsed time.Duration) {
	c.resolutionsTotal.WithLabelValues(result).Inc()
	c.resolutionSeconds.Observe(elapsed.Seconds())
	if failure == "" {
		c.ready.Set(1)
	}

	c.mu.Lock()
	c.endpoint = endpoint
	c.failure = failure
	c.resolutionTime = elapsed
	c.mu.Unlock()
}

// =============================================================================
// Probes
// =============================================================================

// ObserveProbe implements health.Observer.
func (c *Collector) ObserveProbe(kind health.Kind, healthy bool, latency time.Duration) {
	result := "unhealthy"
	if healthy {
		result = "healthy"
	}
	c.probesTotal.WithLabelValues(string(kind), result).Inc()
	c.probeLatencySeconds.WithLabelValues(string(kind)).Observe(latency.Seconds())

	c.mu.Lock()
	c.probes[string(kind)+"_"+result]++
	c.mu.Unlock()
}

// =============================================================================
// Sidecar
// =============================================================================

// SidecarStarted records a sidecar start.
func (c *Collector) SidecarStarted() {
	c.sidecarStartsTotal.Inc()
	c.sidecarRunning.Set(1)

	c.mu.Lock()
	c.starts++
	c.mu.Unlock()
}

// RecordExit records a sidecar exit.
func (c *Collector) RecordExit(exitCode int, uptime time.Duration) {
	c.sidecarExitsTotal.WithLabelValues(exitCategory(exitCode)).Inc()
	c.sidecarUptimeSeconds.Observe(uptime.Seconds())
	c.sidecarRunning.Set(0)

	c.mu.Lock()
	c.exitCodes[exitCode]++
	c.uptimes = append(c.uptimes, uptime)
	c.mu.Unlock()
}

// LineCaptured counts one captured output line.
func (c *Collector) LineCaptured(stream string) {
	c.outputLinesTotal.WithLabelValues(stream).Inc()

	c.mu.Lock()
	c.lines[stream]++
	c.mu.Unlock()
}

func exitCategory(code int) string {
	switch {
	case code == 0:
		return "success"
	case code > 128:
		return "signal"
	default:
		return "error"
	}
}

// =============================================================================
// Summary Generation
// =============================================================================

// Summary holds the data for generating an exit summary.
type Summary struct {
	Duration       time.Duration
	Endpoint       string
	Failure        string
	ResolutionTime time.Duration
	Starts         int64
	ExitCodes      map[int]int64
	Decisions      map[string]int64
	Probes         map[string]int64
	Lines          map[string]int64
	UptimeMax      time.Duration
}

// GenerateSummary creates a summary of the session.
func (c *Collector) GenerateSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Duration:       time.Since(c.startTime),
		Endpoint:       c.endpoint,
		Failure:        c.failure,
		ResolutionTime: c.resolutionTime,
		Starts:         c.starts,
		ExitCodes:      make(map[int]int64, len(c.exitCodes)),
		Decisions:      copyCounts(c.decisions),
		Probes:         copyCounts(c.probes),
		Lines:          copyCounts(c.lines),
	}
	for code, n := range c.exitCodes {
		s.ExitCodes[code] = n
	}
	if len(c.uptimes) > 0 {
		sorted := make([]time.Duration, len(c.uptimes))
		copy(sorted, c.uptimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		s.UptimeMax = sorted[len(sorted)-1]
	}
	return s
}

// Starts returns the number of sidecar starts.
func (c *Collector) Starts() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

// State returns the active resolver state name.
func (c *Collector) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentState
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
