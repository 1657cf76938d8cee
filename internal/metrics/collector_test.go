package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/randomizedcoder/go-sidecar-shell/internal/health"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTestCollector creates a collector with a test registry.
func newTestCollector(cfg CollectorConfig) (*Collector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(cfg, registry)
	return c, registry
}

// findMetric returns the metric in family name whose labels include all of
// labels, or nil.
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for k, v := range labels {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == k && lp.GetValue() == v {
						found = true
						break
					}
				}
				if !found {
					continue metrics
				}
			}
			return m
		}
	}
	return nil
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := findMetric(t, reg, name, labels)
	if m == nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func testGaugeValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := findMetric(t, reg, name, labels)
	if m == nil {
		t.Fatalf("metric %s%v not found", name, labels)
	}
	return m.GetGauge().GetValue()
}

var testStates = []string{"init", "probe_remote", "spawn_local", "resolved"}

// =============================================================================
// Tests
// =============================================================================

func TestNewCollector(t *testing.T) {
	_, reg := newTestCollector(CollectorConfig{
		Version:    "1.2.3",
		LaunchMode: "shell",
		Port:       4096,
		States:     testStates,
	})

	info := map[string]string{"version": "1.2.3", "launch_mode": "shell", "port": "4096"}
	if got := testGaugeValue(t, reg, "sidecar_shell_info", info); got != 1 {
		t.Errorf("info = %v, want 1", got)
	}
	for _, s := range testStates {
		if got := testGaugeValue(t, reg, "sidecar_shell_resolver_state", map[string]string{"state": s}); got != 0 {
			t.Errorf("state %s = %v, want 0", s, got)
		}
	}
	if got := testGaugeValue(t, reg, "sidecar_shell_ready", nil); got != 0 {
		t.Errorf("ready = %v, want 0", got)
	}
}

func TestCollector_SetState(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{States: testStates})

	c.SetState("probe_remote")
	c.SetState("spawn_local")

	want := map[string]float64{"init": 0, "probe_remote": 0, "spawn_local": 1, "resolved": 0}
	for s, w := range want {
		if got := testGaugeValue(t, reg, "sidecar_shell_resolver_state", map[string]string{"state": s}); got != w {
			t.Errorf("state %s = %v, want %v", s, got, w)
		}
	}
	if c.State() != "spawn_local" {
		t.Errorf("State() = %q", c.State())
	}
}

func TestCollector_RecordResolved(t *testing.T) {
	tests := []struct {
		name      string
		result    string
		failure   string
		wantReady float64
	}{
		{"remote", "remote", "", 1},
		{"local", "local", "", 1},
		{"failed", "failed", "user cancelled", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reg := newTestCollector(CollectorConfig{})
			c.RecordResolved(tt.result, "local(4096)", tt.failure, 250*time.Millisecond)

			if got := counterValue(t, reg, "sidecar_shell_resolutions_total", map[string]string{"result": tt.result}); got != 1 {
				t.Errorf("resolutions_total = %v, want 1", got)
			}
			if got := testGaugeValue(t, reg, "sidecar_shell_ready", nil); got != tt.wantReady {
				t.Errorf("ready = %v, want %v", got, tt.wantReady)
			}
			h := findMetric(t, reg, "sidecar_shell_resolution_seconds", nil)
			if h.GetHistogram().GetSampleCount() != 1 {
				t.Errorf("resolution histogram count = %d", h.GetHistogram().GetSampleCount())
			}

			s := c.GenerateSummary()
			if s.Failure != tt.failure || s.ResolutionTime != 250*time.Millisecond {
				t.Errorf("summary = %+v", s)
			}
		})
	}
}

func TestCollector_RecordDecision(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})
	c.RecordDecision("retry")
	c.RecordDecision("retry")
	c.RecordDecision("local")

	if got := counterValue(t, reg, "sidecar_shell_decisions_total", map[string]string{"decision": "retry"}); got != 2 {
		t.Errorf("retry = %v, want 2", got)
	}
	if s := c.GenerateSummary(); s.Decisions["local"] != 1 {
		t.Errorf("summary decisions = %v", s.Decisions)
	}
}

func TestCollector_ObserveProbe(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})
	var obs health.Observer = c

	obs.ObserveProbe(health.KindHTTP, false, 3*time.Second)
	obs.ObserveProbe(health.KindTCP, true, time.Millisecond)
	obs.ObserveProbe(health.KindTCP, true, time.Millisecond)

	if got := counterValue(t, reg, "sidecar_shell_probes_total", map[string]string{"kind": "tcp", "result": "healthy"}); got != 2 {
		t.Errorf("tcp healthy = %v, want 2", got)
	}
	if got := counterValue(t, reg, "sidecar_shell_probes_total", map[string]string{"kind": "http", "result": "unhealthy"}); got != 1 {
		t.Errorf("http unhealthy = %v, want 1", got)
	}
	s := c.GenerateSummary()
	if s.Probes["tcp_healthy"] != 2 || s.Probes["http_unhealthy"] != 1 {
		t.Errorf("summary probes = %v", s.Probes)
	}
}

func TestCollector_SidecarLifecycle(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	c.SidecarStarted()
	if got := testGaugeValue(t, reg, "sidecar_shell_sidecar_running", nil); got != 1 {
		t.Errorf("running = %v, want 1", got)
	}
	c.LineCaptured("STDOUT")
	c.LineCaptured("STDERR")
	c.LineCaptured("STDERR")
	c.RecordExit(137, 90*time.Second)

	if got := testGaugeValue(t, reg, "sidecar_shell_sidecar_running", nil); got != 0 {
		t.Errorf("running = %v, want 0", got)
	}
	if got := counterValue(t, reg, "sidecar_shell_sidecar_exits_total", map[string]string{"category": "signal"}); got != 1 {
		t.Errorf("signal exits = %v, want 1", got)
	}
	if got := counterValue(t, reg, "sidecar_shell_output_lines_total", map[string]string{"stream": "STDERR"}); got != 2 {
		t.Errorf("stderr lines = %v, want 2", got)
	}

	s := c.GenerateSummary()
	if s.Starts != 1 || s.ExitCodes[137] != 1 || s.UptimeMax != 90*time.Second {
		t.Errorf("summary = %+v", s)
	}
	if c.Starts() != 1 {
		t.Errorf("Starts() = %d", c.Starts())
	}
}

func TestExitCategory(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "success"},
		{1, "error"},
		{128, "error"},
		{137, "signal"},
		{143, "signal"},
	}
	for _, tt := range tests {
		if got := exitCategory(tt.code); got != tt.want {
			t.Errorf("exitCategory(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCollector_GenerateSummary_Empty(t *testing.T) {
	c, _ := newTestCollector(CollectorConfig{})
	s := c.GenerateSummary()
	if s.Starts != 0 || len(s.ExitCodes) != 0 || s.UptimeMax != 0 || s.Endpoint != "" {
		t.Errorf("summary = %+v", s)
	}
}

func TestCollector_ThreadSafety(t *testing.T) {
	c, _ := newTestCollector(CollectorConfig{States: testStates})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SetState(testStates[j%len(testStates)])
				c.ObserveProbe(health.KindTCP, j%2 == 0, time.Millisecond)
				c.LineCaptured("STDOUT")
				c.SidecarStarted()
				c.RecordExit(0, time.Second)
				_ = c.GenerateSummary()
			}
		}()
	}
	wg.Wait()
}
