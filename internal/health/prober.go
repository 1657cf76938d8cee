// Package health implements the advisory readiness probes used to decide
// whether a backend server is usable: a raw TCP connect against the local
// sidecar port and a GET /health check against a server URL.
//
// Probes never return errors. Every failure mode (refused, timeout, DNS,
// non-2xx) collapses into "unhealthy".
package health

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

const (
	// DefaultHTTPTimeout bounds a single /health request.
	DefaultHTTPTimeout = 3 * time.Second

	// DefaultDialTimeout bounds a single loopback TCP connect.
	DefaultDialTimeout = 500 * time.Millisecond

	// HealthPath is appended to the server base URL.
	HealthPath = "/health"

	loopback = "127.0.0.1"
)

// Kind identifies the probe type.
type Kind string

const (
	KindTCP  Kind = "tcp"
	KindHTTP Kind = "http"
)

// Observer receives every probe result. The metrics collector implements it.
type Observer interface {
	ObserveProbe(kind Kind, healthy bool, latency time.Duration)
}

// Config holds prober settings. Zero values select the defaults.
type Config struct {
	HTTPTimeout time.Duration
	DialTimeout time.Duration
	Host        string // TCP probe host, default 127.0.0.1
	Observer    Observer
	Transport   http.RoundTripper
}

// Prober runs TCP and HTTP health probes and keeps latency digests.
type Prober struct {
	client      *http.Client
	dialer      net.Dialer
	host        string
	httpTimeout time.Duration
	observer    Observer

	mu      sync.Mutex
	digests map[Kind]*latencyDigest
}

type latencyDigest struct {
	td    *tdigest.TDigest
	count int
}

// NewProber creates a prober.
func NewProber(cfg Config) *Prober {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Host == "" {
		cfg.Host = loopback
	}

	return &Prober{
		client: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: cfg.Transport,
		},
		dialer:      net.Dialer{Timeout: cfg.DialTimeout},
		host:        cfg.Host,
		httpTimeout: cfg.HTTPTimeout,
		observer:    cfg.Observer,
		digests: map[Kind]*latencyDigest{
			KindTCP:  {td: tdigest.NewWithCompression(100)},
			KindHTTP: {td: tdigest.NewWithCompression(100)},
		},
	}
}

// TCPReachable reports whether something accepts connections on the port.
// Reachable means bound, not necessarily ready to serve.
func (p *Prober) TCPReachable(ctx context.Context, port int) bool {
	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(p.host, strconv.Itoa(port)))
	ok := err == nil
	if ok {
		conn.Close()
	}
	p.record(KindTCP, ok, time.Since(start))
	return ok
}

// HTTPHealthy performs GET {baseURL}/health and reports whether the server
// answered with a 2xx status within the timeout.
func (p *Prober) HTTPHealthy(ctx context.Context, baseURL string) bool {
	start := time.Now()
	ok := p.checkHTTP(ctx, baseURL)
	p.record(KindHTTP, ok, time.Since(start))
	return ok
}

func (p *Prober) checkHTTP(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, HealthURL(baseURL), nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused by the next poll
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// HealthURL normalizes away trailing slashes and appends the health path.
func HealthURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + HealthPath
}

func (p *Prober) record(kind Kind, healthy bool, latency time.Duration) {
	p.mu.Lock()
	d := p.digests[kind]
	d.td.Add(latency.Seconds(), 1)
	d.count++
	p.mu.Unlock()

	if p.observer != nil {
		p.observer.ObserveProbe(kind, healthy, latency)
	}
}

// Summary holds latency percentiles for one probe kind.
type Summary struct {
	Count int
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// Latency returns the latency percentiles observed so far for kind.
func (p *Prober) Latency(kind Kind) Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, ok := p.digests[kind]
	if !ok || d.count == 0 {
		return Summary{}
	}

	return Summary{
		Count: d.count,
		P50:   seconds(d.td.Quantile(0.50)),
		P95:   seconds(d.td.Quantile(0.95)),
		P99:   seconds(d.td.Quantile(0.99)),
	}
}

// HTTPTimeout returns the per-request timeout in effect.
func (p *Prober) HTTPTimeout() time.Duration {
	return p.httpTimeout
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
