package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu      sync.Mutex
	results map[Kind][]bool
}

func (o *recordingObserver) ObserveProbe(kind Kind, healthy bool, latency time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[Kind][]bool)
	}
	o.results[kind] = append(o.results[kind], healthy)
}

func TestHealthURL(t *testing.T) {
	testCases := []struct {
		base string
		want string
	}{
		{"http://example.com", "http://example.com/health"},
		{"http://example.com/", "http://example.com/health"},
		{"http://example.com///", "http://example.com/health"},
		{"http://example.com/api", "http://example.com/api/health"},
	}

	for _, tc := range testCases {
		t.Run(tc.base, func(t *testing.T) {
			if got := HealthURL(tc.base); got != tc.want {
				t.Errorf("HealthURL(%q) = %q, want %q", tc.base, got, tc.want)
			}
		})
	}
}

func TestHTTPHealthy_Status(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"no_content", http.StatusNoContent, true},
		{"not_found", http.StatusNotFound, false},
		{"server_error", http.StatusInternalServerError, false},
		{"unavailable", http.StatusServiceUnavailable, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			p := NewProber(Config{})
			if got := p.HTTPHealthy(context.Background(), srv.URL+"/"); got != tc.want {
				t.Errorf("HTTPHealthy = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHTTPHealthy_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewProber(Config{HTTPTimeout: 50 * time.Millisecond})

	start := time.Now()
	if p.HTTPHealthy(context.Background(), srv.URL) {
		t.Error("hung server should be unhealthy")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("probe took %v, timeout not applied", elapsed)
	}
}

func TestHTTPHealthy_Unreachable(t *testing.T) {
	p := NewProber(Config{HTTPTimeout: time.Second})

	testCases := []string{
		"http://127.0.0.1:1",
		"://not a url",
		"",
	}
	for _, u := range testCases {
		if p.HTTPHealthy(context.Background(), u) {
			t.Errorf("HTTPHealthy(%q) = true, want false", u)
		}
	}
}

func TestTCPReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	obs := &recordingObserver{}
	p := NewProber(Config{Observer: obs})

	if !p.TCPReachable(context.Background(), port) {
		t.Error("listening port should be reachable")
	}

	ln.Close()
	if p.TCPReachable(context.Background(), port) {
		t.Error("closed port should not be reachable")
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	got := obs.results[KindTCP]
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("observer results = %v, want [true false]", got)
	}
}

func TestLatency(t *testing.T) {
	p := NewProber(Config{})

	if s := p.Latency(KindTCP); s.Count != 0 {
		t.Errorf("empty summary count = %d", s.Count)
	}

	for i := 0; i < 5; i++ {
		p.TCPReachable(context.Background(), 1)
	}

	s := p.Latency(KindTCP)
	if s.Count != 5 {
		t.Errorf("Count = %d, want 5", s.Count)
	}
	if s.P50 < 0 || s.P99 < s.P50 {
		t.Errorf("percentiles out of order: %+v", s)
	}
	if p.Latency(Kind("udp")).Count != 0 {
		t.Error("unknown kind should have empty summary")
	}
}

func TestNewProber_Defaults(t *testing.T) {
	p := NewProber(Config{})
	if p.HTTPTimeout() != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", p.HTTPTimeout(), DefaultHTTPTimeout)
	}
	if p.host != loopback {
		t.Errorf("host = %q", p.host)
	}
}
