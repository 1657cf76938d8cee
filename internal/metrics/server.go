package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randomizedcoder/go-sidecar-shell/internal/readiness"
)

// ReadinessSource reports the published outcome, if any.
type ReadinessSource interface {
	Peek() (readiness.Outcome, bool)
}

// LogSource renders captured sidecar output.
type LogSource interface {
	String() string
}

// ServerConfig configures the metrics server.
type ServerConfig struct {
	Addr      string
	Gatherer  prometheus.Gatherer
	Readiness ReadinessSource
	Logs      LogSource
}

// Server provides HTTP endpoints for Prometheus metrics, health, readiness
// and captured sidecar logs.
type Server struct {
	addr   string
	server *http.Server
	logger *slog.Logger

	ln net.Listener
}

// NewServer creates a new metrics server.
func NewServer(cfg ServerConfig, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	if cfg.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/healthz", healthHandler)

	ready := readyHandler(cfg.Readiness)
	mux.HandleFunc("/ready", ready)
	mux.HandleFunc("/readyz", ready)

	mux.HandleFunc("/logs", logsHandler(cfg.Logs))

	return &Server{
		addr:   cfg.Addr,
		logger: logger,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// healthHandler handles health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// ReadyStatus is the /ready response body.
type ReadyStatus struct {
	Ready    bool   `json:"ready"`
	Resolved bool   `json:"resolved"`
	Endpoint string `json:"endpoint,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func readyHandler(src ReadinessSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st ReadyStatus
		if src != nil {
			if o, ok := src.Peek(); ok {
				st.Resolved = true
				st.Ready = o.OK()
				st.Error = o.Reason()
				if o.OK() {
					st.Endpoint = o.Endpoint.String()
					st.URL = o.Endpoint.BaseURL()
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if st.Ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(st)
	}
}

func logsHandler(src LogSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if src == nil {
			return
		}
		fmt.Fprint(w, src.String())
	}
}

// Start binds the listener and serves in a goroutine.
// Returns once the address is bound. Use Shutdown to stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.logger.Info("metrics_server_starting", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics_server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("metrics_server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}
