package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/telemetry"
	"mercator-hq/beacon/pkg/telemetry/health"
	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/metrics"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

// Server serves metrics, traces, performance samples and health probes.
type Server struct {
	config       config.ServerConfig
	tel          *telemetry.Telemetry
	info         health.VersionInfo
	logger       logging.LevelLogger
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// NewServer creates a server over tel. info is reported on the version
// endpoint.
func NewServer(cfg config.ServerConfig, tel *telemetry.Telemetry, info health.VersionInfo) *Server {
	return &Server{
		config: cfg,
		tel:    tel,
		info:   info,
		logger: tel.Logger(),
	}
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	tlsEnabled := s.config.TLS.Enabled
	if tlsEnabled {
		reloader := newCertReloader(s.config.TLS.CertFile, s.config.TLS.KeyFile, s.config.TLS.ReloadInterval, s.logger)
		if err := reloader.start(ctx); err != nil {
			_ = ln.Close()
			s.mu.Unlock()
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		s.httpServer.TLSConfig = newTLSConfig(s.config.TLS, reloader)
	}

	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting beacon server", "address", ln.Addr().String(), "tls_enabled", tlsEnabled)

		var err error
		if tlsEnabled {
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server within the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("beacon server stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	cfg := s.tel.Config().Telemetry

	if cfg.Metrics.Enabled {
		registry := s.tel.Metrics()
		mux.Handle("GET "+cfg.Metrics.Path, registry.TextHandler())
		mux.Handle("GET "+cfg.Metrics.Path+"/json", registry.JSONHandler())
		mux.Handle("GET "+cfg.Metrics.PrometheusPath, registry.Handler(metrics.HandlerOptions{
			IncludeRuntime: cfg.Metrics.IncludeRuntimeMetrics,
		}))
	}

	h := &handlers{tracer: s.tel.Tracer(), monitor: s.tel.Monitor(), logger: s.logger}
	mux.HandleFunc("GET /traces", h.listTraces)
	mux.HandleFunc("GET /traces/{id}", h.getTrace)
	mux.HandleFunc("GET /traces/{id}/otlp", h.exportTrace)
	throttled := s.tel.Metrics().Counter(metricName(cfg.Metrics.Namespace, "http_requests_throttled_total"),
		"Sample uploads rejected by the ingest rate limit.", nil)
	limit := RateLimitMiddleware(s.config.IngestRateLimit, throttled, s.logger)
	mux.Handle("POST /performance/vitals", limit(http.HandlerFunc(h.recordVitals)))
	mux.Handle("POST /performance/bundle", limit(http.HandlerFunc(h.recordBundle)))
	mux.Handle("POST /performance/build", limit(http.HandlerFunc(h.recordBuild)))
	mux.HandleFunc("GET /performance/alerts", h.getAlerts)
	mux.HandleFunc("DELETE /performance/alerts", h.clearAlerts)
	mux.HandleFunc("GET /performance/trends", h.getTrends)
	mux.HandleFunc("GET /performance/history", h.getHistory)
	mux.HandleFunc("GET /performance/report", h.getReport)

	health.Mount(mux, s.tel.Health(), cfg.Health, s.info)

	var handler http.Handler = mux

	// Tracing is innermost so a panic is recorded on the trace before recovery.
	handler = tracing.Middleware(s.tel.Tracer())(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(s.logger)(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func metricName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "_" + name
}
