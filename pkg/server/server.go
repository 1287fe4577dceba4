package server

import (
	"context"
	stdtls "crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"glucobridge/relay/pkg/config"
	"glucobridge/relay/pkg/credentials"
	"glucobridge/relay/pkg/entries"
	"glucobridge/relay/pkg/forward"
	"glucobridge/relay/pkg/pipeline"
	"glucobridge/relay/pkg/security/tls"
	"glucobridge/relay/pkg/telemetry/health"
	"glucobridge/relay/pkg/telemetry/metrics"
)

// Options carries the parts of a Server that do not come from configuration.
type Options struct {
	// Version is reported by /version.
	Version   string
	Commit    string
	BuildTime string

	// Registry receives the relay metrics. Nil creates a private registry.
	Registry *prometheus.Registry

	// Transport overrides the upstream transport. Used by tests.
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Server is the relay's HTTP server: the entries routes, health, metrics and
// diagnostics behind one middleware chain.
type Server struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	collector *metrics.Collector
	checker   *health.Checker
	probe     *health.UpstreamProbe
	pipeline  *pipeline.Pipeline
	handler   http.Handler

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New wires the relay from cfg. cfg must already be defaulted and validated.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	base, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base URL %q", cfg.Upstream.BaseURL)
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, opts.Registry)

	translator := credentials.NewTranslator(cfg.Auth.InboundSecret, cfg.Auth.OutboundSecret, credentials.Channels{
		PlainHeader:  config.Enabled(cfg.Auth.Channels.PlainHeader, true),
		BearerHeader: config.Enabled(cfg.Auth.Channels.BearerHeader, true),
		HashedQuery:  config.Enabled(cfg.Auth.Channels.HashedQuery, true),
	})

	normalizer := entries.NewNormalizer(entries.Options{
		FutureTolerance:  cfg.Normalize.FutureTolerance,
		DoubledThreshold: cfg.Normalize.DoubledThreshold,
	})

	client := forward.NewClient(forward.Options{
		Timeout:         cfg.Upstream.Timeout,
		MaxIdleConns:    cfg.Upstream.MaxIdleConns,
		IdleConnTimeout: cfg.Upstream.IdleConnTimeout,
		RetryEmptyReads: config.Enabled(cfg.Upstream.RetryEmptyReads, config.DefaultRetryEmptyReads),
		RelaxedPageSize: cfg.Upstream.PageSize.Relaxed,
		Projection:      forward.NewProjection(cfg.Upstream.ProjectFields),
		Observer:        collector,
		Transport:       opts.Transport,
		Logger:          opts.Logger.With("component", "forward"),
	})

	pageSize := forward.PageSize{
		Min:     cfg.Upstream.PageSize.Min,
		Max:     cfg.Upstream.PageSize.Max,
		Default: cfg.Upstream.PageSize.Default,
	}

	p := pipeline.New(pipeline.Config{
		BaseURL:      base,
		PageSize:     pageSize,
		MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
	}, pipeline.Deps{
		Translator: translator,
		Normalizer: normalizer,
		Forwarder:  client,
		Recorder:   collector,
		Logger:     opts.Logger,
	})

	checker := health.New(0)
	var probe *health.UpstreamProbe
	if cfg.Upstream.ProbePath != "" {
		target := pageSize.BuildTarget(base, cfg.Upstream.ProbePath, nil)
		header := make(http.Header)
		query := target.Query()
		translator.Outbound().Apply(header, query)
		target.RawQuery = query.Encode()

		probe = health.NewUpstreamProbe(health.ProbeOptions{
			Schedule:  cfg.Upstream.ProbeSchedule,
			Request:   forward.Request{Method: http.MethodGet, Target: target, Header: header},
			Forwarder: client,
			Gauge:     collector,
			Logger:    opts.Logger,
		})
		checker.RegisterCheck("upstream", probe.Check)
	}

	s := &Server{
		cfg:       cfg,
		opts:      opts,
		logger:    opts.Logger,
		collector: collector,
		checker:   checker,
		probe:     probe,
		pipeline:  p,
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Checker returns the readiness checker.
func (s *Server) Checker() *health.Checker {
	return s.checker
}

// Start listens and serves until ctx is done, a termination signal arrives
// or the server fails. It then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	proxyCfg := s.cfg.Proxy
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    proxyCfg.ReadTimeout,
		WriteTimeout:   proxyCfg.WriteTimeout,
		IdleTimeout:    proxyCfg.IdleTimeout,
		MaxHeaderBytes: proxyCfg.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tlsConfig, err := s.configureTLS(runCtx)
	if err != nil {
		s.setRunning(false)
		return fmt.Errorf("failed to configure TLS: %w", err)
	}

	ln, err := net.Listen("tcp", proxyCfg.ListenAddress)
	if err != nil {
		s.setRunning(false)
		return fmt.Errorf("failed to listen on %s: %w", proxyCfg.ListenAddress, err)
	}
	if tlsConfig != nil {
		ln = stdtls.NewListener(ln, tlsConfig)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	if s.probe != nil {
		if err := s.probe.Start(runCtx); err != nil {
			s.logger.Warn("upstream probe not started", "error", err)
		}
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	s.logger.Info("glucobridge listening",
		"address", ln.Addr().String(),
		"upstream", s.cfg.Upstream.BaseURL,
		"tls_enabled", tlsConfig != nil,
		"inbound_auth", s.cfg.Auth.InboundSecret != "",
		"outbound_auth", s.cfg.Auth.OutboundSecret != "",
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// configureTLS returns nil when TLS is disabled.
func (s *Server) configureTLS(ctx context.Context) (*stdtls.Config, error) {
	tlsCfg := s.cfg.Security.TLS
	if !tlsCfg.Enabled {
		return nil, nil
	}
	var reloader *tls.CertificateReloader
	if tlsCfg.Reload {
		reloader = tls.NewCertificateReloader(tlsCfg.CertFile, tlsCfg.KeyFile, 0, s.logger)
		if err := reloader.Start(ctx); err != nil {
			return nil, err
		}
	}
	return tls.NewServerConfig(tlsCfg, reloader)
}

// Shutdown gracefully stops the server within proxy.shutdown_timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if !s.IsRunning() {
			return
		}
		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.Proxy.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Proxy.ShutdownTimeout)
		defer cancel()

		if s.probe != nil {
			s.probe.Stop()
		}
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.setRunning(false)
		s.logger.Info("glucobridge stopped")
	})

	return shutdownErr
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.isRunning = v
	s.mu.Unlock()
}
