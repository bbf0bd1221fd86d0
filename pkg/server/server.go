package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"odd-hq/decisioning/pkg/config"
	"odd-hq/decisioning/pkg/decisioning"
	"odd-hq/decisioning/pkg/server/middleware"
	"odd-hq/decisioning/pkg/telemetry/health"
)

// Decider produces decisions for an event.
type Decider interface {
	SendEvent(ctx context.Context, event map[string]any) (*decisioning.Response, error)
}

// Server serves decisions over HTTP.
type Server struct {
	config      config.ServerConfig
	decider     Decider
	checker     *health.Checker
	metrics     http.Handler
	metricsPath string
	origin      *http.Client
	version     string
	commit      string
	logger      *slog.Logger
	now         func() time.Time

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	running      bool
}

// Option configures a Server.
type Option func(*Server)

// WithHealth serves the checker's probes.
func WithHealth(checker *health.Checker) Option {
	return func(s *Server) { s.checker = checker }
}

// WithMetrics serves h on path.
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = h
	}
}

// WithVersion sets the build information served on /version.
func WithVersion(version, commit string) Option {
	return func(s *Server) {
		s.version = version
		s.commit = commit
	}
}

// WithOriginClient replaces the client used to fetch origin pages.
func WithOriginClient(c *http.Client) Option {
	return func(s *Server) { s.origin = c }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a server for decider.
func New(cfg config.ServerConfig, decider Decider, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		decider: decider,
		version: "dev",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")
	if s.origin == nil {
		s.origin = &http.Client{Timeout: cfg.WriteTimeout}
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var limiter *middleware.RateLimiter
	if rl := s.config.RateLimit; rl.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst, rl.MaxClients)
	}
	limit := middleware.RateLimit(limiter, s.logger)

	mux.Handle("/decide", limit(http.HandlerFunc(s.handleDecide)))
	if s.config.OriginURL != "" {
		mux.Handle("/", limit(http.HandlerFunc(s.handlePage)))
	}
	if s.checker != nil {
		s.checker.Register(mux, s.version, s.commit)
	}
	if s.metrics != nil && s.metricsPath != "" {
		mux.Handle(s.metricsPath, s.metrics)
	}

	var handler http.Handler = mux
	handler = middleware.CORS(s.config.AllowedOrigins)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)
	return handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.running = true
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting decide server",
			"address", s.config.ListenAddress,
			"origin_url", s.config.OriginURL,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown stops the server, waiting up to the shutdown timeout for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()
		if srv == nil {
			return
		}

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultServerShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			err = fmt.Errorf("server shutdown error: %w", serr)
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logger.Info("decide server stopped")
	})
	return err
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
