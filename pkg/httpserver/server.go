package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server runs the notifyd HTTP surface: health endpoints, the metrics
// endpoint and the application router, with context-driven graceful
// shutdown.
type Server struct {
	addr          string
	timeouts      Timeouts
	logger        *slog.Logger
	livenessPath  string
	readinessPath string
	metricsPath   string
	metrics       http.Handler
	checks        []Check
	middleware    []func(http.Handler) http.Handler

	mu    sync.Mutex
	srv   *http.Server
	bound net.Addr
	once  sync.Once
}

// New returns a configured Server.
func New(opts ...Option) *Server {
	s := &Server{
		addr:          ":8080",
		timeouts:      Timeouts{Shutdown: 10 * time.Second},
		livenessPath:  "/health/live",
		readinessPath: "/health/ready",
		metricsPath:   "/metrics",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Handler returns app mounted under the health and metrics routes.
func (s *Server) Handler(app http.Handler) http.Handler {
	if app == nil {
		app = http.NotFoundHandler()
	}

	r := chi.NewRouter()
	r.Use(s.middleware...)
	r.Get(s.livenessPath, LivenessHandler())
	r.Get(s.readinessPath, ReadinessHandler(s.logger, s.checks...))
	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics)
	}
	r.Mount("/", app)
	return r
}

// Run listens and serves app until ctx ends or Shutdown is called.
// Signal handling belongs to the caller, typically via signal.NotifyContext.
// A listen or serve failure is wrapped with ErrStart.
func (s *Server) Run(ctx context.Context, app http.Handler) error {
	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(app),
		ReadHeaderTimeout: s.timeouts.ReadHeader,
		ReadTimeout:       s.timeouts.Read,
		WriteTimeout:      s.timeouts.Write,
		IdleTimeout:       s.timeouts.Idle,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.srv = srv
	s.bound = ln.Addr()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "http server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("liveness", s.livenessPath),
		slog.String("readiness", s.readinessPath),
		slog.Bool("metrics", s.metrics != nil))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = s.Shutdown(context.WithoutCancel(ctx))
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
			runErr = errors.Join(runErr, serveErr)
		}
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		if errors.Is(runErr, ErrShutdown) {
			return runErr
		}
		return errors.Join(ErrStart, runErr)
	}
	return nil
}

// Addr returns the address the server is bound to, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Shutdown stops the server within the shutdown timeout. Repeated calls
// are no-ops. An http.Server.Shutdown error is wrapped with ErrShutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()
		if srv == nil {
			return
		}

		ctx, cancel := context.WithTimeout(ctx, s.timeouts.Shutdown)
		defer cancel()
		err = srv.Shutdown(ctx)
		s.logger.InfoContext(ctx, "http server stopped")
	})

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
