package httpserver

import (
	"log/slog"
	"net/http"
)

// Option configures the HTTP server.
type Option func(*Server)

// WithAddr sets the address the server listens on.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("WithAddr: addr cannot be empty")
	}
	return func(s *Server) { s.addr = addr }
}

// WithTimeouts overrides the non-zero fields of t.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) {
		if t.ReadHeader > 0 {
			s.timeouts.ReadHeader = t.ReadHeader
		}
		if t.Read > 0 {
			s.timeouts.Read = t.Read
		}
		if t.Write > 0 {
			s.timeouts.Write = t.Write
		}
		if t.Idle > 0 {
			s.timeouts.Idle = t.Idle
		}
		if t.Shutdown > 0 {
			s.timeouts.Shutdown = t.Shutdown
		}
	}
}

// WithLogger supplies the server logger. Nil discards logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHealthPaths moves the liveness and readiness endpoints. Empty paths keep
// the current ones.
func WithHealthPaths(liveness, readiness string) Option {
	return func(s *Server) {
		if liveness != "" {
			s.livenessPath = liveness
		}
		if readiness != "" {
			s.readinessPath = readiness
		}
	}
}

// WithReadinessChecks adds dependencies the readiness endpoint pings.
func WithReadinessChecks(checks ...Check) Option {
	return func(s *Server) {
		for _, c := range checks {
			if c.Fn != nil {
				s.checks = append(s.checks, c)
			}
		}
	}
}

// WithMetricsPath sets where the metrics handler is mounted.
func WithMetricsPath(path string) Option {
	return func(s *Server) { s.metricsPath = path }
}

// WithMetricsHandler mounts h, typically promhttp.HandlerFor, at the
// metrics path.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithMiddleware wraps the health, metrics and application routes.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.middleware = append(s.middleware, mw...) }
}
