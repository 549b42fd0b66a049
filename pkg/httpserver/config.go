package httpserver

import "time"

// Timeouts bounds the phases of a request and of shutdown. Zero values are
// left unset on the underlying http.Server.
type Timeouts struct {
	ReadHeader time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	Read       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	Write      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	Idle       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	Shutdown   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Config is the env-driven server configuration of notifyd.
type Config struct {
	Addr     string `env:"HTTP_ADDR" envDefault:":8080"`
	Timeouts Timeouts

	LivenessPath  string `env:"HTTP_LIVENESS_PATH" envDefault:"/health/live"`
	ReadinessPath string `env:"HTTP_READINESS_PATH" envDefault:"/health/ready"`
	MetricsPath   string `env:"HTTP_METRICS_PATH" envDefault:"/metrics"`
}

// Options converts cfg into server options. Empty fields keep the defaults.
func (c Config) Options() []Option {
	var opts []Option
	if c.Addr != "" {
		opts = append(opts, WithAddr(c.Addr))
	}
	opts = append(opts,
		WithTimeouts(c.Timeouts),
		WithHealthPaths(c.LivenessPath, c.ReadinessPath),
	)
	if c.MetricsPath != "" {
		opts = append(opts, WithMetricsPath(c.MetricsPath))
	}
	return opts
}

// NewFromConfig creates a Server from cfg; opts are applied after it.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	return New(append(cfg.Options(), opts...)...)
}
