package delivery

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// WorkerOption is a functional option for configuring a worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pollInterval      time.Duration
	batchSize         int
	maxAttempts       int
	sendTimeout       time.Duration
	staleAfter        time.Duration
	failedRetention   time.Duration
	retentionInterval time.Duration
	logger            *slog.Logger
	metrics           Metrics
	emitter           notifications.Emitter
	now               func() time.Time
}

// WithPollInterval sets how often the worker looks for due entries.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithBatchSize sets the maximum number of entries fetched per tick.
func WithBatchSize(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithMaxAttempts sets after how many failed attempts an entry fails for good.
func WithMaxAttempts(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithSendTimeout bounds a single channel send.
func WithSendTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithStaleAfter enables recovery of entries stuck in processing for longer
// than d. Zero disables it.
func WithStaleAfter(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d >= 0 {
			o.staleAfter = d
		}
	}
}

// WithFailedRetention purges failed entries older than retention every
// interval. A zero retention disables purging.
func WithFailedRetention(retention, interval time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if retention >= 0 {
			o.failedRetention = retention
		}
		if interval > 0 {
			o.retentionInterval = interval
		}
	}
}

// WithWorkerLogger sets the logger for the worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) WorkerOption {
	return func(o *workerOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithEmitter sets the realtime emitter notified after successful delivery.
func WithEmitter(e notifications.Emitter) WorkerOption {
	return func(o *workerOptions) {
		o.emitter = e
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) WorkerOption {
	return func(o *workerOptions) {
		if now != nil {
			o.now = now
		}
	}
}
