package delivery

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Metrics receives delivery outcomes from the worker.
type Metrics interface {
	Sent(channel notifications.Channel)
	Failure(channel notifications.Channel, final bool)
	ClaimLost()
	BatchDuration(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Sent(notifications.Channel)          {}
func (noopMetrics) Failure(notifications.Channel, bool) {}
func (noopMetrics) ClaimLost()                          {}
func (noopMetrics) BatchDuration(time.Duration)         {}

// PrometheusMetrics exports delivery outcomes as Prometheus collectors.
type PrometheusMetrics struct {
	sent          *prometheus.CounterVec
	failures      *prometheus.CounterVec
	claimsLost    prometheus.Counter
	batchDuration prometheus.Histogram
}

// NewPrometheusMetrics creates the delivery collectors and registers them
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifykit_delivery_sent_total",
				Help: "Total number of delivery entries sent",
			},
			[]string{"channel"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifykit_delivery_failures_total",
				Help: "Total number of failed delivery attempts",
			},
			[]string{"channel", "final"},
		),
		claimsLost: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "notifykit_delivery_claims_lost_total",
				Help: "Total number of entries claimed by another worker first",
			},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notifykit_delivery_batch_duration_seconds",
				Help:    "Duration of delivery batches in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	for _, c := range []prometheus.Collector{m.sent, m.failures, m.claimsLost, m.batchDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *PrometheusMetrics) Sent(channel notifications.Channel) {
	m.sent.WithLabelValues(channel.String()).Inc()
}

func (m *PrometheusMetrics) Failure(channel notifications.Channel, final bool) {
	m.failures.WithLabelValues(channel.String(), strconv.FormatBool(final)).Inc()
}

func (m *PrometheusMetrics) ClaimLost() {
	m.claimsLost.Inc()
}

func (m *PrometheusMetrics) BatchDuration(d time.Duration) {
	m.batchDuration.Observe(d.Seconds())
}
