package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invocation outcomes recorded by Metrics.RecordInvocation.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeNoConsole = "no_console"
	OutcomePanicked  = "panicked"
)

// Metrics holds the command engine collectors.
type Metrics struct {
	resolutions *prometheus.CounterVec
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	throttled   prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics builds the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commons",
				Subsystem: "command",
				Name:      "resolutions_total",
				Help:      "Command resolutions by result.",
			},
			[]string{"plugin", "result"},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commons",
				Subsystem: "command",
				Name:      "invocations_total",
				Help:      "Command action invocations by outcome.",
			},
			[]string{"plugin", "command", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "commons",
				Subsystem: "command",
				Name:      "invocation_duration_seconds",
				Help:      "Command action duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"plugin", "command"},
		),
		throttled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "commons",
				Subsystem: "command",
				Name:      "throttled_total",
				Help:      "Commands dropped by the per-sender rate limit.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.resolutions, m.invocations, m.duration, m.throttled)
	}
	return m
}

// DefaultMetrics returns collectors registered once with the default
// Prometheus registry.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func (m *Metrics) RecordResolution(plugin, result string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(plugin, result).Inc()
}

func (m *Metrics) RecordInvocation(plugin, command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(plugin, command, outcome).Inc()
	m.duration.WithLabelValues(plugin, command).Observe(duration.Seconds())
}

func (m *Metrics) RecordThrottled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}
