package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report runtime activity.
type Metrics struct {
	driveDuration *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	drivesActive  prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. The collectors are created only once to
// avoid duplicate registration panics when the runtime is instantiated
// multiple times (e.g. in unit tests).
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided
// registerer. Registration errors panic, mirroring promauto semantics, so
// configuration bugs surface early.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	driveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "otto",
			Subsystem: "runtime",
			Name:      "task_drive_duration_seconds",
			Help:      "Duration of one executeTask drive, labeled by resting outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	toolCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "otto",
			Subsystem: "runtime",
			Name:      "tool_calls_total",
			Help:      "Tool calls by name and result.",
		},
		[]string{"tool", "result"},
	)
	drivesActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "otto",
			Subsystem: "runtime",
			Name:      "drives_active",
			Help:      "Number of task drives currently in flight.",
		},
	)

	for _, collector := range []prometheus.Collector{driveDuration, toolCalls, drivesActive} {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch c := already.ExistingCollector.(type) {
				case *prometheus.HistogramVec:
					driveDuration = c
				case *prometheus.CounterVec:
					toolCalls = c
				case prometheus.Gauge:
					drivesActive = c
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		driveDuration: driveDuration,
		toolCalls:     toolCalls,
		drivesActive:  drivesActive,
	}
}

func (m *Metrics) observeDrive(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.driveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) observeToolCall(tool string, isError bool) {
	if m == nil {
		return
	}
	result := "ok"
	if isError {
		result = "error"
	}
	m.toolCalls.WithLabelValues(tool, result).Inc()
}
