// Package metrics defines the Prometheus instrumentation for snapshot
// builds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the build collectors. A nil *Metrics is valid and
// records nothing, so wiring metrics stays optional in tests.
type Metrics struct {
	buildsStarted   prometheus.Counter
	buildsSucceeded prometheus.Counter
	buildsFailed    prometheus.Counter
	buildDuration   prometheus.Histogram
	snapshotSize    prometheus.Gauge
}

// New registers the snapshot build collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		buildsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportsnap_builds_started_total",
			Help: "Snapshot builds started.",
		}),
		buildsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportsnap_builds_succeeded_total",
			Help: "Snapshot builds completed successfully.",
		}),
		buildsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "reportsnap_builds_failed_total",
			Help: "Snapshot builds that hard-failed.",
		}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reportsnap_build_duration_seconds",
			Help:    "Wall time of snapshot builds.",
			Buckets: prometheus.DefBuckets,
		}),
		snapshotSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reportsnap_snapshot_size_bytes",
			Help: "Serialized size of the most recently built snapshot.",
		}),
	}
}

// BuildStarted records the start of a build.
func (m *Metrics) BuildStarted() {
	if m == nil {
		return
	}
	m.buildsStarted.Inc()
}

// BuildSucceeded records a completed build.
func (m *Metrics) BuildSucceeded(duration time.Duration, size int) {
	if m == nil {
		return
	}
	m.buildsSucceeded.Inc()
	m.buildDuration.Observe(duration.Seconds())
	m.snapshotSize.Set(float64(size))
}

// BuildFailed records a hard-failed build.
func (m *Metrics) BuildFailed(duration time.Duration) {
	if m == nil {
		return
	}
	m.buildsFailed.Inc()
	m.buildDuration.Observe(duration.Seconds())
}
