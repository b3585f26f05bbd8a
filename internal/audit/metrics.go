package audit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricRecordsTotal     = "audit_records_total"
	MetricSkippedTotal     = "audit_skipped_total"
	MetricFailuresTotal    = "audit_failures_total"
	MetricSnapshotDuration = "audit_snapshot_duration_seconds"
)

// Failure stages reported on audit_failures_total.
const (
	StageSnapshot = "snapshot"
	StageBuild    = "build"
	StagePersist  = "persist"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	records          *prometheus.CounterVec
	skipped          *prometheus.CounterVec
	failures         *prometheus.CounterVec
	snapshotDuration prometheus.Histogram
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: MetricRecordsTotal, Help: "Audit records persisted, by module and action"},
			[]string{"module", "action"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: MetricSkippedTotal, Help: "Requests not audited, by reason"},
			[]string{"reason"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: MetricFailuresTotal, Help: "Soft audit failures, by stage"},
			[]string{"stage"},
		),
		snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSnapshotDuration,
			Help:    "Pre-mutation snapshot read latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.records, m.skipped, m.failures, m.snapshotDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) recorded(mod Module, action Action) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(string(mod), string(action)).Inc()
}

func (m *Metrics) skip(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) fail(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) observeSnapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotDuration.Observe(d.Seconds())
}
