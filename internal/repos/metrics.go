package repos

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opProbe   = "probe"
	opRefresh = "refresh"
	opFetch   = "fetch"

	resultStarted = "started"
	resultDropped = "dropped"
)

// Metrics is safe to use as a nil pointer, which records nothing.
type Metrics struct {
	entries     prometheus.Gauge
	unavailable prometheus.Gauge
	bulk        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	saveErrors  prometheus.Counter
}

// NewMetrics registers the registry collectors with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "repodash",
			Name:      "entries",
			Help:      "Number of tracked repositories.",
		}),
		unavailable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "repodash",
			Name:      "entries_unavailable",
			Help:      "Number of tracked repositories whose last status update failed.",
		}),
		bulk: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repodash",
			Name:      "bulk_operations_total",
			Help:      "Bulk operations requested, by result.",
		}, []string{"result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "repodash",
			Name:      "entry_operation_duration_seconds",
			Help:      "Duration of per-repository status operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		saveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "repodash",
			Name:      "save_errors_total",
			Help:      "Failed writes of the repository list.",
		}),
	}
}

func (m *Metrics) observe(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) bulkRequested(result string) {
	if m == nil {
		return
	}
	m.bulk.WithLabelValues(result).Inc()
}

func (m *Metrics) saveFailed() {
	if m == nil {
		return
	}
	m.saveErrors.Inc()
}

func (m *Metrics) setEntries(entries []*Entry) {
	if m == nil {
		return
	}

	unavailable := 0
	for _, e := range entries {
		if !e.Status().Available {
			unavailable++
		}
	}

	m.entries.Set(float64(len(entries)))
	m.unavailable.Set(float64(unavailable))
}
