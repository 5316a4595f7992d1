package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics exposes counters/histograms for batch dispatch. A nil
// receiver is valid and records nothing.
type DispatchMetrics struct {
	itemsTotal    *prometheus.CounterVec
	itemLatency   *prometheus.HistogramVec
	batchesTotal  prometheus.Counter
	catalogTotal  *prometheus.CounterVec
	catalogLength *prometheus.GaugeVec
}

// NewDispatchMetrics registers the dispatch collectors on reg, or on the
// default registerer when reg is nil.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nvoip",
			Subsystem: "dispatch",
			Name:      "items_total",
			Help:      "Total work items processed",
		}, []string{"channel", "operation", "outcome"}),
		itemLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nvoip",
			Subsystem: "dispatch",
			Name:      "item_duration_seconds",
			Help:      "Latency of a single work item including the provider call",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel", "operation"}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nvoip",
			Subsystem: "dispatch",
			Name:      "batches_total",
			Help:      "Total batches processed",
		}),
		catalogTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nvoip",
			Subsystem: "catalog",
			Name:      "fetch_total",
			Help:      "Total template catalog fetches",
		}, []string{"channel", "status"}),
		catalogLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nvoip",
			Subsystem: "catalog",
			Name:      "templates",
			Help:      "Number of templates returned by the last catalog fetch",
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.itemsTotal, m.itemLatency, m.batchesTotal, m.catalogTotal, m.catalogLength)
	return m
}

// ObserveItem records the outcome and latency of one work item. outcome is
// "success" or an error kind.
func (m *DispatchMetrics) ObserveItem(channel, operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.itemsTotal.WithLabelValues(label(channel), label(operation), outcome).Inc()
	m.itemLatency.WithLabelValues(label(channel), label(operation)).Observe(seconds)
}

// ObserveBatch counts a processed batch.
func (m *DispatchMetrics) ObserveBatch() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

// ObserveCatalogFetch records a catalog fetch and the resulting size.
func (m *DispatchMetrics) ObserveCatalogFetch(channel string, ok bool, size int) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.catalogTotal.WithLabelValues(channel, status).Inc()
	m.catalogLength.WithLabelValues(channel).Set(float64(size))
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
