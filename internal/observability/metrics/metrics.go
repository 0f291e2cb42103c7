package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics exposes counters/histograms for the availability
// pipeline: provider queries, cache effectiveness, and build latency.
type AvailabilityMetrics struct {
	freeBusyTotal   *prometheus.CounterVec
	freeBusyRetries prometheus.Counter
	cacheLookups    *prometheus.CounterVec
	buildLatency    *prometheus.HistogramVec
	eventWrites     *prometheus.CounterVec
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		freeBusyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solhealth",
			Subsystem: "availability",
			Name:      "freebusy_requests_total",
			Help:      "Total free/busy provider requests",
		}, []string{"scope", "status"}),
		freeBusyRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solhealth",
			Subsystem: "availability",
			Name:      "freebusy_retries_total",
			Help:      "Total free/busy retries after rate limiting",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solhealth",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Free/busy cache lookups by outcome",
		}, []string{"outcome"}),
		buildLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solhealth",
			Subsystem: "availability",
			Name:      "build_latency_seconds",
			Help:      "Latency of availability computations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		eventWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solhealth",
			Subsystem: "availability",
			Name:      "event_writes_total",
			Help:      "Calendar event write attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.freeBusyTotal, m.freeBusyRetries, m.cacheLookups, m.buildLatency, m.eventWrites)
	return m
}

func (m *AvailabilityMetrics) ObserveFreeBusy(scope, status string) {
	if m == nil {
		return
	}
	m.freeBusyTotal.WithLabelValues(scope, status).Inc()
}

func (m *AvailabilityMetrics) ObserveFreeBusyRetry() {
	if m == nil {
		return
	}
	m.freeBusyRetries.Inc()
}

func (m *AvailabilityMetrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

func (m *AvailabilityMetrics) ObserveBuildLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.buildLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *AvailabilityMetrics) ObserveEventWrite(outcome string) {
	if m == nil {
		return
	}
	m.eventWrites.WithLabelValues(outcome).Inc()
}
