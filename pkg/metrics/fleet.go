package metrics

import "github.com/prometheus/client_golang/prometheus"

// FleetMetrics describes the outcome of fleet location refreshes.
type FleetMetrics struct {
	located      *prometheus.GaugeVec
	unlocated    prometheus.Gauge
	fetchFailure prometheus.Counter
}

func NewFleetMetrics(reg prometheus.Registerer) *FleetMetrics {
	if reg == nil {
		return &FleetMetrics{}
	}
	located := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "fleet",
		Name:      "located_drivers",
		Help:      "Drivers placed on the map by the last refresh, by location source.",
	}, []string{"source"})
	unlocated := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "fleet",
		Name:      "unlocated_drivers",
		Help:      "Drivers with an active job but no displayable coordinate in the last refresh.",
	})
	fetchFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "fleet",
		Name:      "event_fetch_failures_total",
		Help:      "Status event fetches that failed and fell back to site coordinates.",
	})
	reg.MustRegister(located, unlocated, fetchFailure)
	return &FleetMetrics{
		located:      located,
		unlocated:    unlocated,
		fetchFailure: fetchFailure,
	}
}

// SetLocated records the per-source counts of the latest snapshot.
func (f *FleetMetrics) SetLocated(bySource map[string]int, unlocated int) {
	if f == nil || f.located == nil {
		return
	}
	f.located.Reset()
	for source, count := range bySource {
		f.located.WithLabelValues(normalizeLabel(source)).Set(float64(count))
	}
	f.unlocated.Set(float64(unlocated))
}

func (f *FleetMetrics) IncEventFetchFailure() {
	if f == nil || f.fetchFailure == nil {
		return
	}
	f.fetchFailure.Inc()
}
