package metrics

import "github.com/prometheus/client_golang/prometheus"

// PricingMetrics counts price resolutions by the precedence tier that produced them.
type PricingMetrics struct {
	resolutions *prometheus.CounterVec
}

func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "pricing",
		Name:      "resolutions_total",
		Help:      "Price resolutions grouped by winning tier, or none.",
	}, []string{"tier"})
	reg.MustRegister(resolutions)
	return &PricingMetrics{resolutions: resolutions}
}

// IncResolution records one resolution. tier is "none" when no list applied.
func (p *PricingMetrics) IncResolution(tier string) {
	if p == nil || p.resolutions == nil {
		return
	}
	p.resolutions.WithLabelValues(normalizeLabel(tier)).Inc()
}
