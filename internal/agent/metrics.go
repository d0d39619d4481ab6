package agent

import "github.com/prometheus/client_golang/prometheus"

// Fetch outcomes recorded in Metrics.Fetches.
const (
	resultHit         = "hit"
	resultMiss        = "miss"
	resultUncached    = "uncached"
	resultFallback    = "fallback"
	resultUnavailable = "unavailable"
	resultPassthrough = "passthrough"
)

// Metrics groups the agent's Prometheus collectors.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	Installs      *prometheus.CounterVec
	Activations   prometheus.Counter
	ActiveVersion *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitemapkeeper",
				Subsystem: "agent",
				Name:      "fetches_total",
				Help:      "Intercepted requests by outcome.",
			},
			[]string{"result"}, // hit|miss|uncached|fallback|unavailable|passthrough
		),
		Installs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitemapkeeper",
				Subsystem: "agent",
				Name:      "installs_total",
				Help:      "Install attempts by version and result.",
			},
			[]string{"version", "result"}, // result=ok|failed
		),
		Activations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitemapkeeper",
				Subsystem: "agent",
				Name:      "activations_total",
				Help:      "Completed activations.",
			},
		),
		ActiveVersion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sitemapkeeper",
				Subsystem: "agent",
				Name:      "active_version",
				Help:      "1 for the version currently serving requests.",
			},
			[]string{"version"},
		),
	}
	reg.MustRegister(m.Fetches, m.Installs, m.Activations, m.ActiveVersion)
	return m
}
