package worker

import "github.com/prometheus/client_golang/prometheus"

// Metrics records call outcomes for the worker.
type Metrics struct {
	Calls    *prometheus.CounterVec
	InFlight prometheus.Gauge
	Duration prometheus.Histogram
}

// NewMetrics registers the worker collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namecall",
			Subsystem: "worker",
			Name:      "calls_total",
			Help:      "Name calls handled by the worker, by result.",
		}, []string{"result"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "namecall",
			Subsystem: "worker",
			Name:      "calls_in_flight",
			Help:      "Name calls currently being worked on.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "namecall",
			Subsystem: "worker",
			Name:      "call_duration_seconds",
			Help:      "Time spent producing a greeting.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 7.5, 10},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.InFlight, m.Duration)
	}
	return m
}
