package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors of the refresh cycle.
type Metrics struct {
	Cycles      *prometheus.CounterVec
	Duration    prometheus.Histogram
	Records     prometheus.Gauge
	Dropped     prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// Cycle results used as the "result" label.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
)

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rdi_refresh_cycles_total",
			Help: "Refresh cycles by result.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rdi_refresh_duration_seconds",
			Help:    "Wall time of completed refresh cycles.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		Records: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdi_refresh_records",
			Help: "Records kept by the last successful cycle.",
		}),
		Dropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdi_refresh_dropped_records",
			Help: "Records dropped by the retention filter in the last successful cycle.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdi_refresh_last_success_timestamp_seconds",
			Help: "Unix time of the last successful cycle.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Cycles, m.Duration, m.Records, m.Dropped, m.LastSuccess)
	}
	return m
}
