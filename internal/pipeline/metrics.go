package pipeline

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var durationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Metrics holds the run instrumentation shared by every pipeline.
type Metrics struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	collected *prometheus.CounterVec
}

// NewMetrics creates the run collectors and registers them with reg. Collectors that
// are already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dora_collector",
			Name:      "runs_total",
			Help:      "Count of pipeline runs by outcome",
		}, []string{"pipeline", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dora_collector",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   durationBuckets,
		}, []string{"pipeline"}),
		collected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dora_collector",
			Name:      "collected_records_total",
			Help:      "Records collected from the source",
		}, []string{"pipeline"}),
	}

	m.runs = register(reg, m.runs)
	m.duration = register(reg, m.duration)
	m.collected = register(reg, m.collected)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
