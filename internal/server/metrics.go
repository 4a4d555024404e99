package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

// searchMetrics holds the Prometheus collectors of the palette service.
// Collectors are registered on a per-server registry so that several servers
// (and tests) can coexist in one process.
type searchMetrics struct {
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	runsActive   prometheus.Gauge
	iterations   prometheus.Counter
	accepted     prometheus.Counter
	finalFitness prometheus.Histogram
	runLength    prometheus.Histogram
}

func newSearchMetrics(reg prometheus.Registerer) *searchMetrics {
	factory := promauto.With(reg)
	return &searchMetrics{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "palette",
			Subsystem: "search",
			Name:      "runs_started_total",
			Help:      "Total palette searches started",
		}),
		// Labels: state (stopped, converged, exhausted)
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "palette",
			Subsystem: "search",
			Name:      "runs_finished_total",
			Help:      "Total palette searches finished by terminal state",
		}, []string{"state"}),
		runsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "palette",
			Subsystem: "search",
			Name:      "runs_active",
			Help:      "Palette searches currently running",
		}),
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "palette",
			Subsystem: "search",
			Name:      "iterations_total",
			Help:      "Total completed search iterations",
		}),
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "palette",
			Subsystem: "search",
			Name:      "accepted_moves_total",
			Help:      "Total iterations that applied a move",
		}),
		finalFitness: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "palette",
			Subsystem: "search",
			Name:      "final_fitness",
			Help:      "Fitness of the last recorded iteration of finished runs",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		runLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "palette",
			Subsystem: "search",
			Name:      "run_iterations",
			Help:      "Iterations completed by finished runs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (m *searchMetrics) runStarted() {
	m.runsStarted.Inc()
	m.runsActive.Inc()
}

func (m *searchMetrics) iterationCompleted(accepted bool) {
	m.iterations.Inc()
	if accepted {
		m.accepted.Inc()
	}
}

func (m *searchMetrics) runFinished(state optimization.State, iterations int, metrics []optimization.MetricsRecord) {
	m.runsActive.Dec()
	m.runsFinished.WithLabelValues(string(state)).Inc()
	m.runLength.Observe(float64(iterations))
	if n := len(metrics); n > 0 {
		m.finalFitness.Observe(metrics[n-1].Fitness)
	}
}
