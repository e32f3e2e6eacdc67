package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "procure"

// Recorder exports planning runs as Prometheus metrics. It satisfies
// orchestration.RunObserver.
type Recorder struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cost     *prometheus.GaugeVec
}

// NewRecorder creates a recorder on its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_runs_total",
			Help:      "Planning runs that produced a result, by strategy and status.",
		}, []string{"strategy", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_failures_total",
			Help:      "Planning runs aborted with an error, by strategy and error kind.",
		}, []string{"strategy", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Wall-clock time of a planning run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy"}),
		cost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_total_cost",
			Help:      "Total cost of the latest plan, by strategy.",
		}, []string{"strategy"}),
	}
	r.registry.MustRegister(
		r.runs,
		r.failures,
		r.duration,
		r.cost,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveRun(strategy, status string, elapsed time.Duration, totalCost float64) {
	r.runs.WithLabelValues(strategy, status).Inc()
	r.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	r.cost.WithLabelValues(strategy).Set(totalCost)
}

func (r *Recorder) ObserveFailure(strategy, kind string) {
	r.failures.WithLabelValues(strategy, kind).Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
