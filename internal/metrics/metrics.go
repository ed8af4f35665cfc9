package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagegen_generations_total",
		Help: "Completed generation requests by vendor, delivery mode, and outcome.",
	}, []string{"vendor", "mode", "outcome"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagegen_upstream_errors_total",
		Help: "Upstream provider call failures by vendor and error kind.",
	}, []string{"vendor", "kind"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "imagegen_upstream_call_seconds",
		Help:    "Upstream provider call latency in seconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90, 120},
	}, []string{"vendor"})

	jobTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagegen_job_transitions_total",
		Help: "Batch job state transitions by target status.",
	}, []string{"status"})
)

func CountGeneration(vendor, mode, outcome string) {
	generationsTotal.WithLabelValues(vendor, mode, outcome).Inc()
}

func CountUpstreamError(vendor, kind string) {
	upstreamErrorsTotal.WithLabelValues(vendor, kind).Inc()
}

func ObserveUpstreamCall(vendor string, d time.Duration) {
	upstreamLatency.WithLabelValues(vendor).Observe(d.Seconds())
}

func CountJobTransition(status string) {
	jobTransitionsTotal.WithLabelValues(status).Inc()
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
