package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "perpdesk"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promObserver struct {
	histogram prometheus.Histogram
}

func (p promObserver) Observe(seconds float64) {
	p.histogram.Observe(seconds)
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()

	succeeded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "submissions_succeeded_total",
		Help:      "Order plans accepted in full by the exchange.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "submissions_rejected_total",
		Help:      "Order plans rejected, in whole or per leg, by the exchange.",
	})
	transport := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "transport_failures_total",
		Help:      "Submissions whose exchange-side outcome is unknown.",
	})
	bestEffort := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "best_effort_steps_skipped_total",
		Help:      "Best-effort steps (leverage sync) that failed and were skipped.",
	})
	stepLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "step_latency_seconds",
		Help:      "Latency of individual submission steps.",
		Buckets:   prometheus.DefBuckets,
	})

	registry.MustRegister(succeeded, rejected, transport, bestEffort, stepLatency)

	return &Prometheus{
		Metrics: &Metrics{
			SubmissionsSucceeded: promCounter{succeeded},
			SubmissionsRejected:  promCounter{rejected},
			TransportFailures:    promCounter{transport},
			BestEffortSkipped:    promCounter{bestEffort},
			StepLatency:          promObserver{stepLatency},
		},
		registry: registry,
	}
}

// Handler serves the registry for scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
