// Package metrics exposes the submission pipeline's counters. Consumers
// that don't scrape can pass the no-op set; the pipeline never checks which
// one it holds.
package metrics

type Counter interface {
	Inc()
}

type Observer interface {
	Observe(seconds float64)
}

type Metrics struct {
	SubmissionsSucceeded Counter
	SubmissionsRejected  Counter
	TransportFailures    Counter
	BestEffortSkipped    Counter
	StepLatency          Observer
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopObserver struct{}

func (noopObserver) Observe(float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		SubmissionsSucceeded: n,
		SubmissionsRejected:  n,
		TransportFailures:    n,
		BestEffortSkipped:    n,
		StepLatency:          noopObserver{},
	}
}
