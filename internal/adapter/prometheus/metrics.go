// Package prometheus records application counters for admissions and
// finalization batches and exposes them for scraping.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// Recorder implements app.Metrics on Prometheus counters.
type Recorder struct {
	gatherer prometheus.Gatherer

	Admissions     *prometheus.CounterVec
	Finalized      prometheus.Counter
	Malformed      prometheus.Counter
	Refused        prometheus.Counter
	AttemptsFailed prometheus.Counter
	Exhausted      prometheus.Counter
}

var _ app.Metrics = (*Recorder)(nil)

// New registers the counters on reg. Passing prometheus.NewRegistry() keeps
// tests isolated from the default registry.
func New(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		Admissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agegate_admissions_total",
			Help: "Enrollment submissions by admission decision",
		}, []string{"decision"}), // decision: queued, pending, rejected, approved

		Finalized: f.NewCounter(prometheus.CounterOpts{
			Name: "agegate_finalized_enrollments_total",
			Help: "Enrollments written by the finalization consumer",
		}),

		Malformed: f.NewCounter(prometheus.CounterOpts{
			Name: "agegate_malformed_messages_total",
			Help: "Queue messages skipped because they could not be decoded",
		}),

		Refused: f.NewCounter(prometheus.CounterOpts{
			Name: "agegate_refused_transitions_total",
			Help: "Queue messages skipped because their status cannot move to approved",
		}),

		AttemptsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "agegate_batch_attempt_failures_total",
			Help: "Finalization batch attempts that failed and were retried or abandoned",
		}),

		Exhausted: f.NewCounter(prometheus.CounterOpts{
			Name: "agegate_batches_exhausted_total",
			Help: "Finalization batches left to queue redelivery after the attempt bound",
		}),
	}
}

// AdmissionDecided counts one admission by its decision.
func (r *Recorder) AdmissionDecided(decision domain.Decision) {
	if r != nil {
		r.Admissions.WithLabelValues(string(decision)).Inc()
	}
}

// BatchProcessed counts the records written and the messages skipped in a batch.
func (r *Recorder) BatchProcessed(written, malformed int) {
	if r == nil {
		return
	}
	r.Finalized.Add(float64(written))
	r.Malformed.Add(float64(malformed))
}

func (r *Recorder) TransitionsRejected(n int) {
	if r != nil {
		r.Refused.Add(float64(n))
	}
}

func (r *Recorder) BatchAttemptFailed() {
	if r != nil {
		r.AttemptsFailed.Inc()
	}
}

func (r *Recorder) BatchExhausted() {
	if r != nil {
		r.Exhausted.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
