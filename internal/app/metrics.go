package app

import "github.com/matheuss0xf/challenge-with-localstack/internal/domain"

// Metrics receives workflow counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	AdmissionDecided(decision domain.Decision)
	BatchProcessed(written, malformed int)
	// TransitionsRejected counts decoded messages dropped because their
	// status cannot move to approved.
	TransitionsRejected(n int)
	BatchAttemptFailed()
	BatchExhausted()
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) AdmissionDecided(domain.Decision) {}
func (NopMetrics) BatchProcessed(int, int)          {}
func (NopMetrics) TransitionsRejected(int)          {}
func (NopMetrics) BatchAttemptFailed()              {}
func (NopMetrics) BatchExhausted()                  {}
