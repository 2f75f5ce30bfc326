package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// MaxBatchAttempts bounds how many times HandleBatch runs a failing batch.
const MaxBatchAttempts = 3

// BatchResult is reported back to the infrastructure that delivered a batch.
type BatchResult struct {
	StatusCode int
	Detail     string
	// Applied is true when at least one message was written and acknowledged.
	Applied  bool
	Attempts int
}

// Finalizer drains enrollment messages into the enrollment store. Writes are
// idempotent upserts keyed by id, so redelivered messages are harmless.
type Finalizer struct {
	repo        domain.EnrollmentRepository
	acker       domain.MessageAcker
	validator   domain.TransitionValidator
	metrics     Metrics
	maxAttempts int
}

// NewFinalizer creates a finalizer with the given adapters.
func NewFinalizer(
	repo domain.EnrollmentRepository,
	acker domain.MessageAcker,
	validator domain.TransitionValidator,
	metrics Metrics,
) *Finalizer {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Finalizer{
		repo:        repo,
		acker:       acker,
		validator:   validator,
		metrics:     metrics,
		maxAttempts: MaxBatchAttempts,
	}
}

// HandleBatch runs ProcessBatch up to MaxBatchAttempts times. Once the bound
// is exhausted it returns a failure result and the last error so the caller
// can leave the batch to the queue's own redelivery.
func (f *Finalizer) HandleBatch(ctx context.Context, messages []domain.QueueMessage) (BatchResult, error) {
	slog.InfoContext(ctx, "receiving messages", "count", len(messages))

	var lastErr error
	attempt := 0
	for attempt < f.maxAttempts {
		attempt++

		applied, err := f.ProcessBatch(ctx, messages)
		if err == nil {
			if !applied {
				slog.WarnContext(ctx, "no valid messages processed")
				return BatchResult{StatusCode: http.StatusOK, Detail: "No valid messages processed.", Attempts: attempt}, nil
			}
			return BatchResult{StatusCode: http.StatusOK, Detail: "Messages processed successfully!", Applied: true, Attempts: attempt}, nil
		}

		lastErr = err
		f.metrics.BatchAttemptFailed()
		slog.WarnContext(ctx, "finalization attempt failed",
			"attempt", attempt,
			"max_attempts", f.maxAttempts,
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}

	f.metrics.BatchExhausted()
	slog.ErrorContext(ctx, "failed to process messages after multiple attempts", "attempts", attempt)
	return BatchResult{
		StatusCode: http.StatusInternalServerError,
		Detail:     "Error processing messages.",
		Attempts:   attempt,
	}, fmt.Errorf("finalizing batch after %d attempts: %w", attempt, lastErr)
}

// ProcessBatch applies one batch. Malformed messages and messages whose
// transition is refused are logged and left unacknowledged; the rest is
// written in a single upsert and then deleted from the queue. It reports
// whether anything was applied.
func (f *Finalizer) ProcessBatch(ctx context.Context, messages []domain.QueueMessage) (bool, error) {
	items := make([]domain.Enrollment, 0, len(messages))
	processed := make([]domain.QueueMessage, 0, len(messages))
	malformed, refused := 0, 0

	for _, msg := range messages {
		enrollment, err := domain.DecodeEnrollmentMessage(msg.Body)
		if err != nil {
			malformed++
			slog.ErrorContext(ctx, "dropping malformed message", "message_id", msg.ID, "error", err)
			continue
		}

		enrollment, err = f.finalize(ctx, enrollment)
		if err != nil {
			var trErr *domain.TransitionError
			if !errors.As(err, &trErr) {
				return false, err
			}
			refused++
			slog.ErrorContext(ctx, "dropping message with invalid transition", "message_id", msg.ID, "error", err)
			continue
		}

		items = append(items, enrollment)
		processed = append(processed, msg)
	}

	if len(items) == 0 {
		f.metrics.BatchProcessed(0, malformed)
		f.metrics.TransitionsRejected(refused)
		return false, nil
	}

	if err := f.repo.UpsertBatch(ctx, items); err != nil {
		slog.ErrorContext(ctx, "error writing enrollment batch", "count", len(items), "error", err)
		return false, err
	}
	slog.InfoContext(ctx, "enrollments processed successfully", "count", len(items))

	// The store write stands even if the delete fails: a message left on the
	// queue is reprocessed later as a no-op upsert.
	if err := f.acker.DeleteBatch(ctx, processed); err != nil {
		slog.ErrorContext(ctx, "error deleting messages from queue", "count", len(processed), "error", err)
		var qErr *domain.QueueError
		if !errors.As(err, &qErr) {
			err = &domain.QueueError{Op: "delete", Err: err}
		}
		return false, err
	}
	slog.InfoContext(ctx, "messages deleted from queue", "count", len(processed))

	f.metrics.BatchProcessed(len(items), malformed)
	f.metrics.TransitionsRejected(refused)
	return true, nil
}

// finalize upgrades a queued enrollment that carries an age group to approved.
// Approved records and records without a group are written through unchanged.
func (f *Finalizer) finalize(ctx context.Context, e domain.Enrollment) (domain.Enrollment, error) {
	if e.AgeGroupID == "" || e.IsTerminal() {
		return e, nil
	}

	status, err := f.validator.Apply(ctx, e.Status, domain.EventFinalize)
	if err != nil {
		return domain.Enrollment{}, err
	}
	e.Status = status
	return e, nil
}
