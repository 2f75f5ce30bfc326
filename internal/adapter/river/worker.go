package river

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/riverqueue/river"

	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// BatchHandler finalizes a batch of queue messages.
type BatchHandler interface {
	HandleBatch(ctx context.Context, messages []domain.QueueMessage) (app.BatchResult, error)
}

// errNothingApplied cancels a job whose only message was rejected as malformed.
var errNothingApplied = errors.New("enrollment message not applied")

// FinalizeWorker hands each enrollment job to the finalizer as a batch of one.
type FinalizeWorker struct {
	river.WorkerDefaults[EnrollmentJobArgs]
	handler BatchHandler
}

// Work finalizes a single enrollment job. A malformed message is cancelled
// instead of retried; a batch that exhausted its attempts is returned as an
// error so River schedules it again.
func (w *FinalizeWorker) Work(ctx context.Context, job *river.Job[EnrollmentJobArgs]) error {
	id := strconv.FormatInt(job.ID, 10)
	msg := domain.QueueMessage{ID: id, Handle: id, Body: job.EncodedArgs}

	result, err := w.handler.HandleBatch(ctx, []domain.QueueMessage{msg})
	if err != nil {
		return err
	}
	if !result.Applied {
		slog.WarnContext(ctx, "cancelling enrollment job",
			"job_id", job.ID,
			"attempt", job.Attempt,
			"detail", result.Detail,
		)
		return river.JobCancel(errNothingApplied)
	}

	slog.DebugContext(ctx, "enrollment job finalized",
		"job_id", job.ID,
		"enrollment_id", job.Args.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// Compile-time check: CompletionAcker implements domain.MessageAcker.
var _ domain.MessageAcker = CompletionAcker{}

// CompletionAcker acknowledges River deliveries. A job is removed from the
// queue when its worker returns nil, so there is nothing left to delete.
type CompletionAcker struct{}

func (CompletionAcker) DeleteBatch(context.Context, []domain.QueueMessage) error { return nil }
