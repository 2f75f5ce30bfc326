package river

import (
	"context"
	"database/sql"

	"github.com/riverqueue/river"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// Compile-time check: Publisher implements domain.EnrollmentPublisher.
var _ domain.EnrollmentPublisher = (*Publisher)(nil)

// EnrollmentJobArgs is the enrollment message as a River job. River stores the
// args as JSON, so the encoded args are exactly the queue wire format.
type EnrollmentJobArgs struct {
	domain.EnrollmentMessage
}

// Kind returns the unique job type identifier used by River's job routing.
func (EnrollmentJobArgs) Kind() string { return "enrollment.finalize" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EnrollmentPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues an enrollment for finalization.
func (p *Publisher) Publish(ctx context.Context, enrollment domain.Enrollment) error {
	args := EnrollmentJobArgs{EnrollmentMessage: domain.NewEnrollmentMessage(enrollment)}
	if _, err := p.client.Insert(ctx, args, nil); err != nil {
		return &domain.QueueError{Op: "publish", Err: err}
	}
	return nil
}
