package domain

import "context"

// AgeGroupRepository defines the persistence contract for age groups.
// Scans return groups in insertion order.
type AgeGroupRepository interface {
	Create(ctx context.Context, group AgeGroup) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]AgeGroup, error)
	FindOverlapping(ctx context.Context, minAge, maxAge int) ([]AgeGroup, error)
	FindContaining(ctx context.Context, age int) ([]AgeGroup, error)
}

// EnrollmentRepository defines the persistence contract for enrollments.
// GetByCPF returns the most recently created record for a normalized cpf.
// UpsertBatch writes all items atomically and never alters an approved record.
type EnrollmentRepository interface {
	GetByID(ctx context.Context, id string) (Enrollment, error)
	GetByCPF(ctx context.Context, cpf string) (Enrollment, error)
	UpsertBatch(ctx context.Context, items []Enrollment) error
}

// EnrollmentPublisher hands an enrollment to the message queue.
type EnrollmentPublisher interface {
	Publish(ctx context.Context, enrollment Enrollment) error
}

// MessageAcker removes processed messages from the queue using their delivery handles.
type MessageAcker interface {
	DeleteBatch(ctx context.Context, messages []QueueMessage) error
}

// TransitionValidator checks a lifecycle event against the current status and
// returns the destination status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
