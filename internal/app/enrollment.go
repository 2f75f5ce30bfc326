package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// EnrollmentService admits enrollment submissions. It only reads the stores;
// every admitted record reaches the enrollment store through the queue.
//
// Two concurrent first submissions for the same cpf can both miss the cpf
// lookup and both be published under different ids. GetByCPF then returns
// the most recently created of the two.
type EnrollmentService struct {
	enrollments domain.EnrollmentRepository
	groups      AgeGroupResolver
	publisher   domain.EnrollmentPublisher
	validator   domain.TransitionValidator
	metrics     Metrics
}

// NewEnrollmentService creates a service with the given adapters.
func NewEnrollmentService(
	enrollments domain.EnrollmentRepository,
	groups AgeGroupResolver,
	publisher domain.EnrollmentPublisher,
	validator domain.TransitionValidator,
	metrics Metrics,
) *EnrollmentService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &EnrollmentService{
		enrollments: enrollments,
		groups:      groups,
		publisher:   publisher,
		validator:   validator,
		metrics:     metrics,
	}
}

// Admit decides the status of a submission and publishes it when it must be
// finalized. On a publish failure the admission is still returned together
// with a *domain.QueueError.
func (s *EnrollmentService) Admit(ctx context.Context, name, cpf string, age int) (domain.Admission, error) {
	cpf = domain.NormalizeCPF(cpf)
	if len(cpf) != domain.CPFLength {
		return domain.Admission{}, &domain.ValidationError{Field: "cpf", Reason: "must contain 11 digits"}
	}

	existing, err := s.enrollments.GetByCPF(ctx, cpf)
	switch {
	case err == nil:
		return s.readmit(ctx, existing)
	case !errors.Is(err, domain.ErrEnrollmentNotFound):
		return domain.Admission{}, fmt.Errorf("looking up enrollment by cpf: %w", err)
	}

	group, found, err := s.groups.FindGroupForAge(ctx, age)
	if err != nil {
		return domain.Admission{}, err
	}

	var groupID string
	decision := domain.DecisionRejected
	if found {
		groupID = group.ID
		decision = domain.DecisionQueued
	}

	// Rejected first submissions are published too: the finalization
	// consumer is the only writer of the enrollment store.
	enrollment := domain.NewEnrollment(newID(), name, cpf, age, groupID)
	return s.publish(ctx, enrollment, decision)
}

// readmit handles a submission for a cpf that already has a record.
// The stored age is authoritative; the newly submitted one is ignored.
func (s *EnrollmentService) readmit(ctx context.Context, existing domain.Enrollment) (domain.Admission, error) {
	switch existing.Status {
	case domain.StatusApproved:
		return s.decided(ctx, domain.Admission{Enrollment: existing, Decision: domain.DecisionApproved}), nil
	case domain.StatusPending:
		return s.decided(ctx, domain.Admission{Enrollment: existing, Decision: domain.DecisionPending}), nil
	}

	group, found, err := s.groups.FindGroupForAge(ctx, existing.Age)
	if err != nil {
		return domain.Admission{}, err
	}
	if !found {
		return s.decided(ctx, domain.Admission{Enrollment: existing, Decision: domain.DecisionRejected}), nil
	}

	status, err := s.validator.Apply(ctx, existing.Status, domain.EventReconsider)
	if err != nil {
		return domain.Admission{}, err
	}

	existing.Status = status
	existing.AgeGroupID = group.ID
	return s.publish(ctx, existing, domain.DecisionQueued)
}

func (s *EnrollmentService) publish(ctx context.Context, enrollment domain.Enrollment, decision domain.Decision) (domain.Admission, error) {
	admission := domain.Admission{Enrollment: enrollment, Decision: decision}

	if err := s.publisher.Publish(ctx, enrollment); err != nil {
		slog.ErrorContext(ctx, "failed to publish enrollment",
			"enrollment_id", enrollment.ID,
			"status", enrollment.Status,
			"error", err,
		)
		var qErr *domain.QueueError
		if !errors.As(err, &qErr) {
			err = &domain.QueueError{Op: "publish", Err: err}
		}
		return admission, err
	}

	admission.Published = true
	return s.decided(ctx, admission), nil
}

func (s *EnrollmentService) decided(ctx context.Context, admission domain.Admission) domain.Admission {
	slog.InfoContext(ctx, "enrollment admitted",
		"enrollment_id", admission.Enrollment.ID,
		"status", admission.Enrollment.Status,
		"decision", admission.Decision,
		"published", admission.Published,
	)
	s.metrics.AdmissionDecided(admission.Decision)
	return admission
}

// GetByID returns an enrollment by its unique identifier.
func (s *EnrollmentService) GetByID(ctx context.Context, id string) (domain.Enrollment, error) {
	return s.enrollments.GetByID(ctx, id)
}
