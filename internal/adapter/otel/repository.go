package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

const tracerName = "github.com/matheuss0xf/challenge-with-localstack/internal/adapter/otel"

// TracingAgeGroupRepository wraps a domain.AgeGroupRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingAgeGroupRepository struct {
	next   domain.AgeGroupRepository
	tracer trace.Tracer
}

// Compile-time check: TracingAgeGroupRepository implements domain.AgeGroupRepository.
var _ domain.AgeGroupRepository = (*TracingAgeGroupRepository)(nil)

// NewTracingAgeGroupRepository creates a tracing decorator around the given repository.
func NewTracingAgeGroupRepository(next domain.AgeGroupRepository) *TracingAgeGroupRepository {
	return &TracingAgeGroupRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingAgeGroupRepository) Create(ctx context.Context, group domain.AgeGroup) error {
	ctx, span := r.tracer.Start(ctx, "AgeGroupRepository.Create",
		trace.WithAttributes(
			attribute.String("age_group.id", group.ID),
			attribute.Int("age_group.min_age", group.MinAge),
			attribute.Int("age_group.max_age", group.MaxAge),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, group)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingAgeGroupRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "AgeGroupRepository.Delete",
		trace.WithAttributes(attribute.String("age_group.id", id)),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingAgeGroupRepository) List(ctx context.Context) ([]domain.AgeGroup, error) {
	ctx, span := r.tracer.Start(ctx, "AgeGroupRepository.List")
	defer span.End()

	groups, err := r.next.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(groups)))
	return groups, nil
}

func (r *TracingAgeGroupRepository) FindOverlapping(ctx context.Context, minAge, maxAge int) ([]domain.AgeGroup, error) {
	ctx, span := r.tracer.Start(ctx, "AgeGroupRepository.FindOverlapping",
		trace.WithAttributes(
			attribute.Int("age_group.min_age", minAge),
			attribute.Int("age_group.max_age", maxAge),
		),
	)
	defer span.End()

	groups, err := r.next.FindOverlapping(ctx, minAge, maxAge)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(groups)))
	return groups, nil
}

func (r *TracingAgeGroupRepository) FindContaining(ctx context.Context, age int) ([]domain.AgeGroup, error) {
	ctx, span := r.tracer.Start(ctx, "AgeGroupRepository.FindContaining",
		trace.WithAttributes(attribute.Int("enrollment.age", age)),
	)
	defer span.End()

	groups, err := r.next.FindContaining(ctx, age)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(groups)))
	return groups, nil
}

// TracingEnrollmentRepository wraps a domain.EnrollmentRepository with OpenTelemetry tracing.
// CPFs are never attached to spans.
type TracingEnrollmentRepository struct {
	next   domain.EnrollmentRepository
	tracer trace.Tracer
}

var _ domain.EnrollmentRepository = (*TracingEnrollmentRepository)(nil)

// NewTracingEnrollmentRepository creates a tracing decorator around the given repository.
func NewTracingEnrollmentRepository(next domain.EnrollmentRepository) *TracingEnrollmentRepository {
	return &TracingEnrollmentRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingEnrollmentRepository) GetByID(ctx context.Context, id string) (domain.Enrollment, error) {
	ctx, span := r.tracer.Start(ctx, "EnrollmentRepository.GetByID",
		trace.WithAttributes(attribute.String("enrollment.id", id)),
	)
	defer span.End()

	e, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return e, err
	}

	span.SetAttributes(attribute.String("enrollment.status", string(e.Status)))
	return e, nil
}

func (r *TracingEnrollmentRepository) GetByCPF(ctx context.Context, cpf string) (domain.Enrollment, error) {
	ctx, span := r.tracer.Start(ctx, "EnrollmentRepository.GetByCPF")
	defer span.End()

	e, err := r.next.GetByCPF(ctx, cpf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return e, err
	}

	span.SetAttributes(
		attribute.String("enrollment.id", e.ID),
		attribute.String("enrollment.status", string(e.Status)),
	)
	return e, nil
}

func (r *TracingEnrollmentRepository) UpsertBatch(ctx context.Context, items []domain.Enrollment) error {
	ctx, span := r.tracer.Start(ctx, "EnrollmentRepository.UpsertBatch",
		trace.WithAttributes(attribute.Int("batch.size", len(items))),
	)
	defer span.End()

	err := r.next.UpsertBatch(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
