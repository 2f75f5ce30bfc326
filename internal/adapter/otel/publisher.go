package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// TracingPublisher wraps a domain.EnrollmentPublisher with OpenTelemetry tracing.
type TracingPublisher struct {
	next   domain.EnrollmentPublisher
	tracer trace.Tracer
}

// Compile-time check: TracingPublisher implements domain.EnrollmentPublisher.
var _ domain.EnrollmentPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EnrollmentPublisher) *TracingPublisher {
	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, enrollment domain.Enrollment) error {
	ctx, span := p.tracer.Start(ctx, "EnrollmentPublisher.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("enrollment.id", enrollment.ID),
			attribute.String("enrollment.status", string(enrollment.Status)),
		),
	)
	defer span.End()

	err := p.next.Publish(ctx, enrollment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// TracingAcker wraps a domain.MessageAcker with OpenTelemetry tracing.
type TracingAcker struct {
	next   domain.MessageAcker
	tracer trace.Tracer
}

var _ domain.MessageAcker = (*TracingAcker)(nil)

// NewTracingAcker creates a tracing decorator around the given acker.
func NewTracingAcker(next domain.MessageAcker) *TracingAcker {
	return &TracingAcker{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (a *TracingAcker) DeleteBatch(ctx context.Context, messages []domain.QueueMessage) error {
	ctx, span := a.tracer.Start(ctx, "MessageAcker.DeleteBatch",
		trace.WithAttributes(attribute.Int("batch.size", len(messages))),
	)
	defer span.End()

	err := a.next.DeleteBatch(ctx, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
