package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	adapter "github.com/matheuss0xf/challenge-with-localstack/internal/adapter/otel"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// --- Mock publisher ---

type mockPublisher struct {
	published []domain.Enrollment
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Enrollment) error {
	m.published = append(m.published, e)
	return nil
}

type failingPublisher struct{}

func (p *failingPublisher) Publish(context.Context, domain.Enrollment) error {
	return fmt.Errorf("publish failed")
}

type mockAcker struct {
	deleted int
	err     error
}

func (m *mockAcker) DeleteBatch(_ context.Context, messages []domain.QueueMessage) error {
	if m.err != nil {
		return m.err
	}
	m.deleted += len(messages)
	return nil
}

// --- Tests ---

func TestTracingPublisher_Publish_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockPublisher{}
	pub := adapter.NewTracingPublisher(inner)

	e := domain.NewEnrollment("e-1", "Alice", "123.456.789-00", 15, "g-1")
	if err := pub.Publish(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "EnrollmentPublisher.Publish" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "EnrollmentPublisher.Publish")
	}
	if spans[0].SpanKind != trace.SpanKindProducer {
		t.Errorf("span kind = %v, want %v", spans[0].SpanKind, trace.SpanKindProducer)
	}

	assertAttribute(t, spans[0], "enrollment.id", "e-1")
	assertAttribute(t, spans[0], "enrollment.status", "pending")

	if len(inner.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(inner.published))
	}
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	pub := adapter.NewTracingPublisher(&failingPublisher{})

	e := domain.NewEnrollment("e-1", "Alice", "123.456.789-00", 15, "g-1")
	if err := pub.Publish(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

func TestTracingAcker_DeleteBatch(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockAcker{}
	acker := adapter.NewTracingAcker(inner)

	messages := []domain.QueueMessage{{ID: "1", Handle: "1"}, {ID: "2", Handle: "2"}, {ID: "3", Handle: "3"}}
	if err := acker.DeleteBatch(context.Background(), messages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.deleted != 3 {
		t.Errorf("deleted = %d, want 3", inner.deleted)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "batch.size", "3")
}

func TestTracingAcker_DeleteBatch_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	acker := adapter.NewTracingAcker(&mockAcker{err: fmt.Errorf("queue unavailable")})

	if err := acker.DeleteBatch(context.Background(), []domain.QueueMessage{{ID: "1"}}); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
