package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

type admissionFixture struct {
	enrollments *mockEnrollmentRepo
	groups      *mockGroupRepo
	publisher   *mockPublisher
	metrics     *recordingMetrics
	svc         *app.EnrollmentService
}

func newAdmissionFixture(groups ...domain.AgeGroup) *admissionFixture {
	f := &admissionFixture{
		enrollments: newMockEnrollmentRepo(),
		groups:      &mockGroupRepo{groups: groups},
		publisher:   &mockPublisher{},
		metrics:     &recordingMetrics{},
	}
	f.svc = app.NewEnrollmentService(
		f.enrollments,
		app.NewAgeGroupService(f.groups),
		f.publisher,
		tableValidator{},
		f.metrics,
	)
	return f
}

func teens() domain.AgeGroup {
	return domain.AgeGroup{ID: "g-teens", MinAge: 10, MaxAge: 20}
}

func TestAdmit_FirstSubmissionInRange(t *testing.T) {
	f := newAdmissionFixture(teens())

	adm, err := f.svc.Admit(context.Background(), "Alice", "123.456.789-00", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if adm.Decision != domain.DecisionQueued {
		t.Errorf("Decision = %q, want %q", adm.Decision, domain.DecisionQueued)
	}
	if adm.Enrollment.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", adm.Enrollment.Status, domain.StatusPending)
	}
	if adm.Enrollment.AgeGroupID != "g-teens" {
		t.Errorf("AgeGroupID = %q, want g-teens", adm.Enrollment.AgeGroupID)
	}
	if adm.Enrollment.CPF != "12345678900" {
		t.Errorf("CPF = %q, want normalized 12345678900", adm.Enrollment.CPF)
	}
	if !adm.Published {
		t.Error("Published should be true")
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("expected exactly 1 publish, got %d", len(f.publisher.published))
	}
	if f.publisher.published[0].ID != adm.Enrollment.ID {
		t.Error("published enrollment should match the returned one")
	}
	if f.enrollments.upserts != 0 {
		t.Error("admission must not write to the enrollment store")
	}
}

func TestAdmit_FirstSubmissionOutOfRange(t *testing.T) {
	f := newAdmissionFixture(teens())

	adm, err := f.svc.Admit(context.Background(), "Bob", "111.111.111-11", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if adm.Decision != domain.DecisionRejected {
		t.Errorf("Decision = %q, want %q", adm.Decision, domain.DecisionRejected)
	}
	if adm.Enrollment.Status != domain.StatusRejected {
		t.Errorf("Status = %q, want %q", adm.Enrollment.Status, domain.StatusRejected)
	}
	if adm.Enrollment.AgeGroupID != "" {
		t.Errorf("AgeGroupID = %q, want empty", adm.Enrollment.AgeGroupID)
	}
	// Rejected records reach the store through the queue as well.
	if len(f.publisher.published) != 1 {
		t.Errorf("expected 1 publish, got %d", len(f.publisher.published))
	}
}

func TestAdmit_NoGroupsConfigured(t *testing.T) {
	f := newAdmissionFixture()

	adm, err := f.svc.Admit(context.Background(), "Bob", "111.111.111-11", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adm.Decision != domain.DecisionRejected {
		t.Errorf("Decision = %q, want %q", adm.Decision, domain.DecisionRejected)
	}
}

func TestAdmit_ApprovedIsEchoed(t *testing.T) {
	f := newAdmissionFixture(teens())
	stored := domain.Enrollment{
		ID: "e1", Name: "Alice", CPF: "12345678900", Age: 15,
		Status: domain.StatusApproved, AgeGroupID: "g-teens", CreatedAt: time.Now(),
	}
	f.enrollments.put(stored)

	adm, err := f.svc.Admit(context.Background(), "Someone Else", "123.456.789-00", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if adm.Decision != domain.DecisionApproved {
		t.Errorf("Decision = %q, want %q", adm.Decision, domain.DecisionApproved)
	}
	if adm.Enrollment.ID != "e1" || adm.Enrollment.Name != "Alice" {
		t.Errorf("expected stored record to be echoed, got %+v", adm.Enrollment)
	}
	if adm.Published || len(f.publisher.published) != 0 {
		t.Error("approved records must not be republished")
	}
}

func TestAdmit_PendingIsEchoed(t *testing.T) {
	f := newAdmissionFixture(teens())
	f.enrollments.put(domain.Enrollment{
		ID: "e1", Name: "Alice", CPF: "12345678900", Age: 15,
		Status: domain.StatusPending, AgeGroupID: "g-teens",
	})

	adm, err := f.svc.Admit(context.Background(), "Alice", "12345678900", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adm.Decision != domain.DecisionPending {
		t.Errorf("Decision = %q, want %q", adm.Decision, domain.DecisionPending)
	}
	if len(f.publisher.published) != 0 {
		t.Error("pending records must not be republished")
	}
}

func TestAdmit_RejectedReconsidered(t *testing.T) {
	f := newAdmissionFixture()
	f.enrollments.put(domain.Enrollment{
		ID: "e1", Name: "Bob", CPF: "11111111111", Age: 15, Status: domain.StatusRejected,
	})

	// A group covering the stored age is added afterwards.
	f.groups.groups = append(f.groups.groups, teens())

	adm, err := f.svc.Admit(context.Background(), "Bob", "111.111.111-11", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if adm.Decision != domain.DecisionQueued {
		t.Errorf("Decision = %q, want %q", adm.Decision, domain.DecisionQueued)
	}
	if adm.Enrollment.ID != "e1" {
		t.Errorf("ID = %q, the existing record should be reused", adm.Enrollment.ID)
	}
	if adm.Enrollment.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", adm.Enrollment.Status, domain.StatusPending)
	}
	if adm.Enrollment.AgeGroupID != "g-teens" {
		t.Errorf("AgeGroupID = %q, want g-teens", adm.Enrollment.AgeGroupID)
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("expected exactly 1 publish, got %d", len(f.publisher.published))
	}
}

func TestAdmit_RejectedStillOutOfRange(t *testing.T) {
	f := newAdmissionFixture(teens())
	f.enrollments.put(domain.Enrollment{
		ID: "e1", Name: "Bob", CPF: "11111111111", Age: 30, Status: domain.StatusRejected,
	})

	// The stored age decides, not the submitted one.
	adm, err := f.svc.Admit(context.Background(), "Bob", "11111111111", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adm.Decision != domain.DecisionRejected {
		t.Errorf("Decision = %q, want %q", adm.Decision, domain.DecisionRejected)
	}
	if len(f.publisher.published) != 0 {
		t.Errorf("expected no publish, got %d", len(f.publisher.published))
	}
}

func TestAdmit_PublishFailure(t *testing.T) {
	f := newAdmissionFixture(teens())
	f.publisher.err = errors.New("broker down")

	adm, err := f.svc.Admit(context.Background(), "Alice", "12345678900", 15)

	var qErr *domain.QueueError
	if !errors.As(err, &qErr) {
		t.Fatalf("expected QueueError, got %v", err)
	}
	if adm.Published {
		t.Error("Published should be false on failure")
	}
	if adm.Enrollment.Status != domain.StatusPending {
		t.Errorf("admission should still carry the decided status, got %q", adm.Enrollment.Status)
	}
	if len(f.metrics.decisions) != 0 {
		t.Error("failed admissions must not be counted as decided")
	}
}

func TestAdmit_LookupFailure(t *testing.T) {
	f := newAdmissionFixture(teens())
	f.enrollments.lookupErr = errors.New("table unavailable")

	if _, err := f.svc.Admit(context.Background(), "Alice", "12345678900", 15); err == nil {
		t.Fatal("expected error")
	}
	if len(f.publisher.published) != 0 {
		t.Error("nothing should be published when the lookup fails")
	}
}

func TestAdmit_GroupLookupFailureIsNotRejection(t *testing.T) {
	f := newAdmissionFixture(teens())
	f.groups.err = errors.New("table unavailable")

	_, err := f.svc.Admit(context.Background(), "Alice", "12345678900", 15)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.publisher.published) != 0 {
		t.Error("a failed group lookup must not publish a rejection")
	}
}

func TestAdmit_RecordsDecision(t *testing.T) {
	f := newAdmissionFixture(teens())
	ctx := context.Background()

	if _, err := f.svc.Admit(ctx, "Alice", "12345678900", 15); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Admit(ctx, "Bob", "11111111111", 50); err != nil {
		t.Fatal(err)
	}

	want := []domain.Decision{domain.DecisionQueued, domain.DecisionRejected}
	if len(f.metrics.decisions) != len(want) {
		t.Fatalf("decisions = %v, want %v", f.metrics.decisions, want)
	}
	for i := range want {
		if f.metrics.decisions[i] != want[i] {
			t.Errorf("decisions[%d] = %q, want %q", i, f.metrics.decisions[i], want[i])
		}
	}
}

func TestGetByID(t *testing.T) {
	f := newAdmissionFixture()
	f.enrollments.put(domain.Enrollment{ID: "e1", CPF: "1", Status: domain.StatusPending})

	got, err := f.svc.GetByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ID != "e1" {
		t.Errorf("ID = %q, want e1", got.ID)
	}

	if _, err := f.svc.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrEnrollmentNotFound) {
		t.Errorf("expected ErrEnrollmentNotFound, got %v", err)
	}
}

func TestAdmit_RejectsCPFWithoutElevenDigits(t *testing.T) {
	f := newAdmissionFixture(teens())

	for _, cpf := range []string{"", "abc", "1", "123.456.789", "123.456.789-000"} {
		_, err := f.svc.Admit(context.Background(), "Alice", cpf, 15)

		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Admit(cpf=%q): expected ValidationError, got %v", cpf, err)
		}
		if vErr.Field != "cpf" {
			t.Errorf("Admit(cpf=%q): Field = %q, want cpf", cpf, vErr.Field)
		}
	}

	if len(f.publisher.published) != 0 {
		t.Errorf("published %d enrollments, want 0", len(f.publisher.published))
	}
	if len(f.metrics.decisions) != 0 {
		t.Errorf("recorded %d decisions, want 0", len(f.metrics.decisions))
	}
}
