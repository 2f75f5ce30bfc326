package app_test

import (
	"context"
	"errors"
	"sync"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// --- Age groups ---

type mockGroupRepo struct {
	groups []domain.AgeGroup
	err    error
}

func (m *mockGroupRepo) Create(_ context.Context, g domain.AgeGroup) error {
	if m.err != nil {
		return m.err
	}
	m.groups = append(m.groups, g)
	return nil
}

func (m *mockGroupRepo) Delete(_ context.Context, id string) error {
	for i, g := range m.groups {
		if g.ID == id {
			m.groups = append(m.groups[:i], m.groups[i+1:]...)
			return nil
		}
	}
	return domain.ErrAgeGroupNotFound
}

func (m *mockGroupRepo) List(_ context.Context) ([]domain.AgeGroup, error) {
	return append([]domain.AgeGroup(nil), m.groups...), m.err
}

func (m *mockGroupRepo) FindOverlapping(_ context.Context, minAge, maxAge int) ([]domain.AgeGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.AgeGroup
	for _, g := range m.groups {
		if g.Overlaps(minAge, maxAge) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) FindContaining(_ context.Context, age int) ([]domain.AgeGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.AgeGroup
	for _, g := range m.groups {
		if g.Contains(age) {
			out = append(out, g)
		}
	}
	return out, nil
}

// --- Enrollments ---

type mockEnrollmentRepo struct {
	mu        sync.Mutex
	byID      map[string]domain.Enrollment
	order     []string
	lookupErr error
	upsertErr error
	upserts   int
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{byID: make(map[string]domain.Enrollment)}
}

func (m *mockEnrollmentRepo) put(e domain.Enrollment) {
	if _, ok := m.byID[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.byID[e.ID] = e
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id string) (domain.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return domain.Enrollment{}, m.lookupErr
	}
	e, ok := m.byID[id]
	if !ok {
		return domain.Enrollment{}, domain.ErrEnrollmentNotFound
	}
	return e, nil
}

func (m *mockEnrollmentRepo) GetByCPF(_ context.Context, cpf string) (domain.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return domain.Enrollment{}, m.lookupErr
	}
	for i := len(m.order) - 1; i >= 0; i-- {
		if e := m.byID[m.order[i]]; e.CPF == cpf {
			return e, nil
		}
	}
	return domain.Enrollment{}, domain.ErrEnrollmentNotFound
}

func (m *mockEnrollmentRepo) UpsertBatch(_ context.Context, items []domain.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, e := range items {
		if stored, ok := m.byID[e.ID]; ok && stored.IsTerminal() {
			continue
		}
		m.put(e)
	}
	return nil
}

// --- Queue ---

type mockPublisher struct {
	published []domain.Enrollment
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Enrollment) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, e)
	return nil
}

type mockAcker struct {
	deleted []string
	calls   int
	// failures makes the first n calls fail.
	failures int
}

var errAckUnavailable = errors.New("queue unavailable")

func (m *mockAcker) DeleteBatch(_ context.Context, messages []domain.QueueMessage) error {
	m.calls++
	if m.calls <= m.failures {
		return errAckUnavailable
	}
	for _, msg := range messages {
		m.deleted = append(m.deleted, msg.Handle)
	}
	return nil
}

// --- Transitions ---

// tableValidator applies domain.Transitions directly.
type tableValidator struct{}

func (tableValidator) Apply(_ context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	for _, t := range domain.Transitions {
		if t.Event == event && t.Src == current {
			return t.Dst, nil
		}
	}
	return "", &domain.TransitionError{Event: event, Current: current}
}

// --- Metrics ---

type recordingMetrics struct {
	decisions []domain.Decision
	written   int
	malformed int
	refused   int
	failed    int
	exhausted int
}

func (m *recordingMetrics) AdmissionDecided(d domain.Decision) { m.decisions = append(m.decisions, d) }

func (m *recordingMetrics) BatchProcessed(written, malformed int) {
	m.written += written
	m.malformed += malformed
}

func (m *recordingMetrics) TransitionsRejected(n int) { m.refused += n }
func (m *recordingMetrics) BatchAttemptFailed()       { m.failed++ }
func (m *recordingMetrics) BatchExhausted()           { m.exhausted++ }
