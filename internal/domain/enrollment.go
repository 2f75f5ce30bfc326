package domain

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of an enrollment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known enrollment states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Event represents an action that triggers a state transition.
type Event string

const (
	// EventFinalize is applied by the finalization consumer once a queued
	// enrollment carrying an age group reaches the store.
	EventFinalize Event = "finalize"
	// EventReconsider is applied on re-submission when a previously rejected
	// applicant now falls inside an age group.
	EventReconsider Event = "reconsider"
)

// Transition defines a valid state change: an event moves an enrollment from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the enrollment lifecycle.
// Approved is terminal and has no outgoing transition.
var Transitions = []Transition{
	{Event: EventFinalize, Src: StatusPending, Dst: StatusApproved},
	{Event: EventFinalize, Src: StatusRejected, Dst: StatusApproved},
	{Event: EventReconsider, Src: StatusRejected, Dst: StatusPending},
}

// Enrollment is an applicant's registration together with its eligibility status.
type Enrollment struct {
	ID         string
	Name       string
	CPF        string
	Age        int
	Status     Status
	AgeGroupID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewEnrollment creates an enrollment for a first submission. It is pending when
// an age group matched and rejected otherwise.
func NewEnrollment(id, name, cpf string, age int, ageGroupID string) Enrollment {
	now := time.Now().UTC()
	status := StatusRejected
	if ageGroupID != "" {
		status = StatusPending
	}
	return Enrollment{
		ID:         id,
		Name:       name,
		CPF:        NormalizeCPF(cpf),
		Age:        age,
		Status:     status,
		AgeGroupID: ageGroupID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsTerminal reports whether no further admission or finalization may alter the record.
func (e Enrollment) IsTerminal() bool {
	return e.Status == StatusApproved
}

// CPFLength is the number of digits in a normalized CPF.
const CPFLength = 11

// NormalizeCPF strips every non-digit character. CPF equality is defined on
// the normalized form.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	b.Grow(len(cpf))
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Decision describes what the admission engine did with a submission.
type Decision string

const (
	// DecisionQueued means a pending enrollment was published for finalization.
	DecisionQueued Decision = "queued"
	// DecisionPending means an existing pending enrollment was echoed unchanged.
	DecisionPending Decision = "pending"
	// DecisionRejected means no age group covers the applicant.
	DecisionRejected Decision = "rejected"
	// DecisionApproved means the applicant was already approved.
	DecisionApproved Decision = "approved"
)

// Admission is the result of admitting a submission.
type Admission struct {
	Enrollment Enrollment
	Decision   Decision
	// Published is true when the enrollment was handed to the queue.
	Published bool
}
