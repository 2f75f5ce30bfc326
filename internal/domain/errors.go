package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrAgeGroupNotFound   = errors.New("age group not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// AgeGroupConflictError is returned when a candidate range intersects an existing group.
type AgeGroupConflictError struct {
	MinAge int
	MaxAge int
}

func (e *AgeGroupConflictError) Error() string {
	return fmt.Sprintf("age range [%d, %d] conflicts with an existing age group", e.MinAge, e.MaxAge)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// ValidationError reports malformed input: request fields or queue message bodies.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// QueueError wraps a failure to publish to or acknowledge on the message queue.
type QueueError struct {
	Op  string
	Err error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *QueueError) Unwrap() error { return e.Err }

// StoreError wraps a failure of the underlying store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
