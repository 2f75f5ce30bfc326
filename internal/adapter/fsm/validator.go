package fsm

import (
	"context"
	"errors"
	"log/slog"

	loopfsm "github.com/looplab/fsm"

	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// Validator checks enrollment status changes against a transition table
// using looplab/fsm.
type Validator struct {
	events    []loopfsm.EventDesc
	callbacks loopfsm.Callbacks
}

// New creates a validator for the enrollment lifecycle in domain.Transitions.
func New() *Validator {
	return NewWithTransitions(domain.Transitions)
}

// NewWithTransitions creates a validator for an explicit transition table.
func NewWithTransitions(transitions []domain.Transition) *Validator {
	return &Validator{
		events: toEventDescs(transitions),
		callbacks: loopfsm.Callbacks{
			"enter_state": func(ctx context.Context, e *loopfsm.Event) {
				slog.DebugContext(ctx, "enrollment status transition",
					"event", e.Event,
					"from", e.Src,
					"to", e.Dst,
				)
			},
		},
	}
}

// toEventDescs groups transitions by event and destination, so finalize
// from "pending" and from "rejected" becomes one EventDesc with two sources.
func toEventDescs(transitions []domain.Transition) []loopfsm.EventDesc {
	type key struct {
		event domain.Event
		dst   domain.Status
	}
	index := make(map[key]int)
	var out []loopfsm.EventDesc

	for _, t := range transitions {
		k := key{event: t.Event, dst: t.Dst}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, loopfsm.EventDesc{Name: string(t.Event), Dst: string(t.Dst)})
		}
		out[i].Src = append(out[i].Src, string(t.Src))
	}
	return out
}

// Apply returns the status an enrollment moves to when event fires, or a
// *domain.TransitionError when the lifecycle does not allow it. The machine
// is rebuilt per call because looplab/fsm keeps its own current state.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	if !current.Valid() {
		return "", &domain.TransitionError{Event: event, Current: current}
	}

	machine := loopfsm.NewFSM(string(current), v.events, v.callbacks)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{Event: event, Current: current}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}
