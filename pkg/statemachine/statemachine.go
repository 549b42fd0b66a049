package statemachine

import "context"

// Guard evaluates whether a transition may proceed based on runtime data.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Transition is a state change triggered by an event.
type Transition[S, E comparable] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E] // all must pass
}

// Table holds the allowed transitions of a state machine. It is stateless
// and read-only once built: callers pass the current state in, so one table
// validates many persisted records concurrently.
type Table[S, E comparable] struct {
	transitions map[S]map[E][]Transition[S, E]
}

// NewTable returns a table populated by opts.
func NewTable[S, E comparable](opts ...Option[S, E]) (*Table[S, E], error) {
	t := &Table[S, E]{transitions: make(map[S]map[E][]Transition[S, E])}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table[S, E]) add(tr Transition[S, E]) error {
	var zeroS S
	var zeroE E
	if tr.From == zeroS || tr.To == zeroS || tr.Event == zeroE {
		return ErrInvalidTransition
	}

	if _, ok := t.transitions[tr.From]; !ok {
		t.transitions[tr.From] = make(map[E][]Transition[S, E])
	}
	t.transitions[tr.From][tr.Event] = append(t.transitions[tr.From][tr.Event], tr)
	return nil
}

// Next resolves the target state of event fired in from. Transitions sharing
// from and event are tried in registration order; the first whose guards
// pass wins.
func (t *Table[S, E]) Next(ctx context.Context, from S, event E, data any) (S, error) {
	candidates := t.transitions[from][event]
	if len(candidates) == 0 {
		return from, NewErrNoTransitionAvailable(from, event)
	}

	for _, tr := range candidates {
		if guardsPass(ctx, tr, from, event, data) {
			return tr.To, nil
		}
	}
	return from, NewErrTransitionRejected(from, event)
}

func guardsPass[S, E comparable](ctx context.Context, tr Transition[S, E], from S, event E, data any) bool {
	for _, g := range tr.Guards {
		if g != nil && !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
