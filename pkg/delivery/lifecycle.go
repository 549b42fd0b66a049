package delivery

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/statemachine"
)

// DefaultMaxAttempts is the number of attempts after which an entry fails for good.
const DefaultMaxAttempts = 5

type lifecycleEvent string

const (
	eventClaim   lifecycleEvent = "claim"
	eventSucceed lifecycleEvent = "succeed"
	eventFail    lifecycleEvent = "fail"
)

// Lifecycle validates entry status transitions:
//
//	pending -> processing (claim)
//	processing -> sent (succeed)
//	processing -> pending (fail, attempts < max)
//	processing -> failed (fail, attempts >= max)
//
// sent and failed are terminal. Stale recovery (Storage.ReleaseStale) moves
// processing entries back to pending in bulk and does not consult the table.
type Lifecycle struct {
	table       *statemachine.Table[Status, lifecycleEvent]
	maxAttempts int
}

// NewLifecycle builds the transition table for maxAttempts.
func NewLifecycle(maxAttempts int) (*Lifecycle, error) {
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempt
	}

	retriable := func(_ context.Context, _ Status, _ lifecycleEvent, data any) bool {
		attempts, _ := data.(int)
		return attempts < maxAttempts
	}

	table, err := statemachine.NewTable(
		statemachine.WithTransition[Status, lifecycleEvent](StatusPending, StatusProcessing, eventClaim),
		statemachine.WithTransition[Status, lifecycleEvent](StatusProcessing, StatusSent, eventSucceed),
		statemachine.WithTransition(StatusProcessing, StatusPending, eventFail, statemachine.WithGuard(retriable)),
		statemachine.WithTransition[Status, lifecycleEvent](StatusProcessing, StatusFailed, eventFail),
	)
	if err != nil {
		return nil, err
	}

	return &Lifecycle{table: table, maxAttempts: maxAttempts}, nil
}

// MaxAttempts returns the configured attempt limit.
func (l *Lifecycle) MaxAttempts() int {
	return l.maxAttempts
}

// Claim returns the status after claiming an entry in from.
func (l *Lifecycle) Claim(ctx context.Context, from Status) (Status, error) {
	return l.table.Next(ctx, from, eventClaim, nil)
}

// Succeed returns the status after a successful send.
func (l *Lifecycle) Succeed(ctx context.Context, from Status) (Status, error) {
	return l.table.Next(ctx, from, eventSucceed, nil)
}

// Fail returns the status after a failed send, where attempts already counts
// the failed attempt.
func (l *Lifecycle) Fail(ctx context.Context, from Status, attempts int) (Status, error) {
	return l.table.Next(ctx, from, eventFail, attempts)
}
