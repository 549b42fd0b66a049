// Package statemachine provides a generic, guard-aware transition table.
//
// A Table maps (state, event) pairs to target states. It holds no current
// state, so a single table can validate transitions of many persisted
// records at once:
//
//	type status string
//	type event string
//
//	table, err := statemachine.NewTable(
//		statemachine.WithTransition[status, event]("pending", "processing", "claim"),
//		statemachine.WithTransition[status, event]("processing", "pending", "fail",
//			statemachine.WithGuard[status, event](func(_ context.Context, _ status, _ event, data any) bool {
//				return data.(int) < 5
//			})),
//		statemachine.WithTransition[status, event]("processing", "failed", "fail"),
//	)
//
//	next, err := table.Next(ctx, "processing", "fail", attempts)
//
// Transitions sharing a (state, event) pair are tried in registration order
// and the first whose guards pass wins.
package statemachine
