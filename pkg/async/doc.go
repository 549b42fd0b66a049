// Package async runs computations on background goroutines and hands back a
// generic Future for their result.
//
// Async starts the function and returns immediately. Callers wait with Await
// or AwaitWithTimeout. WaitAll collects a group of futures and joins their
// errors.
//
// A panic inside the function never escapes the goroutine: the future
// completes with an error wrapping ErrPanic. The delivery worker relies on
// this to treat a panicking sender as an ordinary failed attempt.
//
// # Usage
//
//	future := async.Async(ctx, ids, func(ctx context.Context, ids []string) (int, error) {
//		return process(ctx, ids)
//	})
//
//	// do other work
//	n, err := future.Await()
//
// Fire-and-forget work that must outlive a request should be started on
// context.WithoutCancel(ctx) so request cancellation does not abort it.
package async
