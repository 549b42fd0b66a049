// Package delivery is the durable, at-least-once delivery queue behind
// notifications sent over email, push or any other queued channel.
//
// Producers enqueue one Entry per notification and channel through Enqueuer.
// A Worker polls Storage for due entries, claims each one with an atomic
// pending to processing update, loads the notification and hands it to a
// Dispatcher. Success marks the notification delivered (first confirmation
// wins), marks the entry sent and emits a "notification:delivered" realtime
// event. Failure increments attempts and either reschedules the entry after
// Backoff(attempts) or, once MaxAttempts is reached, fails it for good.
//
// Status transitions are validated by a Lifecycle built on the statemachine
// package:
//
//	pending --claim--> processing --succeed--> sent
//	                   processing --fail-----> pending | failed
//	                   processing --release--> pending
//
// Claims are conditional in every Storage implementation, so any number of
// workers can poll the same queue. A worker that loses a claim race skips the
// entry silently.
//
// Basic usage:
//
//	queue, _ := delivery.NewMongoStorage(ctx, db)
//	worker, err := delivery.NewWorker(queue, notificationStore, senders,
//		delivery.WithEmitter(hub),
//		delivery.WithWorkerLogger(log),
//	)
//	g.Go(worker.Run(ctx))
//
// Stuck processing entries, left behind by a crashed worker, are returned to
// pending when WithStaleAfter is set. Failed entries stay in storage for
// inspection until purged with WithFailedRetention.
package delivery
