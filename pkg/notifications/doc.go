// Package notifications stores user notifications and is the single entry
// point producers use to create them.
//
// A Notification is persisted through a Storage (MemoryStorage,
// MongoStorage or PostgresStorage). Service.CreateNotification validates the
// input, persists the record, pushes a "notification:created" event to the
// user's live connections through an Emitter, and hands non in-app channels to
// an EnqueueFunc for durable queued delivery.
//
//	svc := notifications.NewService(storage,
//		notifications.WithEmitter(hub),
//		notifications.WithEnqueuer(delivery.Enqueuer(queue)),
//		notifications.WithLogger(log),
//	)
//
//	n, err := svc.CreateNotification(ctx, notifications.CreateParams{
//		UserID:  userID,
//		Type:    "challenge.created",
//		Title:   "New challenge",
//		Body:    "A new challenge is waiting for you",
//		Channel: notifications.ChannelEmail,
//		Payload: map[string]any{"email": "user@example.com"},
//	})
//
// In-app notifications created with SendNow are marked delivered at creation
// and never queued. In-app notifications without SendNow are only stored and
// pushed.
//
// NotifyUsers fans a notification out to many users on a background goroutine
// that survives cancellation of the caller's context.
package notifications
