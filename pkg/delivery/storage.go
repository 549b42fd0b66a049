package delivery

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Storage persists delivery entries. Claim, MarkSent and MarkFailed are
// conditional on the persisted status so concurrent workers cannot both
// resolve the same attempt.
type Storage interface {
	// Enqueue creates a pending entry with zero attempts.
	Enqueue(ctx context.Context, notificationID string, channel notifications.Channel, availableAt time.Time) (*Entry, error)

	// FetchDue returns up to limit pending entries with AvailableAt <= now,
	// oldest first.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]Entry, error)

	// Claim moves an entry from pending to processing. It returns ErrClaimLost
	// when the entry is no longer pending.
	Claim(ctx context.Context, id string, now time.Time) (*Entry, error)

	// MarkSent moves a processing entry to sent.
	MarkSent(ctx context.Context, id string, attempts int, now time.Time) error

	// MarkFailed moves a processing entry to pending or failed.
	MarkFailed(ctx context.Context, id string, upd FailureUpdate) error

	// ListByStatus returns up to limit entries in status, oldest first.
	ListByStatus(ctx context.Context, status Status, limit int) ([]Entry, error)

	// ListByNotification returns every entry of a notification.
	ListByNotification(ctx context.Context, notificationID string) ([]Entry, error)

	// PurgeFailed deletes failed entries last updated before olderThan.
	PurgeFailed(ctx context.Context, olderThan time.Time) (int, error)

	// ReleaseStale returns entries claimed before olderThan and still
	// processing to pending, leaving attempts untouched.
	ReleaseStale(ctx context.Context, olderThan time.Time) (int, error)
}

// NotificationStore is the part of the notification storage the worker needs.
type NotificationStore interface {
	Get(ctx context.Context, id string) (*notifications.Notification, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error)
}

// Dispatcher sends a notification over a channel.
type Dispatcher interface {
	Send(ctx context.Context, channel notifications.Channel, n notifications.Notification) error
}

// Enqueuer adapts s to the function the notification service uses to
// schedule queued delivery.
func Enqueuer(s Storage) notifications.EnqueueFunc {
	return func(ctx context.Context, notificationID string, channel notifications.Channel, availableAt time.Time) error {
		_, err := s.Enqueue(ctx, notificationID, channel, availableAt)
		return err
	}
}
