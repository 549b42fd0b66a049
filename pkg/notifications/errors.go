package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification is not found
	// or is not owned by the requesting user.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrInvalidNotification wraps validation failures of CreateNotification.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrStorage wraps failures of the backing store.
	ErrStorage = errors.New("notification storage failure")
)
