package notifications

import (
	"context"
	"time"
)

// Storage handles notification persistence and retrieval.
type Storage interface {
	// Create stores a new notification. ID, SentAt and CreatedAt are set by the caller.
	Create(ctx context.Context, notif Notification) error

	// Get returns a notification by id regardless of owner.
	Get(ctx context.Context, id string) (*Notification, error)

	// List returns one page of a user's notifications, newest first.
	List(ctx context.Context, userID string, page, limit int) (*Page, error)

	// MarkRead flags one notification as read. It returns ErrNotificationNotFound
	// when the notification does not exist or belongs to another user.
	MarkRead(ctx context.Context, id, userID string) (*Notification, error)

	// MarkAllRead flags every unread notification of the user and returns how many changed.
	MarkAllRead(ctx context.Context, userID string) (int, error)

	// CountUnread returns unread count for user.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkDelivered sets DeliveredAt if it is still unset and reports whether
	// this call set it.
	MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error)
}

// Page is one page of a user's notifications.
type Page struct {
	Items []Notification `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

// offset converts a 1-based page into a row offset; pages below 1 count as 1.
func offset(page, limit int) (int, int) {
	page = max(page, 1)
	return page, (page - 1) * max(limit, 0)
}
