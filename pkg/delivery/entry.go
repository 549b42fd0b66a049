package delivery

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Status is the position of an Entry in its delivery lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Entry is one scheduled delivery attempt of a notification over one channel.
type Entry struct {
	ID             string                `json:"id" bson:"_id"`
	NotificationID string                `json:"notification_id" bson:"notification_id"`
	Channel        notifications.Channel `json:"channel" bson:"channel"`
	Status         Status                `json:"status" bson:"status"`
	Attempts       int                   `json:"attempts" bson:"attempts"`
	LastError      *string               `json:"last_error,omitempty" bson:"last_error"`
	AvailableAt    time.Time             `json:"available_at" bson:"available_at"`
	ClaimedAt      *time.Time            `json:"claimed_at,omitempty" bson:"claimed_at"`
	CreatedAt      time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at" bson:"updated_at"`
}

// FailureUpdate records the outcome of a failed attempt.
type FailureUpdate struct {
	Status      Status // StatusPending to retry, StatusFailed when exhausted
	Attempts    int
	LastError   string
	AvailableAt time.Time
	UpdatedAt   time.Time
}

// BatchResult summarizes one ProcessBatch run.
type BatchResult struct {
	Fetched   int
	Sent      int
	Retried   int
	Failed    int
	ClaimLost int
	Errors    int
}
