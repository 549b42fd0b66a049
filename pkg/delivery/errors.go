package delivery

import "errors"

var (
	// ErrClaimLost is returned by Claim when another worker already moved the
	// entry out of pending. Workers skip such entries silently.
	ErrClaimLost = errors.New("delivery entry already claimed")

	ErrEntryNotFound     = errors.New("delivery entry not found")
	ErrNotProcessing     = errors.New("delivery entry is not processing")
	ErrInvalidStatus     = errors.New("invalid delivery status")
	ErrStorage           = errors.New("delivery storage failure")
	ErrStorageNil        = errors.New("delivery storage is nil")
	ErrNotificationsNil  = errors.New("notification storage is nil")
	ErrDispatcherNil     = errors.New("dispatcher is nil")
	ErrWorkerStarted     = errors.New("delivery worker already started")
	ErrWorkerNotStarted  = errors.New("delivery worker not started")
	ErrNotificationGone  = errors.New("notification missing")
	ErrInvalidMaxAttempt = errors.New("max attempts must be positive")
)
