package realtime

import "errors"

var (
	ErrHubClosed      = errors.New("realtime: hub is closed")
	ErrUserIDRequired = errors.New("realtime: user id is required")
)
