package notification

import "errors"

var (
	ErrMissingUser       = errors.New("missing X-User-ID header")
	ErrInvalidAdminToken = errors.New("invalid admin token")
)
