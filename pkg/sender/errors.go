package sender

import "errors"

var (
	ErrNoSender      = errors.New("no sender registered for channel")
	ErrNoDestination = errors.New("no destination email")
)
