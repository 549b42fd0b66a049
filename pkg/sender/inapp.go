package sender

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// InApp is the sender for in-app notifications. The notification record is
// the delivery, so sending always succeeds.
type InApp struct{}

func (InApp) Channel() notifications.Channel {
	return notifications.ChannelInApp
}

func (InApp) Send(context.Context, notifications.Notification) error {
	return nil
}
