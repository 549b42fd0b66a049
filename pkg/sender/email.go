package sender

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Payload keys read by the email sender.
const (
	PayloadEmail = "email"
	PayloadTo    = "to"
	PayloadHTML  = "html"
)

// Email delivers notifications through an email.EmailSender. The recipient
// comes from the payload "email" key, falling back to "to".
type Email struct {
	mailer email.EmailSender
}

// NewEmail returns an email sender. A nil mailer behaves like
// email.Unconfigured.
func NewEmail(mailer email.EmailSender) *Email {
	if mailer == nil {
		mailer = email.Unconfigured()
	}
	return &Email{mailer: mailer}
}

func (e *Email) Channel() notifications.Channel {
	return notifications.ChannelEmail
}

func (e *Email) Send(ctx context.Context, n notifications.Notification) error {
	to, ok := Destination(n)
	if !ok {
		return fmt.Errorf("%w: notification %s", ErrNoDestination, n.ID)
	}

	html, _ := n.PayloadString(PayloadHTML)
	return e.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:         to,
		Subject:        n.Title,
		BodyText:       n.Body,
		BodyHTML:       html,
		Tag:            n.Type,
		NotificationID: n.ID,
	})
}

// Destination returns the recipient address of n.
func Destination(n notifications.Notification) (string, bool) {
	if to, ok := n.PayloadString(PayloadEmail); ok {
		return to, true
	}
	return n.PayloadString(PayloadTo)
}
