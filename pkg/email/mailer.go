package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams describes one notification email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyText string `json:"body_text,omitempty"`
	BodyHTML string `json:"body_html,omitempty"`
	// Tag is the notification type, used by providers to group messages.
	Tag string `json:"tag,omitempty"`
	// NotificationID links the message back to the notification it delivers.
	NotificationID string `json:"notification_id,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the recipient, subject and that at least one body is set.
func (p SendEmailParams) Validate() error {
	var errs []error
	if p.SendTo == "" {
		errs = append(errs, errors.New("SendTo is required"))
	} else if !emailRegex.MatchString(p.SendTo) {
		errs = append(errs, errors.New("SendTo must be a valid email address"))
	}
	if strings.TrimSpace(p.Subject) == "" {
		errs = append(errs, errors.New("Subject is required"))
	}
	if p.BodyText == "" && p.BodyHTML == "" {
		errs = append(errs, errors.New("BodyText or BodyHTML is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
	}
	return nil
}

// IsValidAddress reports whether s looks like an email address.
func IsValidAddress(s string) bool {
	return emailRegex.MatchString(s)
}

type unconfigured struct{}

// Unconfigured returns a sender that fails every call with ErrNotConfigured.
// It stands in when no transport is configured so queued email deliveries
// fail and retry instead of being dropped.
func Unconfigured() EmailSender {
	return unconfigured{}
}

func (unconfigured) SendEmail(context.Context, SendEmailParams) error {
	return ErrNotConfigured
}
