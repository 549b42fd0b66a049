package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/mail.v2"
)

// SMTPClient sends email through an SMTP relay.
type SMTPClient struct {
	dialer *mail.Dialer
	from   string
	reply  string
}

// NewSMTPClient creates an SMTP-backed email sender.
func NewSMTPClient(cfg Config) (*SMTPClient, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%w: SMTPHost is required", ErrInvalidConfig)
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("%w: SMTPPort must be positive", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.SupportEmail != "" && !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}

	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.SSL = cfg.SMTPSecure
	d.StartTLSPolicy = mail.OpportunisticStartTLS

	return &SMTPClient{dialer: d, from: cfg.SenderEmail, reply: cfg.SupportEmail}, nil
}

// Message builds the MIME message for params: a text part with an optional
// HTML alternative.
func (c *SMTPClient) Message(params SendEmailParams) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", params.SendTo)
	m.SetHeader("Subject", params.Subject)
	if c.reply != "" {
		m.SetHeader("Reply-To", c.reply)
	}
	if params.Tag != "" {
		m.SetHeader("X-Tag", params.Tag)
	}
	if params.NotificationID != "" {
		m.SetHeader(HeaderNotificationID, params.NotificationID)
	}

	switch {
	case params.BodyText != "" && params.BodyHTML != "":
		m.SetBody("text/plain", params.BodyText)
		m.AddAlternative("text/html", params.BodyHTML)
	case params.BodyHTML != "":
		m.SetBody("text/html", params.BodyHTML)
	default:
		m.SetBody("text/plain", params.BodyText)
	}
	return m
}

// SendEmail dials the relay and sends one message. The dial is abandoned
// when ctx is done.
func (c *SMTPClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	msg := c.Message(params)
	done := make(chan error, 1)
	go func() {
		done <- c.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Join(ErrFailedToSendEmail, err)
		}
		return nil
	case <-ctx.Done():
		return errors.Join(ErrFailedToSendEmail, ctx.Err())
	}
}
