package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// HeaderNotificationID carries the notification id on outgoing messages.
const HeaderNotificationID = "X-Notification-ID"

// metadataNotificationID is the Postmark metadata key for the notification id.
// It comes back on bounce and delivery webhooks.
const metadataNotificationID = "notification_id"

// PostmarkClient sends notification email through Postmark's
// transactional API.
type PostmarkClient struct {
	client *postmark.Client
	from   string
	reply  string
	stream string
}

// NewPostmarkClient creates a Postmark-backed email sender.
func NewPostmarkClient(cfg Config) (*PostmarkClient, error) {
	switch {
	case cfg.PostmarkServerToken == "":
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	case cfg.SenderEmail == "":
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	case !emailRegex.MatchString(cfg.SenderEmail):
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	case cfg.SupportEmail != "" && !emailRegex.MatchString(cfg.SupportEmail):
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}

	stream := cfg.PostmarkStream
	if stream == "" {
		stream = "outbound"
	}
	return &PostmarkClient{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.SenderEmail,
		reply:  cfg.SupportEmail,
		stream: stream,
	}, nil
}

// Message builds the Postmark payload for params. Opens are tracked, and
// links only in the HTML part.
func (c *PostmarkClient) Message(params SendEmailParams) postmark.Email {
	msg := postmark.Email{
		From:          c.from,
		ReplyTo:       c.reply,
		To:            params.SendTo,
		Subject:       params.Subject,
		Tag:           params.Tag,
		TextBody:      params.BodyText,
		HTMLBody:      params.BodyHTML,
		MessageStream: c.stream,
		TrackOpens:    true,
	}
	if params.BodyHTML != "" {
		msg.TrackLinks = "HtmlOnly"
	}
	if params.NotificationID != "" {
		msg.Metadata = map[string]string{metadataNotificationID: params.NotificationID}
		msg.Headers = []postmark.Header{{Name: HeaderNotificationID, Value: params.NotificationID}}
	}
	return msg
}

// SendEmail implements EmailSender.
func (c *PostmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, c.Message(params))
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error %d for %s: %s", resp.ErrorCode, params.SendTo, resp.Message),
		)
	}
	return nil
}
