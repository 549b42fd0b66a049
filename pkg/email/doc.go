// Package email sends transactional email through a pluggable EmailSender.
//
// Implementations:
//   - SMTPClient sends through any SMTP relay (gopkg.in/mail.v2)
//   - PostmarkClient uses Postmark's transactional API
//   - DevSender writes each message to disk for local development
//   - Unconfigured fails every call with ErrNotConfigured
//
// NewFromConfig picks one from Config, loaded from the environment:
//
//	cfg := config.MustLoad[email.Config]()
//	sender, err := email.NewFromConfig(cfg)
//
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Welcome!",
//		BodyText: "Thanks for signing up.",
//		BodyHTML: "<p>Thanks for signing up.</p>",
//	})
//
// With EMAIL_PROVIDER unset, Postmark is used when POSTMARK_SERVER_TOKEN is
// set, SMTP when SMTP_HOST is set, and Unconfigured otherwise. Unconfigured
// makes queued email deliveries fail and retry until a transport appears.
//
// Errors are sentinels checked with errors.Is: ErrInvalidConfig,
// ErrInvalidParams, ErrFailedToSendEmail and ErrNotConfigured.
package email
