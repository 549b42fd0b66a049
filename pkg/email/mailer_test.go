package email_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  email.SendEmailParams
		wantErr string
	}{
		{
			name:   "text only",
			params: email.SendEmailParams{SendTo: "user@example.com", Subject: "Hi", BodyText: "hello"},
		},
		{
			name:   "html only",
			params: email.SendEmailParams{SendTo: "user@example.com", Subject: "Hi", BodyHTML: "<p>hello</p>"},
		},
		{
			name:    "missing recipient",
			params:  email.SendEmailParams{Subject: "Hi", BodyText: "hello"},
			wantErr: "SendTo is required",
		},
		{
			name:    "malformed recipient",
			params:  email.SendEmailParams{SendTo: "user@", Subject: "Hi", BodyText: "hello"},
			wantErr: "SendTo must be a valid email address",
		},
		{
			name:    "blank subject",
			params:  email.SendEmailParams{SendTo: "user@example.com", Subject: "  ", BodyText: "hello"},
			wantErr: "Subject is required",
		},
		{
			name:    "no body",
			params:  email.SendEmailParams{SendTo: "user@example.com", Subject: "Hi"},
			wantErr: "BodyText or BodyHTML is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.params.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUnconfigured(t *testing.T) {
	t.Parallel()
	err := email.Unconfigured().SendEmail(context.Background(), email.SendEmailParams{})
	assert.ErrorIs(t, err, email.ErrNotConfigured)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     email.Config
		check   func(t *testing.T, s email.EmailSender)
		wantErr error
	}{
		{
			name: "nothing configured",
			cfg:  email.Config{SenderEmail: "no-reply@example.com"},
			check: func(t *testing.T, s email.EmailSender) {
				assert.ErrorIs(t, s.SendEmail(context.Background(), email.SendEmailParams{}), email.ErrNotConfigured)
			},
		},
		{
			name: "smtp host selects smtp",
			cfg:  email.Config{SenderEmail: "no-reply@example.com", SMTPHost: "localhost", SMTPPort: 1025},
			check: func(t *testing.T, s email.EmailSender) {
				assert.IsType(t, &email.SMTPClient{}, s)
			},
		},
		{
			name: "postmark token wins over smtp",
			cfg:  email.Config{SenderEmail: "no-reply@example.com", SMTPHost: "localhost", SMTPPort: 25, PostmarkServerToken: "t"},
			check: func(t *testing.T, s email.EmailSender) {
				assert.IsType(t, &email.PostmarkClient{}, s)
			},
		},
		{
			name: "explicit dev provider",
			cfg:  email.Config{Provider: email.ProviderDev, DevOutputDir: "out"},
			check: func(t *testing.T, s email.EmailSender) {
				assert.IsType(t, &email.DevSender{}, s)
			},
		},
		{
			name:    "explicit smtp without host",
			cfg:     email.Config{Provider: email.ProviderSMTP, SenderEmail: "no-reply@example.com"},
			wantErr: email.ErrInvalidConfig,
		},
		{
			name:    "unknown provider",
			cfg:     email.Config{Provider: "carrier-pigeon"},
			wantErr: email.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := email.NewFromConfig(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}
