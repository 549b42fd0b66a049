package email

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderAuto     = ""
	ProviderSMTP     = "smtp"
	ProviderPostmark = "postmark"
	ProviderDev      = "dev"
	ProviderNone     = "none"
)

// Config holds email service configuration. Every transport is optional:
// with none configured NewFromConfig returns the Unconfigured sender.
type Config struct {
	Provider string `env:"EMAIL_PROVIDER"`

	SenderEmail  string `env:"SMTP_FROM" envDefault:"no-reply@example.com"`
	SupportEmail string `env:"SUPPORT_EMAIL"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPSecure   bool   `env:"SMTP_SECURE" envDefault:"false"`
	SMTPUsername string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkStream       string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`

	DevOutputDir string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// NewFromConfig picks a transport. An explicit Provider wins; otherwise
// Postmark is used when its token is set, then SMTP when a host is set.
func NewFromConfig(cfg Config) (EmailSender, error) {
	switch cfg.Provider {
	case ProviderSMTP:
		return NewSMTPClient(cfg)
	case ProviderPostmark:
		return NewPostmarkClient(cfg)
	case ProviderDev:
		return NewDevSender(cfg.DevOutputDir), nil
	case ProviderNone:
		return Unconfigured(), nil
	case ProviderAuto:
	default:
		return nil, ErrInvalidConfig
	}

	switch {
	case cfg.PostmarkServerToken != "":
		return NewPostmarkClient(cfg)
	case cfg.SMTPHost != "":
		return NewSMTPClient(cfg)
	default:
		return Unconfigured(), nil
	}
}
