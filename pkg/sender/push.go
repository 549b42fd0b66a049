package sender

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// PushProvider delivers a push notification to a user's devices.
type PushProvider interface {
	Push(ctx context.Context, n notifications.Notification) error
}

// PushProviderFunc adapts a function to PushProvider.
type PushProviderFunc func(ctx context.Context, n notifications.Notification) error

func (f PushProviderFunc) Push(ctx context.Context, n notifications.Notification) error {
	return f(ctx, n)
}

// Push is the push channel sender. Without a provider it only logs the
// notification and reports success.
type Push struct {
	provider PushProvider
	logger   *slog.Logger
}

// PushOption configures Push.
type PushOption func(*Push)

// WithPushProvider sets the provider that actually delivers pushes.
func WithPushProvider(p PushProvider) PushOption {
	return func(s *Push) {
		s.provider = p
	}
}

// WithPushLogger sets the logger.
func WithPushLogger(l *slog.Logger) PushOption {
	return func(s *Push) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPush creates a push sender.
func NewPush(opts ...PushOption) *Push {
	p := &Push{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Push) Channel() notifications.Channel {
	return notifications.ChannelPush
}

func (p *Push) Send(ctx context.Context, n notifications.Notification) error {
	if p.provider == nil {
		p.logger.InfoContext(ctx, "push provider not configured, skipping send",
			logger.NotificationID(n.ID),
			logger.UserID(n.UserID))
		return nil
	}
	return p.provider.Push(ctx, n)
}
