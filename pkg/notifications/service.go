package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/async"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Emitter pushes a realtime event to every live connection of a user and
// reports whether at least one connection accepted it.
type Emitter interface {
	EmitToUser(ctx context.Context, userID, event string, payload any) bool
}

// EnqueueFunc schedules queued delivery of a notification on channel.
type EnqueueFunc func(ctx context.Context, notificationID string, channel Channel, availableAt time.Time) error

// CreateParams describes a notification to create.
type CreateParams struct {
	UserID  string
	Type    string
	Title   string
	Body    string
	Payload map[string]any
	Channel Channel
	// SendNow marks an in-app notification delivered at creation time.
	SendNow bool
}

// BulkResult summarizes a NotifyUsers run.
type BulkResult struct {
	Created int
	Failed  int
}

// Service is the producer and consumer entry point of the notification system.
type Service struct {
	storage Storage
	emitter Emitter
	enqueue EnqueueFunc
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEmitter sets the realtime emitter used for the immediate push path.
func WithEmitter(e Emitter) ServiceOption {
	return func(s *Service) {
		s.emitter = e
	}
}

// WithEnqueuer sets the function that schedules queued delivery.
func WithEnqueuer(fn EnqueueFunc) ServiceOption {
	return func(s *Service) {
		s.enqueue = fn
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides notification id generation.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService creates a notification service over storage.
func NewService(storage Storage, opts ...ServiceOption) *Service {
	s := &Service{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("notifications"))
	return s
}

// CreateNotification persists a notification, pushes it to live connections
// of the user and schedules queued delivery for non in-app channels.
//
// Realtime and enqueue failures are logged and never fail the call: the
// notification is already persisted at that point.
func (s *Service) CreateNotification(ctx context.Context, params CreateParams) (*Notification, error) {
	channel, err := ParseChannel(string(params.Channel))
	if err != nil {
		return nil, err
	}
	if err := validate(params); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	notif := Notification{
		ID:        s.newID(),
		UserID:    params.UserID,
		Type:      params.Type,
		Title:     params.Title,
		Body:      params.Body,
		Payload:   params.Payload,
		Channel:   channel,
		SentAt:    now,
		CreatedAt: now,
	}
	if notif.Payload == nil {
		notif.Payload = map[string]any{}
	}

	if err := s.storage.Create(ctx, notif); err != nil {
		return nil, err
	}

	log := s.logger.With(logger.NotificationID(notif.ID), logger.UserID(notif.UserID), logger.Channel(channel))

	if s.emitter == nil || !s.emitter.EmitToUser(ctx, notif.UserID, EventCreated, newCreatedEvent(notif)) {
		log.DebugContext(ctx, "no live connection for realtime push")
	}

	switch {
	case channel == ChannelInApp && params.SendNow:
		if _, err := s.storage.MarkDelivered(ctx, notif.ID, now); err != nil {
			log.ErrorContext(ctx, "failed to mark notification delivered", logger.Error(err))
		} else {
			notif.DeliveredAt = &now
		}
	case channel != ChannelInApp:
		if s.enqueue == nil {
			log.WarnContext(ctx, "no delivery queue configured, notification will not be delivered")
			break
		}
		if err := s.enqueue(ctx, notif.ID, channel, now); err != nil {
			log.ErrorContext(ctx, "failed to enqueue delivery", logger.Error(err))
		}
	}

	return &notif, nil
}

// NotifyUsers creates the same notification for every user on a background
// goroutine detached from ctx cancellation. Each failure is logged with the
// user id. The returned future may be ignored.
func (s *Service) NotifyUsers(ctx context.Context, userIDs []string, params CreateParams) *async.Future[BulkResult] {
	bg := context.WithoutCancel(ctx)
	return async.Async(bg, userIDs, func(ctx context.Context, ids []string) (BulkResult, error) {
		var res BulkResult
		for _, id := range ids {
			p := params
			p.UserID = id
			if _, err := s.CreateNotification(ctx, p); err != nil {
				res.Failed++
				s.logger.ErrorContext(ctx, "bulk notification failed",
					logger.UserID(id),
					slog.String("type", params.Type),
					logger.Error(err),
				)
				continue
			}
			res.Created++
		}
		return res, nil
	})
}

// List returns one page of the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, page, limit int) (*Page, error) {
	return s.storage.List(ctx, userID, page, limit)
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, id, userID string) (*Notification, error) {
	return s.storage.MarkRead(ctx, id, userID)
}

// MarkAllRead flags every unread notification of the user and returns the count.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.storage.MarkAllRead(ctx, userID)
}

// CountUnread returns the number of unread notifications of the user.
func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.storage.CountUnread(ctx, userID)
}

func validate(p CreateParams) error {
	var errs []error
	if strings.TrimSpace(p.UserID) == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if strings.TrimSpace(p.Type) == "" {
		errs = append(errs, errors.New("type is required"))
	}
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidNotification, errors.Join(errs...))
	}
	return nil
}
