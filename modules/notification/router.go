package notification

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/binder"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/handler"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const (
	// UserIDHeader carries the authenticated user id, set by the upstream auth layer.
	UserIDHeader = "X-User-ID"
	// AdminTokenHeader carries the operator token checked by RequireAdminToken.
	AdminTokenHeader = "X-Admin-Token"
)

// Service is the consumer side of the notification service.
type Service interface {
	List(ctx context.Context, userID string, page, limit int) (*notifications.Page, error)
	MarkRead(ctx context.Context, id, userID string) (*notifications.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DeadLetters lists delivery entries by status.
type DeadLetters interface {
	ListByStatus(ctx context.Context, status delivery.Status, limit int) ([]delivery.Entry, error)
}

// RouterOptions configures the notification module. Service is required;
// the other parts are mounted only when provided.
type RouterOptions struct {
	Service      Service
	DeadLetters  DeadLetters
	Websocket    http.Handler
	ErrorHandler handler.ErrorHandler

	// AdminMiddleware guards the /admin routes. Without it the dead-letter
	// view is not mounted at all.
	AdminMiddleware []func(http.Handler) http.Handler
}

// Router creates the notification module router.
//
//	r := chi.NewRouter()
//	r.Mount("/", notification.Router(notification.RouterOptions{
//		Service:         svc,
//		DeadLetters:     queue,
//		AdminMiddleware: []func(http.Handler) http.Handler{notification.RequireAdminToken(token)},
//		Websocket:       realtime.NewWebsocketHandler(hub),
//	}))
func Router(opts RouterOptions) chi.Router {
	h := newHandlers(opts)
	r := chi.NewRouter()

	r.Route("/notifications", func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/", h.list)
		r.Get("/unread-count", h.unreadCount)
		r.Post("/mark-all-read", h.markAllRead)
		r.Post("/{id}/read", h.markRead)
	})

	if opts.DeadLetters != nil && len(opts.AdminMiddleware) > 0 {
		r.Route("/admin", func(r chi.Router) {
			r.Use(opts.AdminMiddleware...)
			r.Get("/delivery/failed", h.failed)
		})
	}

	if opts.Websocket != nil {
		r.Handle("/ws", opts.Websocket)
	}

	return r
}

type identity struct {
	UserID string `header:"X-User-ID"`
}

type adminCredentials struct {
	Token string `header:"X-Admin-Token"`
}

var bindHeader = binder.Header()

// RequireUser rejects requests without the X-User-ID header with 401 and
// stores the id in the request context for handler.Context.UserID.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id identity
		if err := bindHeader(r, &id); err != nil || id.UserID == "" {
			_ = handler.JSONError(handler.ErrUnauthorized.Wrap(ErrMissingUser)).Render(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(handler.WithUserID(r.Context(), id.UserID)))
	})
}

// RequireAdminToken admits requests whose X-Admin-Token header equals token.
// An empty token rejects every request.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var creds adminCredentials
			_ = bindHeader(r, &creds)
			if token == "" || subtle.ConstantTimeCompare([]byte(creds.Token), []byte(token)) != 1 {
				_ = handler.JSONError(handler.ErrForbidden.Wrap(ErrInvalidAdminToken)).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
