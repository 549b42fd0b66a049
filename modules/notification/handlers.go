package notification

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/binder"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/handler"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type listRequest struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

type readRequest struct {
	ID string `path:"id"`
}

type failedRequest struct {
	Limit int `query:"limit"`
}

type handlers struct {
	svc         Service
	deadLetters DeadLetters

	list        http.HandlerFunc
	markRead    http.HandlerFunc
	markAllRead http.HandlerFunc
	unreadCount http.HandlerFunc
	failed      http.HandlerFunc
}

func newHandlers(opts RouterOptions) *handlers {
	onError := opts.ErrorHandler
	if onError == nil {
		onError = handler.NewErrorHandler(nil)
	}

	h := &handlers{svc: opts.Service, deadLetters: opts.DeadLetters}

	h.list = handler.Wrap(handler.HandlerFunc[listRequest](h.listNotifications),
		handler.WithBinders(binder.Query()),
		handler.WithErrorHandler(onError))

	h.markRead = handler.Wrap(handler.HandlerFunc[readRequest](h.markOneRead),
		handler.WithBinders(binder.Path(chi.URLParam)),
		handler.WithErrorHandler(onError))

	h.markAllRead = handler.Wrap(handler.HandlerFunc[struct{}](h.markEveryRead),
		handler.WithErrorHandler(onError))

	h.unreadCount = handler.Wrap(handler.HandlerFunc[struct{}](h.countUnread),
		handler.WithErrorHandler(onError))

	h.failed = handler.Wrap(handler.HandlerFunc[failedRequest](h.listFailed),
		handler.WithBinders(binder.Query()),
		handler.WithErrorHandler(onError))

	return h
}

func (h *handlers) listNotifications(ctx handler.Context, req listRequest) handler.Response {
	page, err := h.svc.List(ctx, ctx.UserID(), max(req.Page, 1), clampLimit(req.Limit))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(page)
}

func (h *handlers) markOneRead(ctx handler.Context, req readRequest) handler.Response {
	n, err := h.svc.MarkRead(ctx, req.ID, ctx.UserID())
	if errors.Is(err, notifications.ErrNotificationNotFound) {
		return handler.Error(handler.ErrNotFound.Wrap(err))
	}
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(n)
}

func (h *handlers) markEveryRead(ctx handler.Context, _ struct{}) handler.Response {
	n, err := h.svc.MarkAllRead(ctx, ctx.UserID())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]int{"modified": n})
}

func (h *handlers) countUnread(ctx handler.Context, _ struct{}) handler.Response {
	n, err := h.svc.CountUnread(ctx, ctx.UserID())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]int{"unread": n})
}

func (h *handlers) listFailed(ctx handler.Context, req failedRequest) handler.Response {
	entries, err := h.deadLetters.ListByStatus(ctx, delivery.StatusFailed, clampLimit(req.Limit))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(entries)
}

// clampLimit applies the default page size to non-positive limits and caps
// the rest at MaxLimit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}
