package handler

import (
	"net/http"
)

// HandlerFunc provides type-safe HTTP request handling. R is the request
// struct filled by the configured binders.
//
//	list := handler.HandlerFunc[ListRequest](
//		func(ctx handler.Context, req ListRequest) handler.Response {
//			page, err := svc.List(ctx, ctx.UserID(), req.Page, req.Limit)
//			if err != nil {
//				return handler.Error(err)
//			}
//			return handler.JSON(page)
//		},
//	)
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses HTTP requests into typed values.
type Bind func(r *http.Request, v any) error

// ErrorHandler handles errors from binding, the handler or rendering.
type ErrorHandler func(ctx Context, err error)

// Option configures Wrap.
type Option func(*wrapOptions)

type wrapOptions struct {
	binders []Bind
	onError ErrorHandler
}

// WithBinders appends request binders, applied in order.
//
//	r.Post("/notifications/{id}/read", handler.Wrap(markRead,
//		handler.WithBinders(binder.Path(chi.URLParam)),
//	))
func WithBinders(binders ...Bind) Option {
	return func(o *wrapOptions) {
		o.binders = append(o.binders, binders...)
	}
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *wrapOptions) {
		if h != nil {
			o.onError = h
		}
	}
}

// defaultErrorHandler renders err with the JSON envelope.
func defaultErrorHandler(ctx Context, err error) {
	_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
}

// Wrap converts a typed HandlerFunc to http.HandlerFunc. Binding errors
// become 400s; those, a nil response and render errors go to the error
// handler.
func Wrap[R any](h HandlerFunc[R], opts ...Option) http.HandlerFunc {
	o := &wrapOptions{onError: defaultErrorHandler}
	for _, opt := range opts {
		opt(o)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range o.binders {
			if err := bind(r, &req); err != nil {
				o.onError(ctx, ErrBadRequest.Wrap(err))
				return
			}
		}

		response := h(ctx, req)
		if response == nil {
			o.onError(ctx, ErrNilResponse)
			return
		}
		if err := response.Render(w, r); err != nil {
			o.onError(ctx, err)
		}
	}
}
