package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// NewErrorHandler logs err at a level matching its status and renders the
// JSON error envelope. Client errors log at warn, everything else at error.
func NewErrorHandler(log *slog.Logger) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		status := http.StatusInternalServerError
		var httpErr HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
		}

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}

		r := ctx.Request()
		attrs := []slog.Attr{
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		}
		if id := ctx.UserID(); id != "" {
			attrs = append(attrs, logger.UserID(id))
		}
		log.LogAttrs(r.Context(), level, "request error", attrs...)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}
