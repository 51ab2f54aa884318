package http

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/middleware"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request-scoped logger installed by RequestLogger,
// which already carries the request id. Without one it tags the id itself.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	logger, scoped := LoggerFromContext(ctx), true
	if logger == nil {
		logger, scoped = defaultLogger(fallback), false
	}

	logger = logger.With("handler", handler)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if !scoped {
		if id := middleware.GetReqID(ctx); id != "" {
			logger = logger.With("request_id", id)
		}
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}
