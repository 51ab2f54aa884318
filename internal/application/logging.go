package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/training-reservations/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger tags the request-scoped logger (or base when the context has
// none) with the service and operation.
func serviceLogger(ctx context.Context, base *slog.Logger, service, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	logger = logger.With("service", service)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

// outcomeLevel logs expected rule rejections below warning so that only real
// failures stand out.
func outcomeLevel(err error) slog.Level {
	switch {
	case err == nil:
		return slog.LevelInfo
	case isRejection(err), errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidCredentials):
		return slog.LevelInfo
	case errors.As(err, new(*ValidationError)):
		return slog.LevelInfo
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return slog.LevelWarn
	}
	return slog.LevelError
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, ErrWeeklyLimitExceeded):
		return "weekly_limit_exceeded"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

// isRejection reports whether err is an expected rule rejection rather than a failure.
func isRejection(err error) bool {
	var rErr *RejectionError
	return errors.As(err, &rErr)
}
