package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/example/training-reservations/internal/application"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (application.Principal, error)
}

// Authenticate attaches the principal named by a bearer token. Requests
// without a token pass through anonymously; a token that fails validation
// is answered with 401.
func Authenticate(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" || validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, application.ErrInvalidToken) {
					responder.writeJSON(w, r, http.StatusUnauthorized, errorResponse{
						ErrorCode: CodeInvalidToken,
						Message:   "The session is invalid. Please log in again.",
					})
					return
				}
				responder.handleServiceError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth rejects requests that Authenticate left anonymous.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, ok := PrincipalFromContext(r.Context()); !ok || !principal.Authenticated() {
				responder.writeError(w, r, http.StatusUnauthorized, CodeInvalidToken, errMissingToken)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger stores a request scoped logger in the context and logs the
// outcome of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(ctx, "request completed",
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
