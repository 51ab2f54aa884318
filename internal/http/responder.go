package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/example/training-reservations/internal/application"
)

var (
	errBadRequestBody       = errors.New("Invalid request body.")
	errInvalidReservationID = errors.New("Invalid reservation id.")
	errMissingToken         = errors.New("Authentication token is required.")
)

// Error codes carried in errorResponse.ErrorCode.
const (
	CodeUnknownUser        = "UNKNOWN_USER"
	CodeInvalidDuration    = "INVALID_DURATION"
	CodeWeeklyLimit        = "WEEKLY_LIMIT_EXCEEDED"
	CodeSlotConflict       = "SLOT_CONFLICT"
	CodeValidation         = "VALIDATION_FAILED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeForbidden          = "AUTH_FORBIDDEN"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (rs responder) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if w == nil {
		return
	}
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, payload)
}

func (rs responder) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		rs.loggerFor(r).ErrorContext(r.Context(), "request failed", "status", status, "error", err)
	}
	rs.writeJSON(w, r, status, errorResponse{ErrorCode: code, Message: message})
}

func (rs responder) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		rs.writeError(w, r, http.StatusInternalServerError, CodeInternal, errors.New("unknown error"))
		return
	}

	var rejection *application.RejectionError
	if errors.As(err, &rejection) {
		rs.writeJSON(w, r, http.StatusBadRequest, errorResponse{
			ErrorCode: rejectionCode(rejection),
			Message:   rejection.Message,
			Conflicts: toConflictDTOs(rejection),
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		rs.writeJSON(w, r, http.StatusBadRequest, errorResponse{
			ErrorCode: CodeValidation,
			Message:   "The request contains invalid fields.",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		rs.writeJSON(w, r, http.StatusBadRequest, errorResponse{
			ErrorCode: CodeValidation,
			Message:   "The request contains invalid fields.",
			Errors:    describeFieldErrors(fieldErrs),
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		rs.writeJSON(w, r, http.StatusForbidden, errorResponse{
			ErrorCode: CodeForbidden,
			Message:   "You are not allowed to perform this operation.",
		})
	case errors.Is(err, application.ErrNotFound):
		rs.writeJSON(w, r, http.StatusNotFound, errorResponse{
			ErrorCode: CodeNotFound,
			Message:   "The requested resource was not found.",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		rs.writeJSON(w, r, http.StatusUnauthorized, errorResponse{
			ErrorCode: CodeInvalidCredentials,
			Message:   "Invalid username or password.",
		})
	case errors.Is(err, application.ErrInvalidToken):
		rs.writeJSON(w, r, http.StatusUnauthorized, errorResponse{
			ErrorCode: CodeInvalidToken,
			Message:   "The session is invalid. Please log in again.",
		})
	default:
		rs.loggerFor(r).ErrorContext(r.Context(), "unexpected service error", "error", err, "error_kind", application.ErrorKind(err))
		rs.writeJSON(w, r, http.StatusInternalServerError, errorResponse{
			ErrorCode: CodeInternal,
			Message:   "An internal server error occurred.",
		})
	}
}

func (rs responder) loggerFor(r *http.Request) *slog.Logger {
	if r != nil {
		if logger := LoggerFromContext(r.Context()); logger != nil {
			return logger
		}
	}
	return rs.logger
}

func rejectionCode(rejection *application.RejectionError) string {
	switch {
	case errors.Is(rejection, application.ErrUnknownUser):
		return CodeUnknownUser
	case errors.Is(rejection, application.ErrInvalidDuration):
		return CodeInvalidDuration
	case errors.Is(rejection, application.ErrWeeklyLimitExceeded):
		return CodeWeeklyLimit
	case errors.Is(rejection, application.ErrSlotConflict):
		return CodeSlotConflict
	default:
		return CodeBadRequest
	}
}

func describeFieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.ActualTag() {
		case "required":
			out[fe.Field()] = fmt.Sprintf("%s is required", fe.Field())
		case "oneof":
			out[fe.Field()] = fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
		default:
			out[fe.Field()] = fmt.Sprintf("%s is not valid", fe.Field())
		}
	}
	return out
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	ID        string `json:"id,omitempty"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func toConflictDTOs(rejection *application.RejectionError) []conflictDTO {
	if rejection == nil || len(rejection.Conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(rejection.Conflicts))
	for _, c := range rejection.Conflicts {
		out = append(out, conflictDTO{ID: c.ID, StartTime: formatTime(c.Start), EndTime: formatTime(c.End)})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
