package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/training-reservations/internal/application"
)

type userService interface {
	ListUsers(ctx context.Context) ([]application.User, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "UserHandler", "List")
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(w, r, err)
		return
	}

	logger.With("result_count", len(users)).DebugContext(r.Context(), "users listed")
	h.responder.writeJSON(w, r, http.StatusOK, toUserDTOs(users))
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role.String(),
	}
}

func toUserDTOs(users []application.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}
