package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/example/training-reservations/internal/application"
)

type authService interface {
	Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error)
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// LoginAdmin handles POST /user/login/admin.
func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, application.RoleAdmin)
}

// LoginFaculty handles POST /user/login/faculty.
func (h *AuthHandler) LoginFaculty(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, application.RoleFaculty)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role application.Role) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	operation := "Login" + role.String()

	var req loginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errBadRequestBody)
		return
	}

	username := strings.TrimSpace(req.Username)
	logger := h.log(r.Context(), operation, "username", username)

	result, err := h.service.Login(r.Context(), application.LoginParams{
		Role:     role,
		Username: username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			logger.InfoContext(r.Context(), "login rejected", "error_kind", application.ErrorKind(err))
			h.responder.writeJSON(w, r, http.StatusUnauthorized, errorResponse{
				ErrorCode: CodeInvalidCredentials,
				Message:   "Invalid " + strings.ToLower(role.String()) + " username or password",
			})
			return
		}
		logger.ErrorContext(r.Context(), "login failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(w, r, err)
		return
	}

	logger.With("user_id", result.User.ID).InfoContext(r.Context(), "user logged in")

	resp := loginResponse{
		Message: role.String() + " login successful",
		Token:   result.Token,
		User:    toUserDTO(result.User),
	}
	if !result.ExpiresAt.IsZero() {
		resp.ExpiresAt = formatTime(result.ExpiresAt)
	}
	h.responder.writeJSON(w, r, http.StatusOK, resp)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string  `json:"message"`
	Token     string  `json:"token,omitempty"`
	ExpiresAt string  `json:"expiresAt,omitempty"`
	User      userDTO `json:"user"`
}
