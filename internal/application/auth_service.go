package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error)
}

// TokenManager issues and verifies bearer tokens.
type TokenManager interface {
	Issue(user User) (string, time.Time, error)
	Parse(token string) (Principal, error)
}

// AuthService performs role-scoped logins and token validation.
type AuthService struct {
	credentials CredentialStore
	verifier    CredentialVerifier
	tokens      TokenManager
	logger      *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, verifier CredentialVerifier, tokens TokenManager) *AuthService {
	return NewAuthServiceWithLogger(credentials, verifier, tokens, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, verifier CredentialVerifier, tokens TokenManager, logger *slog.Logger) *AuthService {
	if verifier == nil {
		verifier = PasswordVerifier(VerifyPassword)
	}
	return &AuthService{
		credentials: credentials,
		verifier:    verifier,
		tokens:      tokens,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies username and password against users holding params.Role.
// Unknown users, wrong roles and wrong passwords all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Login", "username", username, "role", params.Role.String())
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "login succeeded")
	}()

	if username == "" || params.Password == "" || !params.Role.Valid() {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	if creds.User.Role != params.Role {
		err = ErrInvalidCredentials
		return
	}

	if verr := s.verifier.Verify(creds.PasswordHash, params.Password); verr != nil {
		if !errors.Is(verr, ErrInvalidCredentials) {
			logger.ErrorContext(ctx, "stored password hash unusable", "error", verr)
		}
		err = ErrInvalidCredentials
		return
	}

	result = LoginResult{User: creds.User}
	if s.tokens != nil {
		result.Token, result.ExpiresAt, err = s.tokens.Issue(creds.User)
		if err != nil {
			return
		}
	}
	return
}

// ValidateToken returns the principal carried by a bearer token.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.tokens == nil {
		return Principal{}, fmt.Errorf("token manager not configured")
	}
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Principal{}, ErrInvalidToken
	}
	principal, err := s.tokens.Parse(trimmed)
	if err != nil {
		s.loggerWith(ctx, "ValidateToken").DebugContext(ctx, "token rejected", "error", err, "error_kind", ErrorKind(err))
		return Principal{}, err
	}
	return principal, nil
}
