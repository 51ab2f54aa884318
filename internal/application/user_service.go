package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService exposes the user directory.
type UserService struct {
	users  UserRepository
	logger *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository) *UserService {
	return NewUserServiceWithLogger(users, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a logger.
func NewUserServiceWithLogger(users UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: defaultLogger(logger)}
}

// ListUsers returns every user ordered by username.
func (s *UserService) ListUsers(ctx context.Context) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "UserService", "ListUsers")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "users listed", "result_count", len(users))
	}()

	users, err = s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}
