package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/training-reservations/internal/persistence"
)

const selectUser = `
	SELECT id, username, password_hash, role, created_at
	FROM users
`

// CreateUser inserts a new user.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	const op = "persistence.sqlite.CreateUser"

	if user.ID == "" || strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.DB().ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		strings.TrimSpace(user.Username),
		user.PasswordHash,
		user.Role,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, s.mapper.MapError(err))
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return getUser(ctx, s.pool.DB(), s.mapper, id)
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	if strings.TrimSpace(username) == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := s.pool.DB().QueryRowContext(ctx, selectUser+` WHERE username = ? COLLATE NOCASE`, strings.TrimSpace(username))
	return scanUser(row, s.mapper)
}

// ListUsers returns every user ordered by username.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	const op = "persistence.sqlite.ListUsers"

	rows, err := s.pool.DB().QueryContext(ctx, selectUser+` ORDER BY username ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapper.MapError(err))
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows, s.mapper)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapper.MapError(err))
	}
	return users, nil
}

func getUser(ctx context.Context, q queryer, mapper ErrorMapper, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return scanUser(q.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id), mapper)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, mapper ErrorMapper) (persistence.User, error) {
	var (
		user      persistence.User
		createdAt string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &createdAt); err != nil {
		return persistence.User{}, mapper.MapError(err)
	}
	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
