package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/training-reservations/internal/persistence"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectUser = `SELECT id::text, username, password_hash, role, created_at FROM users`

const selectReservation = `
	SELECT r.id::text, r.user_id::text, r.start_time, r.end_time, r.type, COALESCE(u.username, ''), r.created_at
	FROM reservations r
	LEFT JOIN users u ON u.id = r.user_id`

// CreateUser inserts a new user.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	const op = "persistence.postgres.CreateUser"

	if user.ID == "" || strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, strings.TrimSpace(user.Username), user.PasswordHash, user.Role, user.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return getUser(ctx, s.pool, id)
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	if strings.TrimSpace(username) == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE lower(username) = lower($1)`, strings.TrimSpace(username)))
}

// ListUsers returns every user ordered by username.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	const op = "persistence.postgres.ListUsers"

	rows, err := s.pool.Query(ctx, selectUser+` ORDER BY username, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// ListReservations returns every reservation with its owner's username.
func (s *Storage) ListReservations(ctx context.Context) ([]persistence.Reservation, error) {
	const op = "persistence.postgres.ListReservations"

	out, err := queryReservations(ctx, s.pool, selectReservation+` ORDER BY r.start_time, r.id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// GetReservation retrieves a reservation by ID.
func (s *Storage) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	reservation, err := scanReservation(s.pool.QueryRow(ctx, selectReservation+` WHERE r.id = $1`, id))
	if isMalformedID(err) {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return reservation, err
}

// ListOverlapping returns reservations with start_time < end and end_time > start.
func (s *Storage) ListOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Reservation, error) {
	return listOverlapping(ctx, s.pool, start, end)
}

// DeleteReservation removes a reservation by ID.
func (s *Storage) DeleteReservation(ctx context.Context, id string) error {
	const op = "persistence.postgres.DeleteReservation"

	if id == "" {
		return persistence.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		if isMalformedID(err) {
			return persistence.ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// WithinAdmission runs fn in a SERIALIZABLE transaction, retrying when
// Postgres aborts it because of a concurrent admission.
func (s *Storage) WithinAdmission(ctx context.Context, fn func(tx persistence.AdmissionTx) error) error {
	const op = "persistence.postgres.WithinAdmission"

	var err error
	for attempt := 0; attempt <= s.admissionRetries; attempt++ {
		err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			return fn(&admissionTx{tx: tx})
		})
		if err == nil || !isRetryable(err) {
			break
		}
	}
	if err != nil {
		if isRetryable(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return mapError(err)
	}
	return nil
}

type admissionTx struct {
	tx pgx.Tx
}

func (a *admissionTx) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return getUser(ctx, a.tx, id)
}

func (a *admissionTx) CountUserReservationsStartingBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := a.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations WHERE user_id = $1 AND start_time >= $2 AND start_time < $3`,
		userID, from.UTC(), to.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (a *admissionTx) ListOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Reservation, error) {
	return listOverlapping(ctx, a.tx, start, end)
}

func (a *admissionTx) InsertReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	_, err := a.tx.Exec(ctx, `
		INSERT INTO reservations (id, user_id, start_time, end_time, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		reservation.ID,
		reservation.UserID,
		reservation.Start.UTC(),
		reservation.End.UTC(),
		reservation.Type,
		reservation.CreatedAt.UTC(),
	)
	return err
}

func getUser(ctx context.Context, q querier, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	user, err := scanUser(q.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if isMalformedID(err) {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, err
}

func listOverlapping(ctx context.Context, q querier, start, end time.Time) ([]persistence.Reservation, error) {
	const op = "persistence.postgres.ListOverlapping"

	out, err := queryReservations(ctx, q,
		selectReservation+` WHERE r.start_time < $1 AND r.end_time > $2 ORDER BY r.start_time, r.id`,
		end.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func queryReservations(ctx context.Context, q querier, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reservation)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (persistence.User, error) {
	var user persistence.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func scanReservation(row pgx.Row) (persistence.Reservation, error) {
	var r persistence.Reservation
	err := row.Scan(&r.ID, &r.UserID, &r.Start, &r.End, &r.Type, &r.Username, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, err
	}
	r.Start, r.End, r.CreatedAt = r.Start.UTC(), r.End.UTC(), r.CreatedAt.UTC()
	return r, nil
}
