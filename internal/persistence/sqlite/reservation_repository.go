package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/training-reservations/internal/persistence"
)

const selectReservation = `
	SELECT r.id, r.user_id, r.start_time, r.end_time, r.type, COALESCE(u.username, ''), r.created_at
	FROM reservations r
	LEFT JOIN users u ON u.id = r.user_id
`

// ListReservations returns every reservation with its owner's username.
func (s *Storage) ListReservations(ctx context.Context) ([]persistence.Reservation, error) {
	const op = "persistence.sqlite.ListReservations"

	out, err := queryReservations(ctx, s.pool.DB(), s.mapper, selectReservation+` ORDER BY r.start_time ASC, r.id ASC`)
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
	row := s.pool.DB().QueryRowContext(ctx, selectReservation+` WHERE r.id = ?`, id)
	return scanReservation(row, s.mapper)
}

// ListOverlapping returns reservations with start_time < end and end_time > start.
func (s *Storage) ListOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Reservation, error) {
	return listOverlapping(ctx, s.pool.DB(), s.mapper, start, end)
}

// DeleteReservation removes a reservation by ID.
func (s *Storage) DeleteReservation(ctx context.Context, id string) error {
	const op = "persistence.sqlite.DeleteReservation"

	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := s.pool.DB().ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, s.mapper.MapError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// WithinAdmission runs fn inside a single transaction. With one pooled
// connection no other statement can interleave until it commits.
func (s *Storage) WithinAdmission(ctx context.Context, fn func(tx persistence.AdmissionTx) error) error {
	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(&admissionTx{tx: tx, mapper: s.mapper})
	})
}

type admissionTx struct {
	tx     *sql.Tx
	mapper ErrorMapper
}

func (a *admissionTx) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return getUser(ctx, a.tx, a.mapper, id)
}

func (a *admissionTx) CountUserReservationsStartingBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := a.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE user_id = ? AND start_time >= ? AND start_time < ?`,
		userID, formatTime(from), formatTime(to),
	).Scan(&count)
	if err != nil {
		return 0, a.mapper.MapError(err)
	}
	return count, nil
}

func (a *admissionTx) ListOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Reservation, error) {
	return listOverlapping(ctx, a.tx, a.mapper, start, end)
}

func (a *admissionTx) InsertReservation(ctx context.Context, reservation persistence.Reservation) error {
	const op = "persistence.sqlite.InsertReservation"

	if reservation.ID == "" || reservation.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	_, err := a.tx.ExecContext(ctx, `
		INSERT INTO reservations (id, user_id, start_time, end_time, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reservation.ID,
		reservation.UserID,
		formatTime(reservation.Start),
		formatTime(reservation.End),
		reservation.Type,
		formatTime(reservation.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, a.mapper.MapError(err))
	}
	return nil
}

func listOverlapping(ctx context.Context, q queryer, mapper ErrorMapper, start, end time.Time) ([]persistence.Reservation, error) {
	const op = "persistence.sqlite.ListOverlapping"

	out, err := queryReservations(ctx, q, mapper,
		selectReservation+` WHERE r.start_time < ? AND r.end_time > ? ORDER BY r.start_time ASC, r.id ASC`,
		formatTime(end), formatTime(start),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func queryReservations(ctx context.Context, q queryer, mapper ErrorMapper, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapper.MapError(err)
	}
	defer rows.Close()

	var out []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows, mapper)
		if err != nil {
			return nil, err
		}
		out = append(out, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}
	return out, nil
}

func scanReservation(row scanner, mapper ErrorMapper) (persistence.Reservation, error) {
	var (
		reservation          persistence.Reservation
		start, end, created string
	)
	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&start,
		&end,
		&reservation.Type,
		&reservation.Username,
		&created,
	)
	if err != nil {
		return persistence.Reservation{}, mapper.MapError(err)
	}
	if reservation.Start, err = parseTime(start); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.End, err = parseTime(end); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTime(created); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}
