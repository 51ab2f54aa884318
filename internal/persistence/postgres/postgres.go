package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/example/training-reservations/internal/persistence"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	codeUniqueViolation        = "23505"
	codeForeignKeyViolation    = "23503"
	codeCheckViolation         = "23514"
	codeNotNullViolation       = "23502"
	codeExclusionViolation     = "23P01"
	codeSerializationFailure   = "40001"
	codeDeadlockDetected       = "40P01"
	codeInvalidTextRepresented = "22P02"
)

// Storage implements persistence.Storage on PostgreSQL.
type Storage struct {
	pool *pgxpool.Pool
	// admissionRetries bounds how often a serialization failure is retried.
	admissionRetries int
}

// Connect creates the connection pool for dsn.
func Connect(ctx context.Context, dsn string) (*Storage, error) {
	const op = "persistence.postgres.Connect"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	return &Storage{pool: pool, admissionRetries: 3}, nil
}

// Close releases the pool.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "persistence.postgres.Migrate"

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(s.pool)
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case codeCheckViolation, codeNotNullViolation:
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	case codeExclusionViolation:
		return fmt.Errorf("%w: %v", persistence.ErrOverlap, err)
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// isMalformedID reports whether Postgres rejected an id that is not a UUID.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidTextRepresented
}
