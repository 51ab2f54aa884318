package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Storage implements persistence.Storage on an SQLite database.
type Storage struct {
	pool   *ConnectionPool
	mapper ErrorMapper
}

// Open connects to the database at dsn. Call Migrate before use.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Storage{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "persistence.sqlite.Migrate"

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	driver, err := migratesqlite.WithInstance(s.pool.DB(), &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// m.Close would also close the shared *sql.DB, so only the source is released.
	defer source.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
