package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/example/training-reservations/internal/persistence"
	"github.com/example/training-reservations/internal/persistence/storagetest"
)

// Set RESERVATIONS_TEST_POSTGRES_DSN to a disposable database to run these.
func TestStorage(t *testing.T) {
	dsn := os.Getenv("RESERVATIONS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RESERVATIONS_TEST_POSTGRES_DSN not set")
	}

	storagetest.Run(t, func(t *testing.T) persistence.Storage {
		ctx := context.Background()
		storage, err := Connect(ctx, dsn)
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		t.Cleanup(func() { _ = storage.Close() })

		if err := storage.Migrate(ctx); err != nil {
			t.Fatalf("Migrate failed: %v", err)
		}
		if _, err := storage.pool.Exec(ctx, `TRUNCATE reservations, users`); err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		return storage
	})
}
