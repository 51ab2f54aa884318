package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/training-reservations/internal/persistence"
	"github.com/example/training-reservations/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style tests.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. The harness registers its own cleanup with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reservations.db")
	storage, err := sqlite.Open(context.Background(), "file:"+path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// AddUsers stores the given user fixtures.
func (h *SQLiteHarness) AddUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	for _, u := range users {
		if err := h.Storage.CreateUser(context.Background(), u.Persistence()); err != nil {
			tb.Fatalf("failed to create user %s: %v", u.Username, err)
		}
	}
}

// AddReservations stores the given reservations without admission checks.
func (h *SQLiteHarness) AddReservations(tb testing.TB, reservations ...ReservationFixture) {
	tb.Helper()
	ctx := context.Background()
	err := h.Storage.WithinAdmission(ctx, func(tx persistence.AdmissionTx) error {
		for _, r := range reservations {
			if err := tx.InsertReservation(ctx, r.Persistence()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tb.Fatalf("failed to insert reservations: %v", err)
	}
}
