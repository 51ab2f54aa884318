// Package storagetest holds the behaviour every persistence.Storage backend
// must share. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/training-reservations/internal/persistence"
)

// Factory returns a freshly migrated, empty storage.
type Factory func(t *testing.T) persistence.Storage

var monday = time.Date(2026, time.May, 18, 0, 0, 0, 0, time.UTC)

// Run executes the shared suite against storages produced by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, newStorage(t)) })
	t.Run("reservations", func(t *testing.T) { testReservations(t, newStorage(t)) })
	t.Run("admission rollback", func(t *testing.T) { testAdmissionRollback(t, newStorage(t)) })
	t.Run("admission serializes writers", func(t *testing.T) { testAdmissionSerializes(t, newStorage(t)) })
}

// NewUser returns a user with a fresh UUID.
func NewUser(username string, role int) persistence.User {
	return persistence.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "hash-" + username,
		Role:         role,
		CreatedAt:    monday,
	}
}

// Insert admits reservation without any rule checks.
func Insert(ctx context.Context, t *testing.T, storage persistence.Storage, reservation persistence.Reservation) {
	t.Helper()
	err := storage.WithinAdmission(ctx, func(tx persistence.AdmissionTx) error {
		return tx.InsertReservation(ctx, reservation)
	})
	if err != nil {
		t.Fatalf("InsertReservation failed: %v", err)
	}
}

func slot(userID string, day, hour int) persistence.Reservation {
	start := monday.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
	return persistence.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: monday,
	}
}

func testUsers(t *testing.T, storage persistence.Storage) {
	ctx := context.Background()

	alice := NewUser("alice", 1)
	root := NewUser("root", 0)
	for _, user := range []persistence.User{alice, root} {
		if err := storage.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", user.Username, err)
		}
	}

	fetched, err := storage.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if fetched.Username != "alice" || fetched.Role != 1 || fetched.PasswordHash != alice.PasswordHash {
		t.Fatalf("unexpected user %+v", fetched)
	}

	byName, err := storage.GetUserByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if byName.ID != alice.ID {
		t.Fatalf("expected case-insensitive lookup to find alice, got %+v", byName)
	}

	if _, err := storage.GetUser(ctx, uuid.NewString()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	dup := NewUser("Alice", 1)
	if err := storage.CreateUser(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused username, got %v", err)
	}

	users, err := storage.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "root" {
		t.Fatalf("unexpected user list %+v", users)
	}
}

func testReservations(t *testing.T, storage persistence.Storage) {
	ctx := context.Background()

	alice := NewUser("alice", 1)
	if err := storage.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	later := slot(alice.ID, 2, 14)
	earlier := slot(alice.ID, 0, 10)
	earlier.Type = 1
	Insert(ctx, t, storage, later)
	Insert(ctx, t, storage, earlier)

	all, err := storage.ListReservations(ctx)
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(all))
	}
	if all[0].ID != earlier.ID || all[0].Username != "alice" || all[0].Type != 1 {
		t.Fatalf("unexpected first reservation %+v", all[0])
	}
	if !all[0].Start.Equal(earlier.Start) || all[0].Start.Location() != time.UTC {
		t.Fatalf("expected UTC start %s, got %s", earlier.Start, all[0].Start)
	}

	got, err := storage.GetReservation(ctx, later.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if got.UserID != alice.ID || !got.End.Equal(later.End) {
		t.Fatalf("unexpected reservation %+v", got)
	}

	overlapping, err := storage.ListOverlapping(ctx, earlier.Start.Add(30*time.Minute), earlier.End.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ListOverlapping failed: %v", err)
	}
	if len(overlapping) != 1 || overlapping[0].ID != earlier.ID {
		t.Fatalf("expected only the earlier reservation, got %+v", overlapping)
	}

	touching, err := storage.ListOverlapping(ctx, earlier.End, earlier.End.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListOverlapping failed: %v", err)
	}
	if len(touching) != 0 {
		t.Fatalf("adjacent slot must not overlap, got %+v", touching)
	}

	if err := storage.DeleteReservation(ctx, earlier.ID); err != nil {
		t.Fatalf("DeleteReservation failed: %v", err)
	}
	if err := storage.DeleteReservation(ctx, earlier.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := storage.GetReservation(ctx, earlier.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func testAdmissionRollback(t *testing.T, storage persistence.Storage) {
	ctx := context.Background()

	alice := NewUser("alice", 1)
	if err := storage.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	rejected := errors.New("rejected")
	reservation := slot(alice.ID, 1, 9)
	err := storage.WithinAdmission(ctx, func(tx persistence.AdmissionTx) error {
		if err := tx.InsertReservation(ctx, reservation); err != nil {
			return err
		}
		return rejected
	})
	if !errors.Is(err, rejected) {
		t.Fatalf("expected callback error to propagate, got %v", err)
	}

	if _, err := storage.GetReservation(ctx, reservation.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected rolled back insert to be absent, got %v", err)
	}

	err = storage.WithinAdmission(ctx, func(tx persistence.AdmissionTx) error {
		return tx.InsertReservation(ctx, slot(uuid.NewString(), 1, 9))
	})
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation for unknown owner, got %v", err)
	}
}

// testAdmissionSerializes races check-then-insert callbacks for one slot and
// expects exactly one to win.
func testAdmissionSerializes(t *testing.T, storage persistence.Storage) {
	ctx := context.Background()

	const contenders = 8
	users := make([]persistence.User, contenders)
	for i := range users {
		users[i] = NewUser(uuid.NewString()[:8], 1)
		if err := storage.CreateUser(ctx, users[i]); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	taken := errors.New("taken")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, user := range users {
		user := user
		wg.Add(1)
		go func() {
			defer wg.Done()
			candidate := slot(user.ID, 3, 11)
			err := storage.WithinAdmission(ctx, func(tx persistence.AdmissionTx) error {
				existing, err := tx.ListOverlapping(ctx, candidate.Start, candidate.End)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return taken
				}
				return tx.InsertReservation(ctx, candidate)
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one admission to succeed, got %d", wins)
	}
	all, err := storage.ListReservations(ctx)
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one stored reservation, got %d", len(all))
	}
}
