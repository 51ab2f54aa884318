package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/training-reservations/internal/persistence"
)

// Storage keeps users and reservations in process memory. Admission runs
// under the write lock, so check-then-insert is atomic.
type Storage struct {
	mu           sync.RWMutex
	users        map[string]persistence.User
	reservations map[string]persistence.Reservation
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		users:        make(map[string]persistence.User),
		reservations: make(map[string]persistence.Reservation),
	}
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// Migrate is a no-op.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.Username == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return fmt.Errorf("memory: username %s: %w", user.Username, persistence.ErrDuplicate)
		}
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUserLocked(id)
}

func (s *Storage) getUserLocked(id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by username.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username == users[j].Username {
			return users[i].ID < users[j].ID
		}
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// --- ReservationRepository implementation ---

// ListReservations returns every reservation ordered by start time.
func (s *Storage) ListReservations(ctx context.Context) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Reservation, 0, len(s.reservations))
	for _, reservation := range s.reservations {
		out = append(out, s.withUsernameLocked(reservation))
	}
	sortReservations(out)
	return out, nil
}

// GetReservation retrieves a reservation by ID.
func (s *Storage) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return s.withUsernameLocked(reservation), nil
}

// ListOverlapping returns reservations with start < end and end > start.
func (s *Storage) ListOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listOverlappingLocked(start, end), nil
}

func (s *Storage) listOverlappingLocked(start, end time.Time) []persistence.Reservation {
	var out []persistence.Reservation
	for _, reservation := range s.reservations {
		if reservation.Start.Before(end) && reservation.End.After(start) {
			out = append(out, s.withUsernameLocked(reservation))
		}
	}
	sortReservations(out)
	return out
}

// DeleteReservation removes a reservation.
func (s *Storage) DeleteReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

// WithinAdmission runs fn while holding the write lock. Inserts made through
// the transaction are discarded when fn fails.
func (s *Storage) WithinAdmission(ctx context.Context, fn func(tx persistence.AdmissionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &admissionTx{storage: s}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, reservation := range tx.pending {
		s.reservations[reservation.ID] = reservation
	}
	return nil
}

type admissionTx struct {
	storage *Storage
	pending []persistence.Reservation
}

func (tx *admissionTx) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return tx.storage.getUserLocked(id)
}

func (tx *admissionTx) CountUserReservationsStartingBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	count := 0
	for _, reservation := range tx.all() {
		if reservation.UserID != userID {
			continue
		}
		if !reservation.Start.Before(from) && reservation.Start.Before(to) {
			count++
		}
	}
	return count, nil
}

func (tx *admissionTx) ListOverlapping(ctx context.Context, start, end time.Time) ([]persistence.Reservation, error) {
	out := tx.storage.listOverlappingLocked(start, end)
	for _, reservation := range tx.pending {
		if reservation.Start.Before(end) && reservation.End.After(start) {
			out = append(out, tx.storage.withUsernameLocked(reservation))
		}
	}
	sortReservations(out)
	return out, nil
}

func (tx *admissionTx) InsertReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := tx.storage.users[reservation.UserID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := tx.storage.reservations[reservation.ID]; ok {
		return persistence.ErrDuplicate
	}
	reservation.Start = reservation.Start.UTC()
	reservation.End = reservation.End.UTC()
	reservation.Username = ""
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	tx.pending = append(tx.pending, reservation)
	return nil
}

func (tx *admissionTx) all() []persistence.Reservation {
	out := make([]persistence.Reservation, 0, len(tx.storage.reservations)+len(tx.pending))
	for _, reservation := range tx.storage.reservations {
		out = append(out, reservation)
	}
	return append(out, tx.pending...)
}

func (s *Storage) withUsernameLocked(reservation persistence.Reservation) persistence.Reservation {
	if user, ok := s.users[reservation.UserID]; ok {
		reservation.Username = user.Username
	}
	return reservation
}

func sortReservations(reservations []persistence.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		if reservations[i].Start.Equal(reservations[j].Start) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].Start.Before(reservations[j].Start)
	})
}
