package persistence

import (
	"context"
	"time"
)

// UserRepository stores accounts. Users are created out of band by seeding.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// ReservationRepository stores reservations. Read methods join the owner's
// username; DeleteReservation returns ErrNotFound when nothing was removed.
type ReservationRepository interface {
	ListReservations(ctx context.Context) ([]Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListOverlapping(ctx context.Context, start, end time.Time) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	WithinAdmission(ctx context.Context, fn func(tx AdmissionTx) error) error
}

// AdmissionTx is the view of the store available while a reservation is
// being admitted. Everything done through it commits or rolls back together.
type AdmissionTx interface {
	GetUser(ctx context.Context, id string) (User, error)
	CountUserReservationsStartingBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	ListOverlapping(ctx context.Context, start, end time.Time) ([]Reservation, error)
	InsertReservation(ctx context.Context, reservation Reservation) error
}

// Storage is a complete backend.
type Storage interface {
	UserRepository
	ReservationRepository
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
