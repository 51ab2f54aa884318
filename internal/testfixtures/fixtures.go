package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/training-reservations/internal/application"
	"github.com/example/training-reservations/internal/persistence"
)

var (
	userCounter        uint64
	reservationCounter uint64
)

// Wednesday 09:00 UTC; the booking week started Monday 2026-05-18.
var referenceTime = time.Date(2026, time.May, 20, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceWeek returns Monday 00:00 UTC of the reference week.
func ReferenceWeek() time.Time {
	return time.Date(2026, time.May, 18, 0, 0, 0, 0, time.UTC)
}

// Slot returns the one hour slot starting at hour on the given day of the
// reference week, where day 0 is Monday. Negative weeks go backwards.
func Slot(week, day, hour int) (time.Time, time.Time) {
	start := ReferenceWeek().AddDate(0, 0, 7*week+day).Add(time.Duration(hour) * time.Hour)
	return start, start.Add(time.Hour)
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Username     string
	PasswordHash string
	Role         application.Role
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a faculty user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:           fmt.Sprintf("user-%03d", idx),
		Username:     fmt.Sprintf("faculty%03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleFaculty,
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUsername overrides the generated username.
func WithUsername(name string) UserOption {
	return func(f *UserFixture) { f.Username = name }
}

// WithPasswordHash overrides the generated password hash.
func WithPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// AsAdmin gives the fixture the admin role.
func AsAdmin() UserOption {
	return func(f *UserFixture) { f.Role = application.RoleAdmin }
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Username:  f.Username,
		Role:      f.Role,
		CreatedAt: f.CreatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns the principal a token for this user would carry.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Username:     f.Username,
		PasswordHash: f.PasswordHash,
		Role:         int(f.Role),
		CreatedAt:    f.CreatedAt,
	}
}

// ------------------------- Reservation fixtures --------------------------

// ReservationFixture represents a deterministic reservation.
type ReservationFixture struct {
	ID        string
	UserID    string
	Username  string
	Start     time.Time
	End       time.Time
	Type      application.ReservationType
	CreatedAt time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a training reservation for owner on Monday
// 10:00 of the reference week, unless overridden.
func NewReservationFixture(owner UserFixture, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start, end := Slot(0, 0, 10)
	fixture := ReservationFixture{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		UserID:    owner.ID,
		Username:  owner.Username,
		Start:     start,
		End:       end,
		Type:      application.ReservationTraining,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) { f.ID = id }
}

// At places the reservation in the slot returned by Slot(week, day, hour).
func At(week, day, hour int) ReservationOption {
	return func(f *ReservationFixture) { f.Start, f.End = Slot(week, day, hour) }
}

// Between sets explicit bounds.
func Between(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) { f.Start, f.End = start, end }
}

// AsEvent marks the reservation as an admin event.
func AsEvent() ReservationOption {
	return func(f *ReservationFixture) { f.Type = application.ReservationEvent }
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:        f.ID,
		UserID:    f.UserID,
		Username:  f.Username,
		Start:     f.Start,
		End:       f.End,
		Type:      f.Type,
		CreatedAt: f.CreatedAt,
	}
}

// Input returns the fields a client would submit for this reservation.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{UserID: f.UserID, Start: f.Start, End: f.End, Type: f.Type}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:        f.ID,
		UserID:    f.UserID,
		Username:  f.Username,
		Start:     f.Start,
		End:       f.End,
		Type:      int(f.Type),
		CreatedAt: f.CreatedAt,
	}
}
