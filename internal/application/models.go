package application

import (
	"strings"
	"time"

	"github.com/example/training-reservations/internal/admission"
)

// Role is a user's access level. The numeric values are stored.
type Role int

const (
	RoleAdmin   Role = 0
	RoleFaculty Role = 1
)

// String returns the display name of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleFaculty:
		return "Faculty"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleFaculty
}

// ParseRole accepts "admin" or "faculty" in any case.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin":
		return RoleAdmin, true
	case "faculty":
		return RoleFaculty, true
	}
	return 0, false
}

// ReservationType distinguishes regular training bookings from admin events.
type ReservationType int

const (
	ReservationTraining ReservationType = 0
	ReservationEvent    ReservationType = 1
)

// String returns the display name of the reservation type.
func (t ReservationType) String() string {
	switch t {
	case ReservationTraining:
		return "Training"
	case ReservationEvent:
		return "Event"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is a known reservation type.
func (t ReservationType) Valid() bool {
	return t == ReservationTraining || t == ReservationEvent
}

// Principal identifies the caller. The zero value is an anonymous caller.
type Principal struct {
	UserID string
	Role   Role
}

// Authenticated reports whether the principal came from a verified token.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// IsAdmin reports whether the principal is an authenticated administrator.
func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}

// User is an account as exposed by the services. Password hashes never leave
// the credential path.
type User struct {
	ID        string
	Username  string
	Role      Role
	CreatedAt time.Time
}

// UserCredentials pairs a user with the stored password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Reservation is a one hour booking of the room.
type Reservation struct {
	ID        string
	UserID    string
	Start     time.Time
	End       time.Time
	Type      ReservationType
	Username  string
	CreatedAt time.Time
}

// Interval returns the reservation's time range.
func (r Reservation) Interval() admission.Interval {
	return admission.Interval{ID: r.ID, Start: r.Start, End: r.End}
}

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	UserID string
	Start  time.Time
	End    time.Time
	Type   ReservationType
}

// CreateReservationParams wraps the data required to admit a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// Availability describes whether a range is free.
type Availability struct {
	Available bool
	Conflicts []Reservation
}

// LoginParams captures a login attempt against one role.
type LoginParams struct {
	Role     Role
	Username string
	Password string
}

// LoginResult is returned for a successful login.
type LoginResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// ReservationEventKind names a published reservation change.
type ReservationEventKind string

const (
	ReservationCreated ReservationEventKind = "reservation.created"
	ReservationDeleted ReservationEventKind = "reservation.deleted"
)

// ReservationChange is published after a reservation change commits.
type ReservationChange struct {
	Kind        ReservationEventKind
	Reservation Reservation
	OccurredAt  time.Time
}
