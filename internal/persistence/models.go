package persistence

import "time"

// User is an account that can own reservations.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         int
	CreatedAt    time.Time
}

// Reservation is a stored one hour booking of the shared room. Username is
// populated by read paths that join the owning user.
type Reservation struct {
	ID        string
	UserID    string
	Start     time.Time
	End       time.Time
	Type      int
	Username  string
	CreatedAt time.Time
}
