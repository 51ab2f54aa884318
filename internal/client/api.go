package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/training-reservations/internal/calendar"
)

// Reservation as returned by the API. Type 0 is Training, 1 is Event.
type Reservation struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Type      calendar.Kind `json:"type"`
	Username  string        `json:"username"`
}

// Entry converts r for the calendar grid.
func (r Reservation) Entry() calendar.Entry {
	return calendar.Entry{
		ID:       r.ID,
		UserID:   r.UserID,
		Username: r.Username,
		Start:    r.StartTime,
		End:      r.EndTime,
		Kind:     r.Type,
	}
}

// NewReservation is the body of POST /reservations.
type NewReservation struct {
	UserID    string        `json:"userId"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Type      calendar.Kind `json:"type"`
}

// Conflict is an existing reservation overlapping a requested range.
type Conflict struct {
	ID        string    `json:"id,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type Availability struct {
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the role is "Admin".
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, "admin")
}

// Session is the result of a login. The zero value is anonymous.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"-"`
}

// LoggedIn reports whether the session carries a user.
func (s Session) LoggedIn() bool {
	return s.User.ID != ""
}

// Login roles accepted by Login.
const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
)

func (c *Client) ListReservations(ctx context.Context) ([]Reservation, error) {
	var out []Reservation
	if err := c.do(ctx, http.MethodGet, "/reservations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReservation(ctx context.Context, id string) (Reservation, error) {
	var out Reservation
	err := c.do(ctx, http.MethodGet, "/reservations/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// CreateReservation books a slot. A refusal by the booking rules is a
// *RejectionError carrying the server's reason.
func (c *Client) CreateReservation(ctx context.Context, in NewReservation) (Reservation, error) {
	in.StartTime = in.StartTime.UTC()
	in.EndTime = in.EndTime.UTC()
	var out Reservation
	err := c.do(ctx, http.MethodPost, "/reservations", nil, in, &out)
	return out, err
}

// DeleteReservation removes a reservation; ErrNotFound when it does not exist.
func (c *Client) DeleteReservation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/reservations/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) CheckAvailability(ctx context.Context, start, end time.Time) (Availability, error) {
	query := url.Values{}
	query.Set("startTime", start.UTC().Format(time.RFC3339))
	query.Set("endTime", end.UTC().Format(time.RFC3339))
	var out Availability
	err := c.do(ctx, http.MethodGet, "/reservations/availability", query, nil, &out)
	return out, err
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login authenticates against role ("admin" or "faculty") and returns the
// session. The client itself is unchanged; use WithSession to act as it.
func (c *Client) Login(ctx context.Context, role, username, password string) (Session, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != RoleAdmin && role != RoleFaculty {
		return Session{}, fmt.Errorf("unknown role %q", role)
	}

	var out struct {
		Message   string `json:"message"`
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
		User      User   `json:"user"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/user/login/"+role, nil, body, &out); err != nil {
		return Session{}, err
	}

	session := Session{User: out.User, Token: out.Token}
	if out.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, out.ExpiresAt); err == nil {
			session.ExpiresAt = t
		}
	}
	return session, nil
}
