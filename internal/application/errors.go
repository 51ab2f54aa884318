package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/training-reservations/internal/admission"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidCredentials is returned when a login attempt does not match a user of the requested role.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrInvalidToken is returned when a bearer token cannot be verified.
	ErrInvalidToken = errors.New("application: invalid token")

	// ErrUnknownUser rejects a reservation whose owner does not exist.
	ErrUnknownUser = errors.New("application: unknown user")
	// ErrInvalidDuration rejects a reservation that is not exactly one hour long.
	ErrInvalidDuration = errors.New("application: invalid duration")
	// ErrWeeklyLimitExceeded rejects a second reservation by the same user in the current week.
	ErrWeeklyLimitExceeded = errors.New("application: weekly limit exceeded")
	// ErrSlotConflict rejects a reservation that overlaps an existing one.
	ErrSlotConflict = errors.New("application: slot conflict")
)

// RejectionError reports why an admission rule refused a reservation. It
// unwraps to one of the rejection sentinels.
type RejectionError struct {
	Reason    error
	Message   string
	Conflicts []admission.Interval
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes the rejection sentinel.
func (e *RejectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Reason
}

func rejectUnknownUser() *RejectionError {
	return &RejectionError{
		Reason:  ErrUnknownUser,
		Message: "User not found. Cannot create reservation for a non-existent user.",
	}
}

func rejectInvalidDuration() *RejectionError {
	return &RejectionError{
		Reason:  ErrInvalidDuration,
		Message: "Reservation must be exactly 1 hour long.",
	}
}

func rejectWeeklyLimit() *RejectionError {
	return &RejectionError{
		Reason:  ErrWeeklyLimitExceeded,
		Message: "You can only make one reservation per week.",
	}
}

func rejectSlotConflict(conflicts []admission.Interval) *RejectionError {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, fmt.Sprintf("%s - %s", c.Start.UTC().Format(time.RFC3339), c.End.UTC().Format(time.RFC3339)))
	}
	return &RejectionError{
		Reason:    ErrSlotConflict,
		Message:   "This time slot is already taken. Conflicting reservations: " + strings.Join(parts, ", "),
		Conflicts: conflicts,
	}
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
