package application

import (
	"errors"
	"testing"
	"time"

	"github.com/example/training-reservations/internal/admission"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}
}

func TestRejectionError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     *RejectionError
		reason  error
		message string
	}{
		{
			name:    "unknown user",
			err:     rejectUnknownUser(),
			reason:  ErrUnknownUser,
			message: "User not found. Cannot create reservation for a non-existent user.",
		},
		{
			name:    "invalid duration",
			err:     rejectInvalidDuration(),
			reason:  ErrInvalidDuration,
			message: "Reservation must be exactly 1 hour long.",
		},
		{
			name:    "weekly limit",
			err:     rejectWeeklyLimit(),
			reason:  ErrWeeklyLimitExceeded,
			message: "You can only make one reservation per week.",
		},
		{
			name: "slot conflict lists every interval",
			err: rejectSlotConflict([]admission.Interval{
				{Start: time.Date(2026, 5, 21, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 5, 21, 11, 0, 0, 0, time.UTC)},
				{Start: time.Date(2026, 5, 21, 11, 0, 0, 0, time.UTC), End: time.Date(2026, 5, 21, 12, 0, 0, 0, time.UTC)},
			}),
			reason:  ErrSlotConflict,
			message: "This time slot is already taken. Conflicting reservations: 2026-05-21T10:00:00Z - 2026-05-21T11:00:00Z, 2026-05-21T11:00:00Z - 2026-05-21T12:00:00Z",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if !errors.Is(tc.err, tc.reason) {
				t.Fatalf("expected rejection to unwrap to %v", tc.reason)
			}
			if tc.err.Error() != tc.message {
				t.Fatalf("unexpected message %q", tc.err.Error())
			}
		})
	}

	var nilErr *RejectionError
	if nilErr.Error() != "" || nilErr.Unwrap() != nil {
		t.Fatalf("nil rejection must be inert")
	}
}
