package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUpstreamUnreachable is matched by every UnreachableError.
	ErrUpstreamUnreachable = errors.New("client: server unreachable")
	ErrNotFound            = errors.New("client: not found")
	ErrUnauthorized        = errors.New("client: unauthorized")
	ErrForbidden           = errors.New("client: forbidden")

	// Rejection reasons, matched by *RejectionError through errors.Is.
	ErrUnknownUser         = errors.New("client: unknown user")
	ErrInvalidDuration     = errors.New("client: invalid duration")
	ErrWeeklyLimitExceeded = errors.New("client: weekly limit exceeded")
	ErrSlotConflict        = errors.New("client: slot conflict")
	ErrInvalidRequest      = errors.New("client: invalid request")
)

// UnreachableError reports a transport failure or a gateway status.
type UnreachableError struct {
	URL    string
	Status int
	Err    error
}

func (e *UnreachableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("server unreachable: %s answered %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("server unreachable: %s: %v", e.URL, e.Err)
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUpstreamUnreachable
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// RejectionError is a 400 answer: a booking rule or request validation
// refused the call. Message is the server's human readable reason.
type RejectionError struct {
	Code      string
	Message   string
	Fields    map[string]string
	Conflicts []Conflict
}

func (e *RejectionError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *RejectionError) Is(target error) bool {
	switch e.Code {
	case "UNKNOWN_USER":
		return target == ErrUnknownUser
	case "INVALID_DURATION":
		return target == ErrInvalidDuration
	case "WEEKLY_LIMIT_EXCEEDED":
		return target == ErrWeeklyLimitExceeded
	case "SLOT_CONFLICT":
		return target == ErrSlotConflict
	default:
		return target == ErrInvalidRequest
	}
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Message)
}
