package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrForeignKeyViolation is returned when a referenced row is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrConstraintViolation is returned for required fields and check constraints.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrOverlap is returned when the store itself refuses overlapping reservations.
	ErrOverlap = errors.New("persistence: overlapping reservation")
)
