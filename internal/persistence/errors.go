package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same key already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a write breaks a column constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a write references a missing record.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrOverlap is returned when a write would double-book a teacher.
	ErrOverlap = errors.New("persistence: lesson overlap")
)
