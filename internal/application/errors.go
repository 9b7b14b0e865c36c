package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the caller lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrClassNotFound is returned when a lesson references an unknown class.
	ErrClassNotFound = fmt.Errorf("%w: class", ErrNotFound)
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("application: lesson conflict")
	// ErrBookingBusy is returned when the booking lock could not be obtained in time.
	ErrBookingBusy = errors.New("application: booking in progress, retry later")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError reports that a write would double-book the teacher. Lesson is
// the already booked lesson that overlaps; it is zero when the overlap was
// detected by storage and the lesson could no longer be resolved.
type ConflictError struct {
	Lesson Lesson
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil || e.Lesson.ID == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%v: overlaps lesson %s on %s %s-%s", ErrConflict, e.Lesson.ID, e.Lesson.Date, e.Lesson.Start, e.Lesson.End)
}

// Is lets errors.Is match ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StorageError wraps an unexpected repository failure.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("application: storage failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
