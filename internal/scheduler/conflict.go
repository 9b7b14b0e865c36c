package scheduler

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval indicates a lesson interval whose end is not after its start.
var ErrInvalidInterval = errors.New("scheduler: end time must be after start time")

// InvalidIntervalError identifies the malformed interval handed to the checker.
type InvalidIntervalError struct {
	LessonID string
	Start    TimeOfDay
	End      TimeOfDay
}

// Error implements the error interface.
func (e *InvalidIntervalError) Error() string {
	if e.LessonID == "" {
		return fmt.Sprintf("%v: candidate %s-%s", ErrInvalidInterval, e.Start, e.End)
	}
	return fmt.Sprintf("%v: lesson %s %s-%s", ErrInvalidInterval, e.LessonID, e.Start, e.End)
}

// Is lets errors.Is match ErrInvalidInterval.
func (e *InvalidIntervalError) Is(target error) bool {
	return target == ErrInvalidInterval
}

// Interval is a half-open [Start, End) wall-clock range on a single day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.End > i.Start
}

// Overlaps reports whether two half-open intervals share any minute.
// Touching intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Lesson is the checker's view of a booked lesson.
type Lesson struct {
	ID        string
	TeacherID string
	Date      Date
	Start     TimeOfDay
	End       TimeOfDay
	Cancelled bool
}

// Interval returns the lesson's time range.
func (l Lesson) Interval() Interval {
	return Interval{Start: l.Start, End: l.End}
}

// Candidate describes a lesson slot that is about to be booked.
type Candidate struct {
	TeacherID       string
	Date            Date
	Start           TimeOfDay
	End             TimeOfDay
	ExcludeLessonID string
}

// Result is the outcome of a conflict check.
type Result struct {
	HasConflict bool
	Conflicting *Lesson
}

// HasConflict reports whether candidate overlaps any lesson in existing.
//
// existing is expected to hold the lessons of the candidate's teacher on the
// candidate's date. The lesson named by ExcludeLessonID and cancelled lessons
// are ignored. When several lessons overlap, the one starting earliest is
// reported (ties broken by id) so results are reproducible.
func HasConflict(candidate Candidate, existing []Lesson) (Result, error) {
	slot := Interval{Start: candidate.Start, End: candidate.End}
	if !slot.Valid() {
		return Result{}, &InvalidIntervalError{Start: candidate.Start, End: candidate.End}
	}

	var found *Lesson
	for i := range existing {
		lesson := existing[i]
		if lesson.Cancelled {
			continue
		}
		if candidate.ExcludeLessonID != "" && lesson.ID == candidate.ExcludeLessonID {
			continue
		}
		if !lesson.Interval().Valid() {
			return Result{}, &InvalidIntervalError{LessonID: lesson.ID, Start: lesson.Start, End: lesson.End}
		}
		if !Overlaps(slot, lesson.Interval()) {
			continue
		}
		if found == nil || earlier(lesson, *found) {
			match := lesson
			found = &match
		}
	}

	if found == nil {
		return Result{}, nil
	}
	return Result{HasConflict: true, Conflicting: found}, nil
}

func earlier(a, b Lesson) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.ID < b.ID
}
