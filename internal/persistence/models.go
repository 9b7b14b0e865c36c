package persistence

import (
	"time"

	"github.com/example/lesson-scheduler/internal/scheduler"
)

// Lesson status values stored by repositories.
const (
	LessonStatusScheduled  = "scheduled"
	LessonStatusInProgress = "in_progress"
	LessonStatusCompleted  = "completed"
	LessonStatusCancelled  = "cancelled"
)

// Class is the recurring course a lesson belongs to. It owns the teacher
// assignment and the weekly template that seeds generated lessons.
type Class struct {
	ID        string
	TeacherID string
	Title     string
	BookID    *string
	UnitID    *string
	Weekdays  []time.Weekday
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	Room      *string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lesson is a single dated teaching session of a class.
//
// TeacherID is resolved from the owning class on reads and ignored on writes.
type Lesson struct {
	ID        string
	ClassID   string
	TeacherID string
	Title     string
	BookDay   int
	Date      scheduler.Date
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	Room      *string
	Notes     *string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cancelled reports whether the lesson no longer occupies its slot.
func (l Lesson) Cancelled() bool {
	return l.Status == LessonStatusCancelled
}
