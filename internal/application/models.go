package application

import (
	"time"

	"github.com/example/lesson-scheduler/internal/scheduler"
)

// LessonStatus is the lifecycle state of a lesson.
type LessonStatus string

const (
	LessonStatusScheduled  LessonStatus = "scheduled"
	LessonStatusInProgress LessonStatus = "in_progress"
	LessonStatusCompleted  LessonStatus = "completed"
	LessonStatusCancelled  LessonStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s LessonStatus) Valid() bool {
	switch s {
	case LessonStatusScheduled, LessonStatusInProgress, LessonStatusCompleted, LessonStatusCancelled:
		return true
	}
	return false
}

// Occupies reports whether a lesson in this status blocks the teacher's time.
func (s LessonStatus) Occupies() bool {
	return s != LessonStatusCancelled
}

// Role is the authorization role attached to an API token.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSecretary Role = "secretary"
	RoleTeacher   Role = "teacher"
	RoleStudent   Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSecretary, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// CanBook reports whether the role may create, edit or delete lessons.
func (r Role) CanBook() bool {
	return r == RoleAdmin || r == RoleSecretary
}

// Class is the recurring course lessons are booked for. The teacher of a
// lesson is always the teacher of its class.
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

// ClassInput captures caller provided class fields.
type ClassInput struct {
	TeacherID string
	Title     string
	BookID    *string
	UnitID    *string
	Weekdays  []string
	StartTime string
	EndTime   string
	Room      *string
	Capacity  int
}

// Lesson is a single dated teaching session.
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
	Status    LessonStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LessonInput captures caller provided fields for a new lesson. Dates and
// times are kept as text and parsed by the service.
type LessonInput struct {
	ClassID   string
	Title     string
	BookDay   int
	Date      string
	StartTime string
	EndTime   string
	Room      *string
	Notes     *string
	Status    string
}

// LessonPatch carries a partial lesson update. Nil fields keep their stored value.
type LessonPatch struct {
	ClassID   *string
	Title     *string
	BookDay   *int
	Date      *string
	StartTime *string
	EndTime   *string
	Room      *string
	Notes     *string
	Status    *string
}

// ConflictQuery asks whether a slot is free for a teacher.
type ConflictQuery struct {
	TeacherID       string
	Date            string
	StartTime       string
	EndTime         string
	ExcludeLessonID string
}

// ConflictResult answers a ConflictQuery.
type ConflictResult struct {
	HasConflict       bool
	ConflictingLesson *Lesson
}

// OccurrenceResult is the outcome of booking one date of a recurring batch.
// Exactly one of Lesson and Err is set.
type OccurrenceResult struct {
	Date   scheduler.Date
	Lesson *Lesson
	Err    error
}

// RecurringOptions tunes lessons generated from a class template.
type RecurringOptions struct {
	// FirstBookDay is the book day assigned to the first date; later dates
	// count up from it. Zero means 1.
	FirstBookDay int
}

// LessonListParams filters lesson listings. Empty fields do not filter.
type LessonListParams struct {
	TeacherID string
	ClassID   string
	From      string
	To        string
	Status    string
}

// LessonFilter is the parsed form of LessonListParams handed to repositories.
type LessonFilter struct {
	TeacherID string
	ClassID   string
	From      *scheduler.Date
	To        *scheduler.Date
	Status    LessonStatus
}
