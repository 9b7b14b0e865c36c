package persistence

import (
	"context"

	"github.com/example/lesson-scheduler/internal/scheduler"
)

// ClassRepository exposes the class collaborator needed by lesson booking.
type ClassRepository interface {
	CreateClass(ctx context.Context, class Class) error
	GetClass(ctx context.Context, id string) (Class, error)
	ListClasses(ctx context.Context) ([]Class, error)
}

// LessonFilter narrows lesson listings. Zero values do not filter.
type LessonFilter struct {
	TeacherID string
	ClassID   string
	From      *scheduler.Date
	To        *scheduler.Date
	Status    string
}

// LessonRepository stores lessons and answers the per-teacher, per-day range
// query the conflict check runs against.
type LessonRepository interface {
	// FindByTeacherAndDate returns the non-cancelled lessons of the teacher
	// on date ordered by start time, then id.
	FindByTeacherAndDate(ctx context.Context, teacherID string, date scheduler.Date) ([]Lesson, error)
	CreateLesson(ctx context.Context, lesson Lesson) error
	UpdateLesson(ctx context.Context, lesson Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
	DeleteLesson(ctx context.Context, id string) error
}
