// Package memory provides a map backed implementation of the persistence
// repositories. It enforces the same lesson exclusion rule as the SQLite
// triggers so the two backends are interchangeable.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

// Storage keeps classes and lessons in process memory.
type Storage struct {
	mu      sync.RWMutex
	classes map[string]persistence.Class
	lessons map[string]persistence.Lesson
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		classes: make(map[string]persistence.Class),
		lessons: make(map[string]persistence.Lesson),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// --- ClassRepository implementation ---

// CreateClass stores a new class.
func (s *Storage) CreateClass(ctx context.Context, class persistence.Class) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if class.ID == "" || class.TeacherID == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.classes[class.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.classes[class.ID] = cloneClass(class)
	return nil
}

// GetClass retrieves a class by ID.
func (s *Storage) GetClass(ctx context.Context, id string) (persistence.Class, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Class{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	class, ok := s.classes[id]
	if !ok {
		return persistence.Class{}, persistence.ErrNotFound
	}
	return cloneClass(class), nil
}

// ListClasses returns all classes ordered by title, then id.
func (s *Storage) ListClasses(ctx context.Context) ([]persistence.Class, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	classes := make([]persistence.Class, 0, len(s.classes))
	for _, class := range s.classes {
		classes = append(classes, cloneClass(class))
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Title == classes[j].Title {
			return classes[i].ID < classes[j].ID
		}
		return classes[i].Title < classes[j].Title
	})
	return classes, nil
}

// --- LessonRepository implementation ---

// FindByTeacherAndDate returns the active lessons of a teacher on a date.
func (s *Storage) FindByTeacherAndDate(ctx context.Context, teacherID string, date scheduler.Date) ([]persistence.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeLessonsLocked(teacherID, date, ""), nil
}

// CreateLesson stores a new lesson.
func (s *Storage) CreateLesson(ctx context.Context, lesson persistence.Lesson) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lesson.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.lessons[lesson.ID]; ok {
		return persistence.ErrDuplicate
	}
	if err := s.checkLessonLocked(lesson); err != nil {
		return err
	}

	s.lessons[lesson.ID] = cloneLesson(lesson)
	return nil
}

// UpdateLesson replaces an existing lesson.
func (s *Storage) UpdateLesson(ctx context.Context, lesson persistence.Lesson) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.lessons[lesson.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.checkLessonLocked(lesson); err != nil {
		return err
	}

	lesson.CreatedAt = current.CreatedAt
	s.lessons[lesson.ID] = cloneLesson(lesson)
	return nil
}

// GetLesson retrieves a lesson by ID.
func (s *Storage) GetLesson(ctx context.Context, id string) (persistence.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Lesson{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return persistence.Lesson{}, persistence.ErrNotFound
	}
	return s.resolveLocked(lesson), nil
}

// ListLessons returns lessons matching filter ordered by date, start, then id.
func (s *Storage) ListLessons(ctx context.Context, filter persistence.LessonFilter) ([]persistence.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lessons := make([]persistence.Lesson, 0)
	for _, lesson := range s.lessons {
		resolved := s.resolveLocked(lesson)
		if !matchesLessonFilter(resolved, filter) {
			continue
		}
		lessons = append(lessons, resolved)
	}
	sortLessons(lessons)
	return lessons, nil
}

// DeleteLesson removes a lesson. Unknown ids yield persistence.ErrNotFound.
func (s *Storage) DeleteLesson(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lessons[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.lessons, id)
	return nil
}

// checkLessonLocked mirrors the SQLite constraints and overlap triggers.
func (s *Storage) checkLessonLocked(lesson persistence.Lesson) error {
	if lesson.End <= lesson.Start || !lesson.Start.Valid() || lesson.End > scheduler.MinutesPerDay {
		return persistence.ErrConstraintViolation
	}
	if lesson.BookDay < 0 || !validStatus(lesson.Status) {
		return persistence.ErrConstraintViolation
	}
	class, ok := s.classes[lesson.ClassID]
	if !ok {
		return persistence.ErrForeignKeyViolation
	}
	if lesson.Cancelled() {
		return nil
	}

	slot := scheduler.Interval{Start: lesson.Start, End: lesson.End}
	for _, other := range s.activeLessonsLocked(class.TeacherID, lesson.Date, lesson.ID) {
		if scheduler.Overlaps(slot, scheduler.Interval{Start: other.Start, End: other.End}) {
			return persistence.ErrOverlap
		}
	}
	return nil
}

func (s *Storage) activeLessonsLocked(teacherID string, date scheduler.Date, excludeID string) []persistence.Lesson {
	lessons := make([]persistence.Lesson, 0)
	for _, lesson := range s.lessons {
		if lesson.ID == excludeID || lesson.Cancelled() || lesson.Date != date {
			continue
		}
		class, ok := s.classes[lesson.ClassID]
		if !ok || class.TeacherID != teacherID {
			continue
		}
		resolved := cloneLesson(lesson)
		resolved.TeacherID = class.TeacherID
		lessons = append(lessons, resolved)
	}
	sortLessons(lessons)
	return lessons
}

func (s *Storage) resolveLocked(lesson persistence.Lesson) persistence.Lesson {
	resolved := cloneLesson(lesson)
	resolved.TeacherID = ""
	if class, ok := s.classes[lesson.ClassID]; ok {
		resolved.TeacherID = class.TeacherID
	}
	return resolved
}

// --- Helpers ---

func validStatus(status string) bool {
	switch status {
	case persistence.LessonStatusScheduled,
		persistence.LessonStatusInProgress,
		persistence.LessonStatusCompleted,
		persistence.LessonStatusCancelled:
		return true
	default:
		return false
	}
}

func matchesLessonFilter(lesson persistence.Lesson, filter persistence.LessonFilter) bool {
	if filter.TeacherID != "" && lesson.TeacherID != filter.TeacherID {
		return false
	}
	if filter.ClassID != "" && lesson.ClassID != filter.ClassID {
		return false
	}
	if filter.Status != "" && lesson.Status != filter.Status {
		return false
	}
	if filter.From != nil && lesson.Date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && lesson.Date.After(*filter.To) {
		return false
	}
	return true
}

func sortLessons(lessons []persistence.Lesson) {
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Date != lessons[j].Date {
			return lessons[i].Date.Before(lessons[j].Date)
		}
		if lessons[i].Start != lessons[j].Start {
			return lessons[i].Start < lessons[j].Start
		}
		return lessons[i].ID < lessons[j].ID
	})
}

func cloneClass(class persistence.Class) persistence.Class {
	clone := class
	clone.BookID = cloneString(class.BookID)
	clone.UnitID = cloneString(class.UnitID)
	clone.Room = cloneString(class.Room)
	clone.Weekdays = uniqueWeekdays(class.Weekdays)
	return clone
}

func cloneLesson(lesson persistence.Lesson) persistence.Lesson {
	clone := lesson
	clone.Room = cloneString(lesson.Room)
	clone.Notes = cloneString(lesson.Notes)
	return clone
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}

func uniqueWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	result := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		result = append(result, day)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})

	return result
}
