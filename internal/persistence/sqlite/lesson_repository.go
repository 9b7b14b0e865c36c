package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

// LessonRepository implements persistence.LessonRepository using SQLite.
type LessonRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewLessonRepository creates a new SQLite lesson repository.
func NewLessonRepository(pool *ConnectionPool) *LessonRepository {
	return &LessonRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const lessonSelect = `
	SELECT l.id, l.class_id, c.teacher_id, l.title, l.book_day, l.lesson_date, l.start_minute, l.end_minute,
	       l.room, l.notes, l.status, l.created_at, l.updated_at
	FROM lessons l
	JOIN classes c ON c.id = l.class_id`

// FindByTeacherAndDate returns the active lessons of a teacher on a date,
// ordered by start time, then id.
func (r *LessonRepository) FindByTeacherAndDate(ctx context.Context, teacherID string, date scheduler.Date) ([]persistence.Lesson, error) {
	query := lessonSelect + `
	WHERE c.teacher_id = ? AND l.lesson_date = ? AND l.status <> ?
	ORDER BY l.start_minute ASC, l.id ASC`

	return r.queryLessons(ctx, query, teacherID, date.String(), persistence.LessonStatusCancelled)
}

// CreateLesson inserts a new lesson.
func (r *LessonRepository) CreateLesson(ctx context.Context, lesson persistence.Lesson) error {
	if lesson.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO lessons (id, class_id, title, book_day, lesson_date, start_minute, end_minute, room, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			lesson.ID,
			lesson.ClassID,
			lesson.Title,
			lesson.BookDay,
			lesson.Date.String(),
			int(lesson.Start),
			int(lesson.End),
			nullString(lesson.Room),
			nullString(lesson.Notes),
			lesson.Status,
			formatTimestamp(lesson.CreatedAt),
			formatTimestamp(lesson.UpdatedAt),
		)
		return r.mapper.MapError(err)
	})
}

// UpdateLesson replaces the mutable fields of an existing lesson.
func (r *LessonRepository) UpdateLesson(ctx context.Context, lesson persistence.Lesson) error {
	if lesson.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE lessons
		SET class_id = ?, title = ?, book_day = ?, lesson_date = ?, start_minute = ?, end_minute = ?,
		    room = ?, notes = ?, status = ?, updated_at = ?
		WHERE id = ?`

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, query,
			lesson.ClassID,
			lesson.Title,
			lesson.BookDay,
			lesson.Date.String(),
			int(lesson.Start),
			int(lesson.End),
			nullString(lesson.Room),
			nullString(lesson.Notes),
			lesson.Status,
			formatTimestamp(lesson.UpdatedAt),
			lesson.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireRow(result)
	})
}

// GetLesson retrieves a lesson by ID.
func (r *LessonRepository) GetLesson(ctx context.Context, id string) (persistence.Lesson, error) {
	if id == "" {
		return persistence.Lesson{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, lessonSelect+` WHERE l.id = ?`, id)
	lesson, err := scanLesson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Lesson{}, persistence.ErrNotFound
		}
		return persistence.Lesson{}, r.mapper.MapError(err)
	}
	return lesson, nil
}

// ListLessons lists lessons matching filter ordered by date, start, then id.
func (r *LessonRepository) ListLessons(ctx context.Context, filter persistence.LessonFilter) ([]persistence.Lesson, error) {
	query, args := buildLessonListQuery(filter)
	return r.queryLessons(ctx, query, args...)
}

// DeleteLesson removes a lesson. Unknown ids yield persistence.ErrNotFound.
func (r *LessonRepository) DeleteLesson(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireRow(result)
	})
}

func (r *LessonRepository) queryLessons(ctx context.Context, query string, args ...any) ([]persistence.Lesson, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	lessons := make([]persistence.Lesson, 0)
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return lessons, nil
}

func buildLessonListQuery(filter persistence.LessonFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if filter.TeacherID != "" {
		conditions = append(conditions, "c.teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, "l.class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "l.status = ?")
		args = append(args, filter.Status)
	}
	// ISO dates compare correctly as text.
	if filter.From != nil {
		conditions = append(conditions, "l.lesson_date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		conditions = append(conditions, "l.lesson_date <= ?")
		args = append(args, filter.To.String())
	}

	query := lessonSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY l.lesson_date ASC, l.start_minute ASC, l.id ASC"

	return query, args
}

func scanLesson(row rowScanner) (persistence.Lesson, error) {
	var (
		lesson                     persistence.Lesson
		dateStr                    string
		startMinute, endMinute     int
		room, notes                sql.NullString
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&lesson.ID,
		&lesson.ClassID,
		&lesson.TeacherID,
		&lesson.Title,
		&lesson.BookDay,
		&dateStr,
		&startMinute,
		&endMinute,
		&room,
		&notes,
		&lesson.Status,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Lesson{}, err
	}

	var err error
	if lesson.Date, err = scheduler.ParseDate(dateStr); err != nil {
		return persistence.Lesson{}, fmt.Errorf("failed to parse lesson_date: %w", err)
	}
	lesson.Start = scheduler.TimeOfDay(startMinute)
	lesson.End = scheduler.TimeOfDay(endMinute)
	lesson.Room = stringPtr(room)
	lesson.Notes = stringPtr(notes)
	if lesson.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return persistence.Lesson{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if lesson.UpdatedAt, err = parseTimestamp(updatedAtStr); err != nil {
		return persistence.Lesson{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return lesson, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
