package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

// ClassRepository implements persistence.ClassRepository using SQLite.
type ClassRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewClassRepository creates a new SQLite class repository.
func NewClassRepository(pool *ConnectionPool) *ClassRepository {
	return &ClassRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

const classColumns = `id, teacher_id, title, book_id, unit_id, weekdays, start_minute, end_minute, room, capacity, created_at, updated_at`

// CreateClass inserts a new class.
func (r *ClassRepository) CreateClass(ctx context.Context, class persistence.Class) error {
	if class.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO classes (` + classColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.pool.DB().ExecContext(ctx, query,
		class.ID,
		class.TeacherID,
		class.Title,
		nullString(class.BookID),
		nullString(class.UnitID),
		encodeWeekdays(class.Weekdays),
		int(class.Start),
		int(class.End),
		nullString(class.Room),
		class.Capacity,
		formatTimestamp(class.CreatedAt),
		formatTimestamp(class.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetClass retrieves a class by ID.
func (r *ClassRepository) GetClass(ctx context.Context, id string) (persistence.Class, error) {
	if id == "" {
		return persistence.Class{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id)
	class, err := scanClass(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Class{}, persistence.ErrNotFound
		}
		return persistence.Class{}, r.mapper.MapError(err)
	}
	return class, nil
}

// ListClasses returns all classes ordered by title, then id.
func (r *ClassRepository) ListClasses(ctx context.Context) ([]persistence.Class, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT `+classColumns+` FROM classes ORDER BY title ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var classes []persistence.Class
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		classes = append(classes, class)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return classes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClass(row rowScanner) (persistence.Class, error) {
	var (
		class                      persistence.Class
		bookID, unitID, room       sql.NullString
		weekdays                   string
		startMinute, endMinute     int
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&class.ID,
		&class.TeacherID,
		&class.Title,
		&bookID,
		&unitID,
		&weekdays,
		&startMinute,
		&endMinute,
		&room,
		&class.Capacity,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Class{}, err
	}

	class.BookID = stringPtr(bookID)
	class.UnitID = stringPtr(unitID)
	class.Room = stringPtr(room)
	class.Start = scheduler.TimeOfDay(startMinute)
	class.End = scheduler.TimeOfDay(endMinute)

	var err error
	if class.Weekdays, err = decodeWeekdays(weekdays); err != nil {
		return persistence.Class{}, err
	}
	if class.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return persistence.Class{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if class.UpdatedAt, err = parseTimestamp(updatedAtStr); err != nil {
		return persistence.Class{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return class, nil
}

// encodeWeekdays stores weekdays as a sorted comma separated list ("1,3,5").
func encodeWeekdays(days []time.Weekday) string {
	seen := make(map[time.Weekday]struct{}, len(days))
	values := make([]int, 0, len(days))
	for _, day := range days {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		values = append(values, int(day))
	}
	sort.Ints(values)

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(value string) ([]time.Weekday, error) {
	if value == "" {
		return []time.Weekday{}, nil
	}
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < int(time.Sunday) || n > int(time.Saturday) {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
