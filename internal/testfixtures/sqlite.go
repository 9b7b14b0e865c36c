package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Store   *sqlite.Store
	Lessons persistence.LessonRepository
	Classes persistence.ClassRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	path := filepath.Join(tb.TempDir(), "scheduler.db")

	store, err := sqlite.Open(ctx, path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(ctx, nil); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:   store,
		Lessons: store.Lessons,
		Classes: store.Classes,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedClasses inserts the fixtures through the class repository.
func (h *SQLiteHarness) SeedClasses(tb testing.TB, classes ...ClassFixture) {
	tb.Helper()
	for _, class := range classes {
		if err := h.Classes.CreateClass(context.Background(), class.Persistence()); err != nil {
			tb.Fatalf("failed to seed class %s: %v", class.ID, err)
		}
	}
}

// SeedLessons inserts the fixtures through the lesson repository.
func (h *SQLiteHarness) SeedLessons(tb testing.TB, lessons ...LessonFixture) {
	tb.Helper()
	for _, lesson := range lessons {
		if err := h.Lessons.CreateLesson(context.Background(), lesson.Persistence()); err != nil {
			tb.Fatalf("failed to seed lesson %s: %v", lesson.ID, err)
		}
	}
}
