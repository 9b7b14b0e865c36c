package persistence_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/persistence/memory"
	"github.com/example/lesson-scheduler/internal/persistence/sqlite"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

type backend struct {
	lessons persistence.LessonRepository
	classes persistence.ClassRepository
}

func backends(t *testing.T) map[string]func(t *testing.T) backend {
	t.Helper()

	return map[string]func(t *testing.T) backend{
		"memory": func(t *testing.T) backend {
			storage := memory.New()
			return backend{lessons: storage, classes: storage}
		},
		"sqlite": func(t *testing.T) backend {
			ctx := context.Background()
			store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "contract.db"))
			if err != nil {
				t.Fatalf("failed to open sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			if err := store.Migrate(ctx, nil); err != nil {
				t.Fatalf("failed to migrate: %v", err)
			}
			return backend{lessons: store.Lessons, classes: store.Classes}
		},
	}
}

func TestLessonRepositoryContract(t *testing.T) {
	t.Parallel()

	day := scheduler.NewDate(2024, time.March, 10)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	lesson := func(id, classID string, start, end int) persistence.Lesson {
		return persistence.Lesson{
			ID:        id,
			ClassID:   classID,
			Title:     id,
			Date:      day,
			Start:     scheduler.TimeOfDay(start),
			End:       scheduler.TimeOfDay(end),
			Status:    persistence.LessonStatusScheduled,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	for name, open := range backends(t) {
		name, open := name, open
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			b := open(t)

			for _, class := range []persistence.Class{
				{ID: "math", TeacherID: "T", Title: "Math", Start: 540, End: 600, CreatedAt: now, UpdatedAt: now},
				{ID: "art", TeacherID: "T", Title: "Art", Start: 600, End: 660, CreatedAt: now, UpdatedAt: now},
			} {
				if err := b.classes.CreateClass(ctx, class); err != nil {
					t.Fatalf("CreateClass(%s) failed: %v", class.ID, err)
				}
			}

			// Scenario: A 09:00-10:00 exists; B 09:30-10:30 is rejected; C 10:00-11:00 is accepted.
			if err := b.lessons.CreateLesson(ctx, lesson("A", "math", 540, 600)); err != nil {
				t.Fatalf("create A: %v", err)
			}
			if err := b.lessons.CreateLesson(ctx, lesson("B", "art", 570, 630)); !errors.Is(err, persistence.ErrOverlap) {
				t.Fatalf("create B: expected ErrOverlap, got %v", err)
			}
			if err := b.lessons.CreateLesson(ctx, lesson("C", "art", 600, 660)); err != nil {
				t.Fatalf("create C: %v", err)
			}

			found, err := b.lessons.FindByTeacherAndDate(ctx, "T", day)
			if err != nil {
				t.Fatalf("FindByTeacherAndDate failed: %v", err)
			}
			if len(found) != 2 || found[0].ID != "A" || found[1].ID != "C" {
				t.Fatalf("unexpected comparison set: %+v", found)
			}
			if found[1].TeacherID != "T" {
				t.Fatalf("expected resolved teacher, got %q", found[1].TeacherID)
			}

			none, err := b.lessons.FindByTeacherAndDate(ctx, "T", day.AddDays(1))
			if err != nil || len(none) != 0 {
				t.Fatalf("expected empty set on another day, got %v %v", none, err)
			}

			if err := b.lessons.DeleteLesson(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound deleting unknown lesson, got %v", err)
			}
			if _, err := b.lessons.GetLesson(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound getting unknown lesson, got %v", err)
			}
			if _, err := b.classes.GetClass(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound getting unknown class, got %v", err)
			}
		})
	}
}
