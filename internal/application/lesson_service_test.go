package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/lesson-scheduler/internal/events"
	"github.com/example/lesson-scheduler/internal/lock"
	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

type lessonRepoStub struct {
	mu        sync.Mutex
	lessons   map[string]Lesson
	findErr   error
	createErr error
	updateErr error
	findDelay time.Duration
	finds     int
	creates   int
	updates   int
}

func newLessonRepoStub(existing ...Lesson) *lessonRepoStub {
	repo := &lessonRepoStub{lessons: make(map[string]Lesson)}
	for _, lesson := range existing {
		repo.lessons[lesson.ID] = lesson
	}
	return repo
}

func (r *lessonRepoStub) FindByTeacherAndDate(ctx context.Context, teacherID string, date scheduler.Date) ([]Lesson, error) {
	r.mu.Lock()
	r.finds++
	if r.findErr != nil {
		r.mu.Unlock()
		return nil, r.findErr
	}
	out := make([]Lesson, 0)
	for _, lesson := range r.lessons {
		if lesson.TeacherID == teacherID && lesson.Date == date && lesson.Status.Occupies() {
			out = append(out, lesson)
		}
	}
	delay := r.findDelay
	r.mu.Unlock()

	// Widens the window between read and write for race tests.
	if delay > 0 {
		time.Sleep(delay)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *lessonRepoStub) CreateLesson(ctx context.Context, lesson Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.lessons[lesson.ID]; exists {
		return persistence.ErrDuplicate
	}
	r.creates++
	r.lessons[lesson.ID] = lesson
	return nil
}

func (r *lessonRepoStub) UpdateLesson(ctx context.Context, lesson Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, exists := r.lessons[lesson.ID]; !exists {
		return persistence.ErrNotFound
	}
	r.updates++
	r.lessons[lesson.ID] = lesson
	return nil
}

func (r *lessonRepoStub) GetLesson(ctx context.Context, id string) (Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lesson, ok := r.lessons[id]
	if !ok {
		return Lesson{}, persistence.ErrNotFound
	}
	return lesson, nil
}

func (r *lessonRepoStub) ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Lesson, 0)
	for _, lesson := range r.lessons {
		if filter.TeacherID != "" && lesson.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && lesson.Status != filter.Status {
			continue
		}
		out = append(out, lesson)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *lessonRepoStub) DeleteLesson(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lessons[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.lessons, id)
	return nil
}

func (r *lessonRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lessons)
}

type classDirectoryStub struct {
	classes map[string]Class
	err     error
}

func (c *classDirectoryStub) GetClass(ctx context.Context, id string) (Class, error) {
	if c.err != nil {
		return Class{}, c.err
	}
	class, ok := c.classes[id]
	if !ok {
		return Class{}, persistence.ErrNotFound
	}
	return class, nil
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.LessonEvent
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, event events.LessonEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// stalledPublisher never delivers; it returns only once ctx is done.
type stalledPublisher struct {
	calls chan struct{}
}

func (p *stalledPublisher) Publish(ctx context.Context, event events.LessonEvent) error {
	p.calls <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

// refetchFailingRepo serves the first read and fails every later one.
type refetchFailingRepo struct {
	*lessonRepoStub
	reads int
	err   error
}

func (r *refetchFailingRepo) FindByTeacherAndDate(ctx context.Context, teacherID string, date scheduler.Date) ([]Lesson, error) {
	r.reads++
	if r.reads > 1 {
		return nil, r.err
	}
	return r.lessonRepoStub.FindByTeacherAndDate(ctx, teacherID, date)
}

type failingLocker struct {
	err error
}

func (f failingLocker) Acquire(ctx context.Context, key string) (lock.Release, error) {
	return nil, f.err
}

var lessonDay = scheduler.NewDate(2024, time.March, 11)

func sampleClasses() *classDirectoryStub {
	room := "Room 1"
	return &classDirectoryStub{classes: map[string]Class{
		"class-1": {
			ID:        "class-1",
			TeacherID: "teacher-1",
			Title:     "English A1",
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
			Start:     scheduler.NewTimeOfDay(9, 0),
			End:       scheduler.NewTimeOfDay(10, 0),
			Room:      &room,
		},
		"class-2": {
			ID:        "class-2",
			TeacherID: "teacher-1",
			Title:     "English B1",
			Start:     scheduler.NewTimeOfDay(11, 0),
			End:       scheduler.NewTimeOfDay(12, 0),
		},
		"class-3": {
			ID:        "class-3",
			TeacherID: "teacher-2",
			Title:     "Maths",
			Start:     scheduler.NewTimeOfDay(9, 0),
			End:       scheduler.NewTimeOfDay(10, 0),
		},
	}}
}

func bookedLesson(id, classID, teacherID, start, end string) Lesson {
	startAt, _ := scheduler.ParseTimeOfDay(start)
	endAt, _ := scheduler.ParseTimeOfDay(end)
	return Lesson{
		ID:        id,
		ClassID:   classID,
		TeacherID: teacherID,
		Title:     "Lesson " + id,
		Date:      lessonDay,
		Start:     startAt,
		End:       endAt,
		Status:    LessonStatusScheduled,
	}
}

func lessonInput(classID, start, end string) LessonInput {
	return LessonInput{
		ClassID:   classID,
		Title:     "Unit 1",
		BookDay:   1,
		Date:      lessonDay.String(),
		StartTime: start,
		EndTime:   end,
	}
}

func newTestLessonService(repo *lessonRepoStub, publisher EventPublisher) *LessonService {
	counter := 0
	var mu sync.Mutex
	idGen := func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("lesson-%d", counter)
	}
	now := func() time.Time { return time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC) }
	return NewLessonService(repo, sampleClasses(), lock.NewKeyedMutex(), publisher, idGen, now)
}

func TestLessonService_CreateLesson_PersistsWhenSlotIsFree(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	publisher := &publisherStub{}
	svc := newTestLessonService(repo, publisher)

	lesson, err := svc.CreateLesson(context.Background(), lessonInput("class-1", "09:00", "10:00"))
	if err != nil {
		t.Fatalf("CreateLesson returned error: %v", err)
	}
	if lesson.ID != "lesson-1" || lesson.TeacherID != "teacher-1" || lesson.Status != LessonStatusScheduled {
		t.Fatalf("unexpected lesson %+v", lesson)
	}
	if lesson.CreatedAt.IsZero() || !lesson.CreatedAt.Equal(lesson.UpdatedAt) {
		t.Fatalf("expected timestamps to be set, got %+v", lesson)
	}
	if repo.creates != 1 {
		t.Fatalf("expected one write, got %d", repo.creates)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != events.TypeLessonCreated || publisher.events[0].LessonID != "lesson-1" {
		t.Fatalf("expected lesson.created event, got %+v", publisher.events)
	}
}

func TestLessonService_CreateLesson_RejectsOverlapWithoutWriting(t *testing.T) {
	t.Parallel()

	existing := bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00")
	repo := newLessonRepoStub(existing)
	publisher := &publisherStub{}
	svc := newTestLessonService(repo, publisher)

	_, err := svc.CreateLesson(context.Background(), lessonInput("class-2", "09:30", "10:30"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Lesson.ID != "A" {
		t.Fatalf("expected conflict with lesson A, got %+v", conflict.Lesson)
	}
	if repo.creates != 0 || repo.count() != 1 {
		t.Fatalf("expected no write, got %d creates", repo.creates)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events on conflict, got %+v", publisher.events)
	}
}

func TestLessonService_CreateLesson_AllowsAdjacentAndOtherTeachers(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub(bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00"))
	svc := newTestLessonService(repo, nil)

	if _, err := svc.CreateLesson(context.Background(), lessonInput("class-2", "10:00", "11:00")); err != nil {
		t.Fatalf("expected adjacent lesson to be booked, got %v", err)
	}
	if _, err := svc.CreateLesson(context.Background(), lessonInput("class-2", "08:00", "09:00")); err != nil {
		t.Fatalf("expected lesson ending at 09:00 to be booked, got %v", err)
	}
	if _, err := svc.CreateLesson(context.Background(), lessonInput("class-3", "09:00", "10:00")); err != nil {
		t.Fatalf("expected other teacher to be free, got %v", err)
	}
	if repo.count() != 4 {
		t.Fatalf("expected four lessons, got %d", repo.count())
	}
}

func TestLessonService_CreateLesson_CancelledLessonsDoNotBlock(t *testing.T) {
	t.Parallel()

	cancelled := bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00")
	cancelled.Status = LessonStatusCancelled
	repo := newLessonRepoStub(cancelled)
	svc := newTestLessonService(repo, nil)

	if _, err := svc.CreateLesson(context.Background(), lessonInput("class-2", "09:00", "10:00")); err != nil {
		t.Fatalf("expected cancelled lesson to free the slot, got %v", err)
	}
}

func TestLessonService_CreateLesson_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newTestLessonService(newLessonRepoStub(), nil)

	cases := []struct {
		name   string
		input  LessonInput
		fields []string
	}{
		{name: "missing fields", input: LessonInput{}, fields: []string{"classId", "title", "date", "startTime", "endTime"}},
		{name: "end before start", input: lessonInput("class-1", "10:00", "09:00"), fields: []string{"endTime"}},
		{name: "zero length", input: lessonInput("class-1", "10:00", "10:00"), fields: []string{"endTime"}},
		{name: "malformed time", input: lessonInput("class-1", "9am", "10:00"), fields: []string{"startTime"}},
		{name: "unknown status", input: func() LessonInput {
			in := lessonInput("class-1", "09:00", "10:00")
			in.Status = "postponed"
			return in
		}(), fields: []string{"status"}},
		{name: "negative book day", input: func() LessonInput {
			in := lessonInput("class-1", "09:00", "10:00")
			in.BookDay = -1
			return in
		}(), fields: []string{"bookDay"}},
	}

	for _, tc := range cases {
		_, err := svc.CreateLesson(context.Background(), tc.input)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		for _, field := range tc.fields {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("%s: expected field %q in %v", tc.name, field, vErr.FieldErrors)
			}
		}
	}
}

func TestLessonService_CreateLesson_UnknownClass(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	svc := newTestLessonService(repo, nil)

	_, err := svc.CreateLesson(context.Background(), lessonInput("missing", "09:00", "10:00"))
	if !errors.Is(err, ErrClassNotFound) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
	if repo.creates != 0 {
		t.Fatalf("expected no write")
	}
}

func TestLessonService_CreateLesson_ConcurrentBookingsYieldOneSuccess(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	repo.findDelay = 2 * time.Millisecond
	svc := newTestLessonService(repo, nil)

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			classID := "class-1"
			if i%2 == 1 {
				classID = "class-2"
			}
			_, err := svc.CreateLesson(context.Background(), lessonInput(classID, "09:00", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("expected exactly one success, got %d successes and %d conflicts", successes, conflicts)
	}
	if repo.count() != 1 {
		t.Fatalf("expected one stored lesson, got %d", repo.count())
	}
}

func TestLessonService_CreateLesson_StorageOverlapMapsToConflict(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	repo.createErr = fmt.Errorf("insert: %w", persistence.ErrOverlap)
	svc := newTestLessonService(repo, nil)

	_, err := svc.CreateLesson(context.Background(), lessonInput("class-1", "09:00", "10:00"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict from storage backstop, got %v", err)
	}
}

func TestLessonService_CreateLesson_StorageFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("database is locked")
	repo := newLessonRepoStub()
	repo.findErr = cause
	svc := newTestLessonService(repo, nil)

	_, err := svc.CreateLesson(context.Background(), lessonInput("class-1", "09:00", "10:00"))
	var storageErr *StorageError
	if !errors.As(err, &storageErr) || !errors.Is(err, cause) {
		t.Fatalf("expected StorageError wrapping cause, got %v", err)
	}
	if repo.creates != 0 {
		t.Fatalf("expected no write after failed read")
	}
}

func TestLessonService_CreateLesson_CancelledContextWritesNothing(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	svc := newTestLessonService(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateLesson(ctx, lessonInput("class-1", "09:00", "10:00"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if repo.creates != 0 {
		t.Fatalf("expected no write for cancelled request")
	}
}

func TestLessonService_CreateLesson_LockUnavailable(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	svc := NewLessonService(repo, sampleClasses(), failingLocker{err: lock.ErrNotAcquired}, nil, func() string { return "lesson-1" }, nil)

	_, err := svc.CreateLesson(context.Background(), lessonInput("class-1", "09:00", "10:00"))
	if !errors.Is(err, ErrBookingBusy) {
		t.Fatalf("expected ErrBookingBusy, got %v", err)
	}

	svc = NewLessonService(repo, sampleClasses(), failingLocker{err: errors.New("redis down")}, nil, func() string { return "lesson-1" }, nil)
	_, err = svc.CreateLesson(context.Background(), lessonInput("class-1", "09:00", "10:00"))
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError for lock backend failure, got %v", err)
	}
	if repo.creates != 0 {
		t.Fatalf("expected no writes without lock")
	}
}

func TestLessonService_CreateLesson_PublishFailureDoesNotFailBooking(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	svc := newTestLessonService(repo, &publisherStub{err: errors.New("broker unavailable")})

	if _, err := svc.CreateLesson(context.Background(), lessonInput("class-1", "09:00", "10:00")); err != nil {
		t.Fatalf("expected booking to succeed despite publish failure, got %v", err)
	}
	if repo.count() != 1 {
		t.Fatalf("expected lesson to be stored")
	}
}

func TestLessonService_CreateLesson_StalledPublisherDoesNotHoldCaller(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	publisher := &stalledPublisher{calls: make(chan struct{}, 1)}
	svc := newTestLessonService(repo, publisher)
	svc.SetPublishTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := svc.CreateLesson(ctx, lessonInput("class-1", "09:00", "10:00"))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected booking to succeed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("CreateLesson still blocked on the event publisher")
	}
	select {
	case <-publisher.calls:
	default:
		t.Fatalf("expected the event to be attempted")
	}
	if repo.count() != 1 {
		t.Fatalf("expected lesson to be stored")
	}
}

func TestLessonService_CreateLesson_StorageOverlapLogsFailedLookup(t *testing.T) {
	t.Parallel()

	stub := newLessonRepoStub()
	stub.createErr = fmt.Errorf("insert: %w", persistence.ErrOverlap)
	repo := &refetchFailingRepo{lessonRepoStub: stub, err: errors.New("database is locked")}

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	svc := NewLessonServiceWithLogger(repo, sampleClasses(), lock.NewKeyedMutex(), nil, func() string { return "lesson-1" }, time.Now, logger)

	_, err := svc.CreateLesson(context.Background(), lessonInput("class-1", "09:00", "10:00"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict from storage backstop, got %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "failed to load conflicting lesson after storage overlap") || !strings.Contains(out, "database is locked") {
		t.Fatalf("expected failed lookup to be logged, got:\n%s", out)
	}
}

func TestLessonService_UpdateLesson_IdenticalSlotNeverConflicts(t *testing.T) {
	t.Parallel()

	existing := bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00")
	repo := newLessonRepoStub(existing)
	svc := newTestLessonService(repo, nil)

	start, end := "09:00", "10:00"
	updated, err := svc.UpdateLesson(context.Background(), "A", LessonPatch{StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatalf("expected identical edit to succeed, got %v", err)
	}
	if updated.Start != existing.Start || updated.End != existing.End {
		t.Fatalf("unexpected lesson %+v", updated)
	}
}

func TestLessonService_UpdateLesson_RoomOnlyEditSkipsCheck(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub(bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00"))
	publisher := &publisherStub{}
	svc := newTestLessonService(repo, publisher)

	room := "Room 7"
	notes := "bring workbook"
	updated, err := svc.UpdateLesson(context.Background(), "A", LessonPatch{Room: &room, Notes: &notes})
	if err != nil {
		t.Fatalf("UpdateLesson returned error: %v", err)
	}
	if updated.Room == nil || *updated.Room != room || updated.Notes == nil || *updated.Notes != notes {
		t.Fatalf("expected room and notes to be updated, got %+v", updated)
	}
	if repo.finds != 0 {
		t.Fatalf("expected no conflict query for room-only edit, got %d", repo.finds)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != events.TypeLessonUpdated {
		t.Fatalf("expected lesson.updated event, got %+v", publisher.events)
	}
}

func TestLessonService_UpdateLesson_RejectsMoveIntoBookedSlot(t *testing.T) {
	t.Parallel()

	a := bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00")
	b := bookedLesson("B", "class-2", "teacher-1", "10:00", "11:00")
	repo := newLessonRepoStub(a, b)
	svc := newTestLessonService(repo, nil)

	start, end := "09:30", "10:30"
	_, err := svc.UpdateLesson(context.Background(), "B", LessonPatch{StartTime: &start, EndTime: &end})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Lesson.ID != "A" {
		t.Fatalf("expected conflict with A, got %v", err)
	}
	stored, _ := repo.GetLesson(context.Background(), "B")
	if stored.Start != b.Start {
		t.Fatalf("expected stored lesson to be unchanged, got %+v", stored)
	}
	if repo.updates != 0 {
		t.Fatalf("expected no write on conflict")
	}
}

func TestLessonService_UpdateLesson_ChangingClassRechecksNewTeacher(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub(
		bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00"),
		bookedLesson("M", "class-3", "teacher-2", "09:00", "10:00"),
	)
	svc := newTestLessonService(repo, nil)

	classID := "class-1"
	_, err := svc.UpdateLesson(context.Background(), "M", LessonPatch{ClassID: &classID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict after moving lesson to teacher-1, got %v", err)
	}

	missing := "class-404"
	_, err = svc.UpdateLesson(context.Background(), "M", LessonPatch{ClassID: &missing})
	if !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
}

func TestLessonService_UpdateLesson_ReactivationRechecks(t *testing.T) {
	t.Parallel()

	cancelled := bookedLesson("C", "class-2", "teacher-1", "09:00", "10:00")
	cancelled.Status = LessonStatusCancelled
	repo := newLessonRepoStub(bookedLesson("A", "class-1", "teacher-1", "09:30", "10:30"), cancelled)
	svc := newTestLessonService(repo, nil)

	status := string(LessonStatusScheduled)
	_, err := svc.UpdateLesson(context.Background(), "C", LessonPatch{Status: &status})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected reactivation to conflict, got %v", err)
	}

	cancel := string(LessonStatusCancelled)
	if _, err := svc.UpdateLesson(context.Background(), "A", LessonPatch{Status: &cancel}); err != nil {
		t.Fatalf("expected cancellation to succeed, got %v", err)
	}
	if _, err := svc.UpdateLesson(context.Background(), "C", LessonPatch{Status: &status}); err != nil {
		t.Fatalf("expected reactivation to succeed once slot is free, got %v", err)
	}
}

func TestLessonService_UpdateLesson_ValidatesMergedSlot(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub(bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00"))
	svc := newTestLessonService(repo, nil)

	end := "08:30"
	_, err := svc.UpdateLesson(context.Background(), "A", LessonPatch{EndTime: &end})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["endTime"] == "" {
		t.Fatalf("expected endTime validation error, got %v", err)
	}

	bad := "tomorrow"
	_, err = svc.UpdateLesson(context.Background(), "A", LessonPatch{Date: &bad})
	if !errors.As(err, &vErr) || vErr.FieldErrors["date"] == "" {
		t.Fatalf("expected date validation error, got %v", err)
	}
}

func TestLessonService_UpdateLesson_ReturnsNotFoundWhenMissing(t *testing.T) {
	t.Parallel()

	svc := newTestLessonService(newLessonRepoStub(), nil)
	title := "renamed"
	if _, err := svc.UpdateLesson(context.Background(), "nope", LessonPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLessonService_CheckConflicts_IsIdempotentAndReadOnly(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub(bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00"))
	svc := newTestLessonService(repo, nil)

	query := ConflictQuery{TeacherID: "teacher-1", Date: lessonDay.String(), StartTime: "09:30", EndTime: "10:30"}
	first, err := svc.CheckConflicts(context.Background(), query)
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	second, err := svc.CheckConflicts(context.Background(), query)
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	if !first.HasConflict || first.ConflictingLesson == nil || first.ConflictingLesson.ID != "A" {
		t.Fatalf("expected conflict with A, got %+v", first)
	}
	if second.HasConflict != first.HasConflict || second.ConflictingLesson.ID != first.ConflictingLesson.ID {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
	if repo.creates != 0 || repo.updates != 0 {
		t.Fatalf("expected preview to have no side effects")
	}

	query.ExcludeLessonID = "A"
	excluded, err := svc.CheckConflicts(context.Background(), query)
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	if excluded.HasConflict {
		t.Fatalf("expected exclusion to clear the conflict, got %+v", excluded)
	}
}

func TestLessonService_CheckConflicts_Validates(t *testing.T) {
	t.Parallel()

	svc := newTestLessonService(newLessonRepoStub(), nil)
	_, err := svc.CheckConflicts(context.Background(), ConflictQuery{Date: "2024-02-30", StartTime: "10:00", EndTime: "09:00"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"teacherId", "date", "endTime"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestLessonService_CreateRecurringFromClass_PartialSuccess(t *testing.T) {
	t.Parallel()

	second := lessonDay.AddDays(2)
	blocker := bookedLesson("X", "class-2", "teacher-1", "09:30", "10:30")
	blocker.Date = second
	repo := newLessonRepoStub(blocker)
	publisher := &publisherStub{}
	svc := newTestLessonService(repo, publisher)

	dates := []scheduler.Date{lessonDay, second, lessonDay.AddDays(7), lessonDay}
	results, err := svc.CreateRecurringFromClass(context.Background(), "class-1", dates, RecurringOptions{FirstBookDay: 5})
	if err != nil {
		t.Fatalf("CreateRecurringFromClass returned error: %v", err)
	}
	if len(results) != len(dates) {
		t.Fatalf("expected %d results, got %d", len(dates), len(results))
	}

	if results[0].Err != nil || results[0].Lesson == nil || results[0].Lesson.BookDay != 5 {
		t.Fatalf("expected first date booked with book day 5, got %+v", results[0])
	}
	if results[0].Lesson.Room == nil || *results[0].Lesson.Room != "Room 1" || results[0].Lesson.TeacherID != "teacher-1" {
		t.Fatalf("expected class template to seed lesson, got %+v", results[0].Lesson)
	}
	var conflict *ConflictError
	if !errors.As(results[1].Err, &conflict) || conflict.Lesson.ID != "X" || results[1].Lesson != nil {
		t.Fatalf("expected second date to conflict with X, got %+v", results[1])
	}
	if results[2].Err != nil || results[2].Lesson.BookDay != 7 {
		t.Fatalf("expected third date booked, got %+v", results[2])
	}
	if !errors.Is(results[3].Err, ErrConflict) {
		t.Fatalf("expected repeated date to conflict with the batch's own lesson, got %+v", results[3])
	}
	if repo.creates != 2 || len(publisher.events) != 2 {
		t.Fatalf("expected two writes and events, got %d writes and %d events", repo.creates, len(publisher.events))
	}
}

func TestLessonService_CreateRecurringFromClass_Validates(t *testing.T) {
	t.Parallel()

	svc := newTestLessonService(newLessonRepoStub(), nil)

	if _, err := svc.CreateRecurringFromClass(context.Background(), "class-1", nil, RecurringOptions{}); ErrorKind(err) != "validation" {
		t.Fatalf("expected validation error for empty dates, got %v", err)
	}
	if _, err := svc.CreateRecurringFromClass(context.Background(), "missing", []scheduler.Date{lessonDay}, RecurringOptions{}); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
}

func TestLessonService_GenerateFromClass_ExpandsWeeklyTemplate(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub()
	svc := newTestLessonService(repo, nil)

	// 2024-03-11 is a Monday; class-1 meets Monday and Wednesday.
	results, err := svc.GenerateFromClass(context.Background(), "class-1", "2024-03-11", "2024-03-24", RecurringOptions{})
	if err != nil {
		t.Fatalf("GenerateFromClass returned error: %v", err)
	}
	want := []string{"2024-03-11", "2024-03-13", "2024-03-18", "2024-03-20"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, result := range results {
		if result.Err != nil || result.Lesson == nil {
			t.Fatalf("result %d: unexpected error %v", i, result.Err)
		}
		if result.Date.String() != want[i] || result.Lesson.BookDay != i+1 {
			t.Fatalf("result %d: got date %s book day %d", i, result.Date, result.Lesson.BookDay)
		}
	}

	_, err = svc.GenerateFromClass(context.Background(), "class-1", "2024-03-24", "2024-03-11", RecurringOptions{})
	if ErrorKind(err) != "validation" {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

func TestLessonService_ListLessons(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub(
		bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00"),
		bookedLesson("M", "class-3", "teacher-2", "09:00", "10:00"),
	)
	svc := newTestLessonService(repo, nil)

	lessons, err := svc.ListLessons(context.Background(), LessonListParams{TeacherID: "teacher-2"})
	if err != nil {
		t.Fatalf("ListLessons returned error: %v", err)
	}
	if len(lessons) != 1 || lessons[0].ID != "M" {
		t.Fatalf("unexpected lessons %+v", lessons)
	}

	_, err = svc.ListLessons(context.Background(), LessonListParams{From: "2024-03-10", To: "2024-03-01"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["to"] == "" {
		t.Fatalf("expected range validation error, got %v", err)
	}
	if _, err := svc.ListLessons(context.Background(), LessonListParams{Status: "unknown"}); ErrorKind(err) != "validation" {
		t.Fatalf("expected status validation error, got %v", err)
	}
}

func TestLessonService_DeleteLesson(t *testing.T) {
	t.Parallel()

	repo := newLessonRepoStub(bookedLesson("A", "class-1", "teacher-1", "09:00", "10:00"))
	publisher := &publisherStub{}
	svc := newTestLessonService(repo, publisher)

	if err := svc.DeleteLesson(context.Background(), "A"); err != nil {
		t.Fatalf("DeleteLesson returned error: %v", err)
	}
	if repo.count() != 0 {
		t.Fatalf("expected lesson to be removed")
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != events.TypeLessonDeleted {
		t.Fatalf("expected lesson.deleted event, got %+v", publisher.events)
	}
	if err := svc.DeleteLesson(context.Background(), "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
	if _, err := svc.GetLesson(context.Background(), "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from GetLesson, got %v", err)
	}
}

func TestLessonService_NilReceiver(t *testing.T) {
	t.Parallel()

	var svc *LessonService
	if _, err := svc.CreateLesson(context.Background(), LessonInput{}); err == nil {
		t.Fatalf("expected error from nil service")
	}
}
