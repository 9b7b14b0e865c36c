package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lesson-scheduler/internal/events"
	"github.com/example/lesson-scheduler/internal/lock"
	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/recurrence"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

const (
	defaultLockWait       = 5 * time.Second
	defaultPublishTimeout = 5 * time.Second
	maxUpdateAttempts     = 3
)

// LessonRepository captures the persistence interactions needed by the service.
type LessonRepository interface {
	// FindByTeacherAndDate returns the non-cancelled lessons of the teacher on
	// date ordered by start time.
	FindByTeacherAndDate(ctx context.Context, teacherID string, date scheduler.Date) ([]Lesson, error)
	CreateLesson(ctx context.Context, lesson Lesson) error
	UpdateLesson(ctx context.Context, lesson Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
	DeleteLesson(ctx context.Context, id string) error
}

// ClassDirectory exposes class lookup operations.
type ClassDirectory interface {
	GetClass(ctx context.Context, id string) (Class, error)
}

// EventPublisher delivers lesson change events after a successful write.
type EventPublisher interface {
	Publish(ctx context.Context, event events.LessonEvent) error
}

// LessonService books, edits and previews lessons without double-booking a
// teacher. Every write holds the booking lock of the affected teacher and day
// from the moment the comparison set is read until the row is written.
type LessonService struct {
	lessons     LessonRepository
	classes     ClassDirectory
	locker      lock.Locker
	publisher   EventPublisher
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	lockWait    time.Duration
	publishWait time.Duration
	logger      *slog.Logger
}

// NewLessonService wires dependencies for lesson operations. A nil locker
// falls back to an in-process keyed mutex; a nil publisher disables events.
func NewLessonService(lessons LessonRepository, classes ClassDirectory, locker lock.Locker, publisher EventPublisher, idGenerator func() string, now func() time.Time) *LessonService {
	return NewLessonServiceWithLogger(lessons, classes, locker, publisher, idGenerator, now, nil)
}

// NewLessonServiceWithLogger wires dependencies and a structured logger.
func NewLessonServiceWithLogger(lessons LessonRepository, classes ClassDirectory, locker lock.Locker, publisher EventPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LessonService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &LessonService{
		lessons:     lessons,
		classes:     classes,
		locker:      locker,
		publisher:   publisher,
		engine:      recurrence.NewEngine(0),
		idGenerator: idGenerator,
		now:         now,
		lockWait:    defaultLockWait,
		publishWait: defaultPublishTimeout,
		logger:      defaultLogger(logger),
	}
}

// SetLockWait bounds how long a write waits for the booking lock before
// failing with ErrBookingBusy. Non-positive values wait as long as ctx allows.
func (s *LessonService) SetLockWait(d time.Duration) {
	if s != nil {
		s.lockWait = d
	}
}

// SetPublishTimeout bounds how long a committed write waits for its event to
// be published. Non-positive values restore the default.
func (s *LessonService) SetPublishTimeout(d time.Duration) {
	if s == nil {
		return
	}
	if d <= 0 {
		d = defaultPublishTimeout
	}
	s.publishWait = d
}

// CreateLesson validates the input, resolves the teacher through the class and
// books the lesson if the teacher is free.
func (s *LessonService) CreateLesson(ctx context.Context, input LessonInput) (Lesson, error) {
	if err := s.ready(); err != nil {
		return Lesson{}, err
	}
	logger := serviceLogger(ctx, s.logger, "lesson", "create", "class_id", input.ClassID, "date", input.Date)

	lesson, vErr := parseLessonInput(input)
	if vErr.HasErrors() {
		logger.Warn("lesson validation failed", "error_kind", ErrorKind(vErr), "error", vErr)
		return Lesson{}, vErr
	}

	class, err := s.lookupClass(ctx, lesson.ClassID)
	if err != nil {
		logFailure(logger, "lesson creation failed", err)
		return Lesson{}, err
	}

	createdAt := s.now()
	lesson.ID = s.idGenerator()
	lesson.TeacherID = class.TeacherID
	lesson.CreatedAt = createdAt
	lesson.UpdatedAt = createdAt

	created, err := s.book(ctx, lesson)
	if err != nil {
		logFailure(logger, "lesson creation failed", err)
		return Lesson{}, err
	}

	logger.Info("lesson created", "lesson_id", created.ID, "teacher_id", created.TeacherID)
	s.publish(ctx, logger, events.TypeLessonCreated, created)
	return created, nil
}

// UpdateLesson merges patch over the stored lesson. The conflict check only
// runs when the slot, the teacher, or a reactivation of a cancelled lesson is
// involved; the lesson never conflicts with its own stored row.
func (s *LessonService) UpdateLesson(ctx context.Context, id string, patch LessonPatch) (Lesson, error) {
	if err := s.ready(); err != nil {
		return Lesson{}, err
	}
	id = strings.TrimSpace(id)
	logger := serviceLogger(ctx, s.logger, "lesson", "update", "lesson_id", id)

	vErr := validateLessonPatch(patch)
	if id == "" {
		vErr.add("id", "is required")
	}
	if vErr.HasErrors() {
		logger.Warn("lesson validation failed", "error_kind", ErrorKind(vErr), "error", vErr)
		return Lesson{}, vErr
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.lessons.GetLesson(ctx, id)
		if err != nil {
			err = mapLessonRepoError("get lesson", "", err)
			logFailure(logger, "lesson update failed", err)
			return Lesson{}, err
		}
		target, err := s.patchedLesson(ctx, current, patch)
		if err != nil {
			logFailure(logger, "lesson update failed", err)
			return Lesson{}, err
		}

		keys := lessonKeys(current, target)
		release, err := s.acquire(ctx, keys...)
		if err != nil {
			logFailure(logger, "lesson update failed", err)
			return Lesson{}, err
		}
		updated, retry, err := s.updateLocked(ctx, id, patch, keys)
		release()
		if retry {
			logger.Debug("lesson moved while waiting for lock, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			logFailure(logger, "lesson update failed", err)
			return Lesson{}, err
		}

		logger.Info("lesson updated", "teacher_id", updated.TeacherID, "date", updated.Date.String())
		s.publish(ctx, logger, events.TypeLessonUpdated, updated)
		return updated, nil
	}

	logger.Warn("lesson update gave up after concurrent edits", "error_kind", ErrorKind(ErrBookingBusy))
	return Lesson{}, ErrBookingBusy
}

// updateLocked re-reads the lesson under the booking lock. retry is true when
// a concurrent edit moved the lesson to keys that are not held.
func (s *LessonService) updateLocked(ctx context.Context, id string, patch LessonPatch, held []string) (Lesson, bool, error) {
	current, err := s.lessons.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, false, mapLessonRepoError("get lesson", "", err)
	}
	updated, err := s.patchedLesson(ctx, current, patch)
	if err != nil {
		return Lesson{}, false, err
	}
	if !sameKeys(lessonKeys(current, updated), held) {
		return Lesson{}, true, nil
	}

	if requiresConflictCheck(current, updated) {
		if err := s.ensureSlotFree(ctx, updated, updated.ID); err != nil {
			return Lesson{}, false, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Lesson{}, false, err
	}

	updated.UpdatedAt = s.now()
	if err := s.lessons.UpdateLesson(ctx, updated); err != nil {
		return Lesson{}, false, s.mapWriteError(ctx, "update lesson", updated, updated.ID, err)
	}
	return updated, false, nil
}

// CheckConflicts previews whether a slot is free. It runs the same query and
// checker as the write path and has no side effects.
func (s *LessonService) CheckConflicts(ctx context.Context, query ConflictQuery) (ConflictResult, error) {
	if err := s.ready(); err != nil {
		return ConflictResult{}, err
	}
	logger := serviceLogger(ctx, s.logger, "lesson", "check_conflicts", "teacher_id", query.TeacherID, "date", query.Date)

	vErr := &ValidationError{}
	teacherID := strings.TrimSpace(query.TeacherID)
	if teacherID == "" {
		vErr.add("teacherId", "is required")
	}
	date := parseDateField(vErr, "date", query.Date)
	start, end := parseSlotFields(vErr, query.StartTime, query.EndTime)
	if vErr.HasErrors() {
		logger.Warn("conflict query validation failed", "error_kind", ErrorKind(vErr), "error", vErr)
		return ConflictResult{}, vErr
	}

	existing, err := s.lessons.FindByTeacherAndDate(ctx, teacherID, date)
	if err != nil {
		err = &StorageError{Op: "find lessons", Err: err}
		logFailure(logger, "conflict check failed", err)
		return ConflictResult{}, err
	}

	conflict, err := detectConflict(scheduler.Candidate{
		TeacherID:       teacherID,
		Date:            date,
		Start:           start,
		End:             end,
		ExcludeLessonID: strings.TrimSpace(query.ExcludeLessonID),
	}, existing)
	if err != nil {
		logFailure(logger, "conflict check failed", err)
		return ConflictResult{}, err
	}

	logger.Debug("conflict check completed", "has_conflict", conflict != nil)
	return ConflictResult{HasConflict: conflict != nil, ConflictingLesson: conflict}, nil
}

// CreateRecurringFromClass books one lesson per date from the class template.
// Dates are processed in order, each checked against the state left by the
// previous ones. A failing date does not stop the batch.
func (s *LessonService) CreateRecurringFromClass(ctx context.Context, classID string, dates []scheduler.Date, opts RecurringOptions) ([]OccurrenceResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	classID = strings.TrimSpace(classID)
	logger := serviceLogger(ctx, s.logger, "lesson", "create_recurring", "class_id", classID)

	vErr := &ValidationError{}
	if classID == "" {
		vErr.add("classId", "is required")
	}
	if len(dates) == 0 {
		vErr.add("dates", "at least one date is required")
	}
	for _, date := range dates {
		if date.IsZero() {
			vErr.add("dates", "must be valid dates")
		}
	}
	if vErr.HasErrors() {
		logger.Warn("recurring request validation failed", "error_kind", ErrorKind(vErr), "error", vErr)
		return nil, vErr
	}

	class, err := s.templateClass(ctx, classID)
	if err != nil {
		logFailure(logger, "recurring booking failed", err)
		return nil, err
	}
	return s.bookRecurring(ctx, logger, class, dates, opts), nil
}

// GenerateFromClass expands the weekly template of the class between startsOn
// and endsOn (inclusive) and books every resulting date.
func (s *LessonService) GenerateFromClass(ctx context.Context, classID, startsOn, endsOn string, opts RecurringOptions) ([]OccurrenceResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	classID = strings.TrimSpace(classID)
	logger := serviceLogger(ctx, s.logger, "lesson", "generate_from_class", "class_id", classID, "starts_on", startsOn, "ends_on", endsOn)

	vErr := &ValidationError{}
	if classID == "" {
		vErr.add("classId", "is required")
	}
	from := parseDateField(vErr, "startsOn", startsOn)
	to := parseDateField(vErr, "endsOn", endsOn)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		vErr.add("endsOn", "must not be before startsOn")
	}
	if vErr.HasErrors() {
		logger.Warn("generation request validation failed", "error_kind", ErrorKind(vErr), "error", vErr)
		return nil, vErr
	}

	class, err := s.templateClass(ctx, classID)
	if err != nil {
		logFailure(logger, "lesson generation failed", err)
		return nil, err
	}

	occurrences, err := s.engine.GenerateOccurrences(recurrence.Rule{
		ClassID:   class.ID,
		Frequency: recurrence.FrequencyWeekly,
		Weekdays:  class.Weekdays,
		StartsOn:  from,
		EndsOn:    &to,
	}, recurrence.Template{Start: class.Start, End: class.End}, recurrence.GenerateOptions{})
	if err != nil {
		err = mapRecurrenceError(err)
		logFailure(logger, "lesson generation failed", err)
		return nil, err
	}
	if len(occurrences) == 0 {
		logger.Info("class template produced no dates in range")
		return []OccurrenceResult{}, nil
	}

	return s.bookRecurring(ctx, logger, class, recurrence.Dates(occurrences), opts), nil
}

// GetLesson returns a single lesson.
func (s *LessonService) GetLesson(ctx context.Context, id string) (Lesson, error) {
	if err := s.ready(); err != nil {
		return Lesson{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Lesson{}, ErrNotFound
	}
	lesson, err := s.lessons.GetLesson(ctx, id)
	if err != nil {
		err = mapLessonRepoError("get lesson", "", err)
		logFailure(serviceLogger(ctx, s.logger, "lesson", "get", "lesson_id", id), "lesson lookup failed", err)
		return Lesson{}, err
	}
	return lesson, nil
}

// ListLessons returns lessons matching params ordered by date and start time.
func (s *LessonService) ListLessons(ctx context.Context, params LessonListParams) ([]Lesson, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	logger := serviceLogger(ctx, s.logger, "lesson", "list")

	filter, vErr := parseLessonFilter(params)
	if vErr.HasErrors() {
		logger.Warn("lesson filter validation failed", "error_kind", ErrorKind(vErr), "error", vErr)
		return nil, vErr
	}

	lessons, err := s.lessons.ListLessons(ctx, filter)
	if err != nil {
		err = mapLessonRepoError("list lessons", "", err)
		logFailure(logger, "lesson listing failed", err)
		return nil, err
	}
	return lessons, nil
}

// DeleteLesson removes a lesson permanently. Unknown ids yield ErrNotFound.
func (s *LessonService) DeleteLesson(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	logger := serviceLogger(ctx, s.logger, "lesson", "delete", "lesson_id", id)
	if id == "" {
		return ErrNotFound
	}

	current, err := s.lessons.GetLesson(ctx, id)
	if err != nil {
		err = mapLessonRepoError("get lesson", "", err)
		logFailure(logger, "lesson deletion failed", err)
		return err
	}

	release, err := s.acquire(ctx, bookingKey(current.TeacherID, current.Date))
	if err != nil {
		logFailure(logger, "lesson deletion failed", err)
		return err
	}
	err = ctx.Err()
	if err == nil {
		err = s.lessons.DeleteLesson(ctx, id)
	}
	release()
	if err != nil {
		err = mapLessonRepoError("delete lesson", "", err)
		logFailure(logger, "lesson deletion failed", err)
		return err
	}

	logger.Info("lesson deleted", "teacher_id", current.TeacherID, "date", current.Date.String())
	s.publish(ctx, logger, events.TypeLessonDeleted, current)
	return nil
}

func (s *LessonService) ready() error {
	if s == nil {
		return fmt.Errorf("LessonService is nil")
	}
	if s.lessons == nil {
		return fmt.Errorf("LessonService has no lesson repository")
	}
	return nil
}

// book writes a new lesson while holding its booking lock.
func (s *LessonService) book(ctx context.Context, lesson Lesson) (Lesson, error) {
	release, err := s.acquire(ctx, bookingKey(lesson.TeacherID, lesson.Date))
	if err != nil {
		return Lesson{}, err
	}
	defer release()

	if lesson.Status.Occupies() {
		if err := s.ensureSlotFree(ctx, lesson, ""); err != nil {
			return Lesson{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Lesson{}, err
	}
	if err := s.lessons.CreateLesson(ctx, lesson); err != nil {
		return Lesson{}, s.mapWriteError(ctx, "create lesson", lesson, "", err)
	}
	return lesson, nil
}

func (s *LessonService) bookRecurring(ctx context.Context, logger *slog.Logger, class Class, dates []scheduler.Date, opts RecurringOptions) []OccurrenceResult {
	firstBookDay := opts.FirstBookDay
	if firstBookDay <= 0 {
		firstBookDay = 1
	}

	results := make([]OccurrenceResult, 0, len(dates))
	created := 0
	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			for _, rest := range dates[i:] {
				results = append(results, OccurrenceResult{Date: rest, Err: err})
			}
			logger.Warn("recurring booking aborted", "error", err, "remaining", len(dates)-i)
			break
		}

		createdAt := s.now()
		lesson, err := s.book(ctx, Lesson{
			ID:        s.idGenerator(),
			ClassID:   class.ID,
			TeacherID: class.TeacherID,
			Title:     class.Title,
			BookDay:   firstBookDay + i,
			Date:      date,
			Start:     class.Start,
			End:       class.End,
			Room:      cloneString(class.Room),
			Status:    LessonStatusScheduled,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})
		if err != nil {
			logger.Warn("occurrence skipped", "date", date.String(), "error_kind", ErrorKind(err), "error", err)
			results = append(results, OccurrenceResult{Date: date, Err: err})
			continue
		}

		created++
		s.publish(ctx, logger, events.TypeLessonCreated, lesson)
		results = append(results, OccurrenceResult{Date: date, Lesson: &lesson})
	}

	logger.Info("recurring booking processed", "requested", len(dates), "created", created)
	return results
}

// templateClass loads a class whose weekly template can seed lessons.
func (s *LessonService) templateClass(ctx context.Context, classID string) (Class, error) {
	class, err := s.lookupClass(ctx, classID)
	if err != nil {
		return Class{}, err
	}
	if class.End <= class.Start {
		vErr := &ValidationError{}
		vErr.add("classId", "class has no valid time template")
		return Class{}, vErr
	}
	return class, nil
}

func (s *LessonService) lookupClass(ctx context.Context, classID string) (Class, error) {
	if s.classes == nil {
		return Class{}, fmt.Errorf("%w: %s", ErrClassNotFound, classID)
	}
	class, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		if isNotFoundError(err) {
			return Class{}, fmt.Errorf("%w: %s", ErrClassNotFound, classID)
		}
		return Class{}, &StorageError{Op: "get class", Err: err}
	}
	return class, nil
}

// patchedLesson applies patch to current and re-resolves the teacher when the
// class changes.
func (s *LessonService) patchedLesson(ctx context.Context, current Lesson, patch LessonPatch) (Lesson, error) {
	updated, vErr := applyLessonPatch(current, patch)
	if vErr.HasErrors() {
		return Lesson{}, vErr
	}
	if updated.ClassID != current.ClassID {
		class, err := s.lookupClass(ctx, updated.ClassID)
		if err != nil {
			return Lesson{}, err
		}
		updated.TeacherID = class.TeacherID
	}
	return updated, nil
}

func (s *LessonService) acquire(ctx context.Context, keys ...string) (lock.Release, error) {
	waitCtx := ctx
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}

	release, err := lock.AcquireAll(waitCtx, s.locker, keys...)
	if err == nil {
		return release, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, lock.ErrNotAcquired) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", ErrBookingBusy, err)
	}
	return nil, &StorageError{Op: "acquire booking lock", Err: err}
}

// ensureSlotFree loads the teacher's lessons for the day and rejects lesson if
// it overlaps one of them.
func (s *LessonService) ensureSlotFree(ctx context.Context, lesson Lesson, excludeID string) error {
	existing, err := s.lessons.FindByTeacherAndDate(ctx, lesson.TeacherID, lesson.Date)
	if err != nil {
		return &StorageError{Op: "find lessons", Err: err}
	}
	conflict, err := detectConflict(candidateFor(lesson, excludeID), existing)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &ConflictError{Lesson: *conflict}
	}
	return nil
}

// mapWriteError translates a failed write. A storage level overlap means a
// writer outside this process won the slot; the winner is looked up so the
// caller still learns which lesson is in the way.
func (s *LessonService) mapWriteError(ctx context.Context, op string, lesson Lesson, excludeID string, err error) error {
	if !errors.Is(err, persistence.ErrOverlap) {
		return mapLessonRepoError(op, lesson.ClassID, err)
	}
	existing, findErr := s.lessons.FindByTeacherAndDate(ctx, lesson.TeacherID, lesson.Date)
	if findErr != nil {
		serviceLogger(ctx, s.logger, "lesson", op, "lesson_id", lesson.ID, "teacher_id", lesson.TeacherID, "date", lesson.Date.String()).
			Warn("failed to load conflicting lesson after storage overlap", "error", findErr)
		return &ConflictError{}
	}
	conflict, _ := detectConflict(candidateFor(lesson, excludeID), existing)
	if conflict == nil {
		return &ConflictError{}
	}
	return &ConflictError{Lesson: *conflict}
}

func (s *LessonService) publish(ctx context.Context, logger *slog.Logger, eventType string, lesson Lesson) {
	if s.publisher == nil {
		return
	}
	event := events.LessonEvent{
		Type:       eventType,
		LessonID:   lesson.ID,
		ClassID:    lesson.ClassID,
		TeacherID:  lesson.TeacherID,
		Date:       lesson.Date.String(),
		StartTime:  lesson.Start.String(),
		EndTime:    lesson.End.String(),
		Status:     string(lesson.Status),
		OccurredAt: s.now().UTC(),
	}
	// The write is committed; a cancelled request must not drop the event,
	// but a stalled broker must not hold the caller either.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishWait)
	defer cancel()
	if err := s.publisher.Publish(publishCtx, event); err != nil {
		logger.Warn("failed to publish lesson event", "event_type", eventType, "lesson_id", lesson.ID, "error", err)
	}
}

// detectConflict runs the checker over existing and returns the conflicting
// lesson, if any.
func detectConflict(candidate scheduler.Candidate, existing []Lesson) (*Lesson, error) {
	booked := make([]scheduler.Lesson, 0, len(existing))
	for _, lesson := range existing {
		booked = append(booked, scheduler.Lesson{
			ID:        lesson.ID,
			TeacherID: lesson.TeacherID,
			Date:      lesson.Date,
			Start:     lesson.Start,
			End:       lesson.End,
			Cancelled: !lesson.Status.Occupies(),
		})
	}

	result, err := scheduler.HasConflict(candidate, booked)
	if err != nil {
		return nil, &StorageError{Op: "check conflicts", Err: err}
	}
	if !result.HasConflict {
		return nil, nil
	}
	for i := range existing {
		if existing[i].ID == result.Conflicting.ID {
			match := existing[i]
			return &match, nil
		}
	}
	return nil, nil
}

func candidateFor(lesson Lesson, excludeID string) scheduler.Candidate {
	return scheduler.Candidate{
		TeacherID:       lesson.TeacherID,
		Date:            lesson.Date,
		Start:           lesson.Start,
		End:             lesson.End,
		ExcludeLessonID: excludeID,
	}
}

// requiresConflictCheck reports whether an edit can introduce a new overlap.
func requiresConflictCheck(current, updated Lesson) bool {
	if !updated.Status.Occupies() {
		return false
	}
	if !current.Status.Occupies() {
		return true
	}
	return current.TeacherID != updated.TeacherID ||
		current.Date != updated.Date ||
		current.Start != updated.Start ||
		current.End != updated.End
}

func bookingKey(teacherID string, date scheduler.Date) string {
	return teacherID + "|" + date.String()
}

func lessonKeys(current, updated Lesson) []string {
	first := bookingKey(current.TeacherID, current.Date)
	second := bookingKey(updated.TeacherID, updated.Date)
	if first == second {
		return []string{first}
	}
	if second < first {
		first, second = second, first
	}
	return []string{first, second}
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func logFailure(logger *slog.Logger, msg string, err error) {
	kind := ErrorKind(err)
	switch kind {
	case "storage", "unexpected":
		logger.Error(msg, "error_kind", kind, "error", err)
	default:
		logger.Warn(msg, "error_kind", kind, "error", err)
	}
}

func mapLessonRepoError(op, classID string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %s", ErrClassNotFound, classID)
	case errors.Is(err, persistence.ErrOverlap):
		return &ConflictError{}
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("lesson", "violates storage constraints")
		return vErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func mapRecurrenceError(err error) error {
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrTooManyOccurrences):
		vErr.add("endsOn", "range produces too many lessons")
	case errors.Is(err, recurrence.ErrInvalidDuration):
		vErr.add("classId", "class has no valid time template")
	case errors.Is(err, recurrence.ErrInvalidWindow):
		vErr.add("endsOn", "is required")
	default:
		return err
	}
	return vErr
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
