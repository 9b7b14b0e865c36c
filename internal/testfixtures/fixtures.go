package testfixtures

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/lesson-scheduler/internal/application"
	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

var (
	classCounter  uint64
	lessonCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceDate is the Monday lesson fixtures are booked on by default.
var ReferenceDate = scheduler.NewDate(2024, time.March, 11)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Class fixtures -----------------------------

// ClassFixture represents a deterministic class record that can be
// materialised for application or persistence tests.
type ClassFixture struct {
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

// ClassOption configures the generated class fixture.
type ClassOption func(*ClassFixture)

// NewClassFixture returns a Monday/Wednesday 09:00-10:00 class fixture with
// optional overrides.
func NewClassFixture(opts ...ClassOption) ClassFixture {
	idx := atomic.AddUint64(&classCounter, 1)
	id := fmt.Sprintf("class-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ClassFixture{
		ID:        id,
		TeacherID: "teacher-001",
		Title:     fmt.Sprintf("Class %03d", idx),
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
		Start:     scheduler.NewTimeOfDay(9, 0),
		End:       scheduler.NewTimeOfDay(10, 0),
		Capacity:  int(4 + idx%4),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithClassID overrides the generated class ID.
func WithClassID(id string) ClassOption {
	return func(f *ClassFixture) {
		f.ID = id
	}
}

// WithClassTeacher assigns the class to teacherID.
func WithClassTeacher(teacherID string) ClassOption {
	return func(f *ClassFixture) {
		f.TeacherID = teacherID
	}
}

// WithClassTitle overrides the generated title.
func WithClassTitle(title string) ClassOption {
	return func(f *ClassFixture) {
		f.Title = title
	}
}

// WithClassWeekdays replaces the template weekdays.
func WithClassWeekdays(days ...time.Weekday) ClassOption {
	return func(f *ClassFixture) {
		f.Weekdays = append([]time.Weekday(nil), days...)
	}
}

// WithClassSlot replaces the template start and end times.
func WithClassSlot(start, end scheduler.TimeOfDay) ClassOption {
	return func(f *ClassFixture) {
		f.Start = start
		f.End = end
	}
}

// WithClassRoom sets the default room.
func WithClassRoom(room string) ClassOption {
	return func(f *ClassFixture) {
		f.Room = &room
	}
}

// WithClassBook sets the textbook and unit identifiers.
func WithClassBook(bookID, unitID string) ClassOption {
	return func(f *ClassFixture) {
		f.BookID = &bookID
		f.UnitID = &unitID
	}
}

// Application returns the fixture as an application.Class value.
func (f ClassFixture) Application() application.Class {
	return application.Class{
		ID:        f.ID,
		TeacherID: f.TeacherID,
		Title:     f.Title,
		BookID:    copyStringPtr(f.BookID),
		UnitID:    copyStringPtr(f.UnitID),
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		Start:     f.Start,
		End:       f.End,
		Room:      copyStringPtr(f.Room),
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Class value.
func (f ClassFixture) Persistence() persistence.Class {
	return persistence.Class{
		ID:        f.ID,
		TeacherID: f.TeacherID,
		Title:     f.Title,
		BookID:    copyStringPtr(f.BookID),
		UnitID:    copyStringPtr(f.UnitID),
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		Start:     f.Start,
		End:       f.End,
		Room:      copyStringPtr(f.Room),
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ClassInput.
func (f ClassFixture) Input() application.ClassInput {
	weekdays := make([]string, 0, len(f.Weekdays))
	for _, day := range f.Weekdays {
		weekdays = append(weekdays, strings.ToLower(day.String()))
	}
	return application.ClassInput{
		TeacherID: f.TeacherID,
		Title:     f.Title,
		BookID:    copyStringPtr(f.BookID),
		UnitID:    copyStringPtr(f.UnitID),
		Weekdays:  weekdays,
		StartTime: f.Start.String(),
		EndTime:   f.End.String(),
		Room:      copyStringPtr(f.Room),
		Capacity:  f.Capacity,
	}
}

// ----------------------------- Lesson fixtures -----------------------------

// LessonFixture represents a deterministic lesson record.
type LessonFixture struct {
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
	Status    application.LessonStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LessonOption configures the generated lesson fixture.
type LessonOption func(*LessonFixture)

// NewLessonFixture returns a scheduled lesson of class on ReferenceDate using
// the class template slot, with optional overrides.
func NewLessonFixture(class ClassFixture, opts ...LessonOption) LessonFixture {
	idx := atomic.AddUint64(&lessonCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := LessonFixture{
		ID:        fmt.Sprintf("lesson-%03d", idx),
		ClassID:   class.ID,
		TeacherID: class.TeacherID,
		Title:     fmt.Sprintf("%s lesson %d", class.Title, idx),
		BookDay:   1,
		Date:      ReferenceDate,
		Start:     class.Start,
		End:       class.End,
		Room:      copyStringPtr(class.Room),
		Status:    application.LessonStatusScheduled,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithLessonID overrides the generated lesson ID.
func WithLessonID(id string) LessonOption {
	return func(f *LessonFixture) {
		f.ID = id
	}
}

// WithLessonDate moves the lesson to date.
func WithLessonDate(date scheduler.Date) LessonOption {
	return func(f *LessonFixture) {
		f.Date = date
	}
}

// WithLessonSlot replaces the start and end times.
func WithLessonSlot(start, end scheduler.TimeOfDay) LessonOption {
	return func(f *LessonFixture) {
		f.Start = start
		f.End = end
	}
}

// WithLessonStatus sets the lifecycle status.
func WithLessonStatus(status application.LessonStatus) LessonOption {
	return func(f *LessonFixture) {
		f.Status = status
	}
}

// WithLessonBookDay sets the textbook day.
func WithLessonBookDay(day int) LessonOption {
	return func(f *LessonFixture) {
		f.BookDay = day
	}
}

// WithLessonNotes sets free-form notes.
func WithLessonNotes(notes string) LessonOption {
	return func(f *LessonFixture) {
		f.Notes = &notes
	}
}

// Application returns the fixture as an application.Lesson value.
func (f LessonFixture) Application() application.Lesson {
	return application.Lesson{
		ID:        f.ID,
		ClassID:   f.ClassID,
		TeacherID: f.TeacherID,
		Title:     f.Title,
		BookDay:   f.BookDay,
		Date:      f.Date,
		Start:     f.Start,
		End:       f.End,
		Room:      copyStringPtr(f.Room),
		Notes:     copyStringPtr(f.Notes),
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Lesson value.
func (f LessonFixture) Persistence() persistence.Lesson {
	return persistence.Lesson{
		ID:        f.ID,
		ClassID:   f.ClassID,
		TeacherID: f.TeacherID,
		Title:     f.Title,
		BookDay:   f.BookDay,
		Date:      f.Date,
		Start:     f.Start,
		End:       f.End,
		Room:      copyStringPtr(f.Room),
		Notes:     copyStringPtr(f.Notes),
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.LessonInput.
func (f LessonFixture) Input() application.LessonInput {
	return application.LessonInput{
		ClassID:   f.ClassID,
		Title:     f.Title,
		BookDay:   f.BookDay,
		Date:      f.Date.String(),
		StartTime: f.Start.String(),
		EndTime:   f.End.String(),
		Room:      copyStringPtr(f.Room),
		Notes:     copyStringPtr(f.Notes),
		Status:    string(f.Status),
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
