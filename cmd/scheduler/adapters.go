package main

import (
	"context"
	"time"

	"github.com/example/lesson-scheduler/internal/application"
	"github.com/example/lesson-scheduler/internal/persistence"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

type lessonRepositoryAdapter struct {
	repo persistence.LessonRepository
}

func newLessonRepositoryAdapter(repo persistence.LessonRepository) *lessonRepositoryAdapter {
	return &lessonRepositoryAdapter{repo: repo}
}

func (a *lessonRepositoryAdapter) FindByTeacherAndDate(ctx context.Context, teacherID string, date scheduler.Date) ([]application.Lesson, error) {
	models, err := a.repo.FindByTeacherAndDate(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	return toApplicationLessons(models), nil
}

func (a *lessonRepositoryAdapter) CreateLesson(ctx context.Context, lesson application.Lesson) error {
	return a.repo.CreateLesson(ctx, toPersistenceLesson(lesson))
}

func (a *lessonRepositoryAdapter) UpdateLesson(ctx context.Context, lesson application.Lesson) error {
	return a.repo.UpdateLesson(ctx, toPersistenceLesson(lesson))
}

func (a *lessonRepositoryAdapter) GetLesson(ctx context.Context, id string) (application.Lesson, error) {
	stored, err := a.repo.GetLesson(ctx, id)
	if err != nil {
		return application.Lesson{}, err
	}
	return toApplicationLesson(stored), nil
}

func (a *lessonRepositoryAdapter) ListLessons(ctx context.Context, filter application.LessonFilter) ([]application.Lesson, error) {
	models, err := a.repo.ListLessons(ctx, persistence.LessonFilter{
		TeacherID: filter.TeacherID,
		ClassID:   filter.ClassID,
		From:      cloneDate(filter.From),
		To:        cloneDate(filter.To),
		Status:    string(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	return toApplicationLessons(models), nil
}

func (a *lessonRepositoryAdapter) DeleteLesson(ctx context.Context, id string) error {
	return a.repo.DeleteLesson(ctx, id)
}

type classRepositoryAdapter struct {
	repo persistence.ClassRepository
}

func newClassRepositoryAdapter(repo persistence.ClassRepository) *classRepositoryAdapter {
	return &classRepositoryAdapter{repo: repo}
}

func (a *classRepositoryAdapter) CreateClass(ctx context.Context, class application.Class) error {
	return a.repo.CreateClass(ctx, toPersistenceClass(class))
}

func (a *classRepositoryAdapter) GetClass(ctx context.Context, id string) (application.Class, error) {
	stored, err := a.repo.GetClass(ctx, id)
	if err != nil {
		return application.Class{}, err
	}
	return toApplicationClass(stored), nil
}

func (a *classRepositoryAdapter) ListClasses(ctx context.Context) ([]application.Class, error) {
	models, err := a.repo.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	classes := make([]application.Class, 0, len(models))
	for _, model := range models {
		classes = append(classes, toApplicationClass(model))
	}
	return classes, nil
}

func toApplicationLessons(models []persistence.Lesson) []application.Lesson {
	if len(models) == 0 {
		return nil
	}
	lessons := make([]application.Lesson, 0, len(models))
	for _, model := range models {
		lessons = append(lessons, toApplicationLesson(model))
	}
	return lessons
}

func toApplicationLesson(model persistence.Lesson) application.Lesson {
	return application.Lesson{
		ID:        model.ID,
		ClassID:   model.ClassID,
		TeacherID: model.TeacherID,
		Title:     model.Title,
		BookDay:   model.BookDay,
		Date:      model.Date,
		Start:     model.Start,
		End:       model.End,
		Room:      cloneString(model.Room),
		Notes:     cloneString(model.Notes),
		Status:    application.LessonStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceLesson(lesson application.Lesson) persistence.Lesson {
	return persistence.Lesson{
		ID:        lesson.ID,
		ClassID:   lesson.ClassID,
		TeacherID: lesson.TeacherID,
		Title:     lesson.Title,
		BookDay:   lesson.BookDay,
		Date:      lesson.Date,
		Start:     lesson.Start,
		End:       lesson.End,
		Room:      cloneString(lesson.Room),
		Notes:     cloneString(lesson.Notes),
		Status:    string(lesson.Status),
		CreatedAt: lesson.CreatedAt,
		UpdatedAt: lesson.UpdatedAt,
	}
}

func toApplicationClass(model persistence.Class) application.Class {
	return application.Class{
		ID:        model.ID,
		TeacherID: model.TeacherID,
		Title:     model.Title,
		BookID:    cloneString(model.BookID),
		UnitID:    cloneString(model.UnitID),
		Weekdays:  cloneWeekdays(model.Weekdays),
		Start:     model.Start,
		End:       model.End,
		Room:      cloneString(model.Room),
		Capacity:  model.Capacity,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceClass(class application.Class) persistence.Class {
	return persistence.Class{
		ID:        class.ID,
		TeacherID: class.TeacherID,
		Title:     class.Title,
		BookID:    cloneString(class.BookID),
		UnitID:    cloneString(class.UnitID),
		Weekdays:  cloneWeekdays(class.Weekdays),
		Start:     class.Start,
		End:       class.End,
		Room:      cloneString(class.Room),
		Capacity:  class.Capacity,
		CreatedAt: class.CreatedAt,
		UpdatedAt: class.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneDate(value *scheduler.Date) *scheduler.Date {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneWeekdays(days []time.Weekday) []time.Weekday {
	if days == nil {
		return nil
	}
	return append([]time.Weekday(nil), days...)
}
