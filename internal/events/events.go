// Package events carries lesson change notifications to other systems.
package events

import (
	"context"
	"time"
)

// Event types published after a successful write.
const (
	TypeLessonCreated = "lesson.created"
	TypeLessonUpdated = "lesson.updated"
	TypeLessonDeleted = "lesson.deleted"
)

// LessonEvent is the JSON payload describing a lesson change.
type LessonEvent struct {
	Type       string    `json:"type"`
	LessonID   string    `json:"lessonId"`
	ClassID    string    `json:"classId"`
	TeacherID  string    `json:"teacherId"`
	Date       string    `json:"date"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers lesson events.
type Publisher interface {
	Publish(ctx context.Context, event LessonEvent) error
}
