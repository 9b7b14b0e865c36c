package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to a structured logger. It is the fallback when
// no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a LogPublisher. A nil logger uses slog.Default.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "events")}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(ctx context.Context, event LessonEvent) error {
	p.logger.InfoContext(ctx, "lesson event",
		"type", event.Type,
		"lesson_id", event.LessonID,
		"class_id", event.ClassID,
		"teacher_id", event.TeacherID,
		"date", event.Date,
		"start_time", event.StartTime,
		"end_time", event.EndTime,
		"status", event.Status,
	)
	return nil
}
