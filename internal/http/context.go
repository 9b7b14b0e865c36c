package http

import (
	"context"

	"github.com/example/lesson-scheduler/internal/application"
)

type contextKey string

const (
	roleContextKey     contextKey = "role"
	lessonIDContextKey contextKey = "lesson_id"
	classIDContextKey  contextKey = "class_id"
)

// ContextWithRole returns a derived context containing the caller's role.
func ContextWithRole(ctx context.Context, role application.Role) context.Context {
	return context.WithValue(ctx, roleContextKey, role)
}

// RoleFromContext extracts the caller's role if authentication is enabled.
func RoleFromContext(ctx context.Context) (application.Role, bool) {
	role, ok := ctx.Value(roleContextKey).(application.Role)
	return role, ok
}

// ContextWithLessonID injects the lesson identifier resolved from the request path.
func ContextWithLessonID(ctx context.Context, lessonID string) context.Context {
	return context.WithValue(ctx, lessonIDContextKey, lessonID)
}

// LessonIDFromContext extracts a lesson identifier previously associated with the context.
func LessonIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(lessonIDContextKey).(string)
	return id, ok
}

// ContextWithClassID injects the class identifier resolved from the request path.
func ContextWithClassID(ctx context.Context, classID string) context.Context {
	return context.WithValue(ctx, classIDContextKey, classID)
}

// ClassIDFromContext extracts a class identifier previously associated with the context.
func ClassIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(classIDContextKey).(string)
	return id, ok
}
