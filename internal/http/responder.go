package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lesson-scheduler/internal/application"
)

var (
	errBadRequestBody  = errors.New("request body must be valid JSON")
	errInvalidLessonID = errors.New("lesson id is required")
	errInvalidClassID  = errors.New("class id is required")
	errMissingToken    = errors.New("a bearer API token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, payload := errorPayload(err)
	logger := r.loggerFor(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "status", status, "error_kind", application.ErrorKind(err), "error", err)
	} else {
		logger.InfoContext(ctx, "request rejected", "status", status, "error_kind", application.ErrorKind(err), "error", err)
	}
	r.writeJSON(ctx, w, status, payload)
}

// errorPayload maps a service error to its HTTP status and body.
func errorPayload(err error) (int, errorResponse) {
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the request contains invalid fields",
			Errors:    vErr.FieldErrors,
		}
	}

	var conflict *application.ConflictError
	if errors.As(err, &conflict) {
		payload := errorResponse{
			ErrorCode: "LESSON_CONFLICT",
			Message:   "the teacher already has a lesson in this time slot",
		}
		if conflict.Lesson.ID != "" {
			dto := toLessonDTO(conflict.Lesson)
			payload.ConflictingLesson = &dto
		}
		return http.StatusConflict, payload
	}

	var storageErr *application.StorageError
	if errors.As(err, &storageErr) {
		return http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"}
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "you are not allowed to perform this operation",
		}
	case errors.Is(err, application.ErrClassNotFound):
		return http.StatusNotFound, errorResponse{
			ErrorCode: "CLASS_NOT_FOUND",
			Message:   classNotFoundMessage(err),
		}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: "the requested resource was not found"}
	case errors.Is(err, application.ErrBookingBusy):
		return http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "BOOKING_BUSY",
			Message:   "another booking for this teacher is in progress, retry later",
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorResponse{Message: "the request was cancelled before completion"}
	}

	return http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"}
}

// classNotFoundMessage names the class carried by a wrapped ErrClassNotFound.
func classNotFoundMessage(err error) string {
	prefix := application.ErrClassNotFound.Error() + ": "
	if id, ok := strings.CutPrefix(err.Error(), prefix); ok && id != "" {
		return "class " + id + " was not found"
	}
	return "the referenced class was not found"
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode         string            `json:"errorCode,omitempty"`
	Message           string            `json:"message"`
	Errors            map[string]string `json:"errors,omitempty"`
	ConflictingLesson *lessonDTO        `json:"conflictingLesson,omitempty"`
}
