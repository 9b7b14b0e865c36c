package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/lesson-scheduler/internal/application"
)

type lessonService interface {
	CreateLesson(ctx context.Context, input application.LessonInput) (application.Lesson, error)
	UpdateLesson(ctx context.Context, id string, patch application.LessonPatch) (application.Lesson, error)
	CheckConflicts(ctx context.Context, query application.ConflictQuery) (application.ConflictResult, error)
	GetLesson(ctx context.Context, id string) (application.Lesson, error)
	ListLessons(ctx context.Context, params application.LessonListParams) ([]application.Lesson, error)
	DeleteLesson(ctx context.Context, id string) error
}

type LessonHandler struct {
	service   lessonService
	validator *requestValidator
	responder responder
	logger    *slog.Logger
}

func NewLessonHandler(service lessonService, logger *slog.Logger) *LessonHandler {
	return &LessonHandler{
		service:   service,
		validator: defaultValidator(),
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req lessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	lesson, err := h.service.CreateLesson(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "lesson", "create", "lesson_id", lesson.ID).Debug("lesson booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toLessonDTO(lesson))
}

func (h *LessonHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonID, ok := LessonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(lessonID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLessonID)
		return
	}

	var req lessonPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	lesson, err := h.service.UpdateLesson(r.Context(), lessonID, req.toPatch())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLessonDTO(lesson))
}

func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonID, ok := LessonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(lessonID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLessonID)
		return
	}

	lesson, err := h.service.GetLesson(r.Context(), lessonID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLessonDTO(lesson))
}

func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonID, ok := LessonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(lessonID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLessonID)
		return
	}

	if err := h.service.DeleteLesson(r.Context(), lessonID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	lessons, err := h.service.ListLessons(r.Context(), application.LessonListParams{
		TeacherID: query.Get("teacherId"),
		ClassID:   query.Get("classId"),
		From:      query.Get("from"),
		To:        query.Get("to"),
		Status:    query.Get("status"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLessonsResponse{Lessons: toLessonDTOs(lessons)})
}

func (h *LessonHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req conflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.CheckConflicts(r.Context(), application.ConflictQuery{
		TeacherID:       req.TeacherID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		ExcludeLessonID: req.ExcludeLessonID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := conflictCheckResponse{HasConflict: result.HasConflict}
	if result.ConflictingLesson != nil {
		dto := toLessonDTO(*result.ConflictingLesson)
		response.ConflictingLesson = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

type lessonRequest struct {
	ClassID   string  `json:"classId" validate:"required,notblank"`
	Title     string  `json:"title" validate:"required,notblank,max=200"`
	BookDay   int     `json:"bookDay" validate:"min=0"`
	Date      string  `json:"date" validate:"required,civildate"`
	StartTime string  `json:"startTime" validate:"required,hhmm"`
	EndTime   string  `json:"endTime" validate:"required,hhmm"`
	Room      *string `json:"room,omitempty" validate:"omitempty,max=100"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status    string  `json:"status,omitempty" validate:"omitempty,lesson_status"`
}

func (r lessonRequest) toInput() application.LessonInput {
	return application.LessonInput{
		ClassID:   r.ClassID,
		Title:     r.Title,
		BookDay:   r.BookDay,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
		Notes:     r.Notes,
		Status:    r.Status,
	}
}

type lessonPatchRequest struct {
	ClassID   *string `json:"classId,omitempty" validate:"omitempty,notblank"`
	Title     *string `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	BookDay   *int    `json:"bookDay,omitempty" validate:"omitempty,min=0"`
	Date      *string `json:"date,omitempty" validate:"omitempty,civildate"`
	StartTime *string `json:"startTime,omitempty" validate:"omitempty,hhmm"`
	EndTime   *string `json:"endTime,omitempty" validate:"omitempty,hhmm"`
	Room      *string `json:"room,omitempty" validate:"omitempty,max=100"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status    *string `json:"status,omitempty" validate:"omitempty,lesson_status"`
}

func (r lessonPatchRequest) toPatch() application.LessonPatch {
	return application.LessonPatch{
		ClassID:   r.ClassID,
		Title:     r.Title,
		BookDay:   r.BookDay,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
		Notes:     r.Notes,
		Status:    r.Status,
	}
}

type conflictCheckRequest struct {
	TeacherID       string `json:"teacherId" validate:"required,notblank"`
	Date            string `json:"date" validate:"required,civildate"`
	StartTime       string `json:"startTime" validate:"required,hhmm"`
	EndTime         string `json:"endTime" validate:"required,hhmm"`
	ExcludeLessonID string `json:"excludeLessonId,omitempty"`
}

type conflictCheckResponse struct {
	HasConflict       bool       `json:"hasConflict"`
	ConflictingLesson *lessonDTO `json:"conflictingLesson,omitempty"`
}

type lessonDTO struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"classId"`
	TeacherID string    `json:"teacherId"`
	Title     string    `json:"title"`
	BookDay   int       `json:"bookDay"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Room      *string   `json:"room,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listLessonsResponse struct {
	Lessons []lessonDTO `json:"lessons"`
}

func toLessonDTO(lesson application.Lesson) lessonDTO {
	return lessonDTO{
		ID:        lesson.ID,
		ClassID:   lesson.ClassID,
		TeacherID: lesson.TeacherID,
		Title:     lesson.Title,
		BookDay:   lesson.BookDay,
		Date:      lesson.Date.String(),
		StartTime: lesson.Start.String(),
		EndTime:   lesson.End.String(),
		Room:      lesson.Room,
		Notes:     lesson.Notes,
		Status:    string(lesson.Status),
		CreatedAt: lesson.CreatedAt,
		UpdatedAt: lesson.UpdatedAt,
	}
}

func toLessonDTOs(lessons []application.Lesson) []lessonDTO {
	out := make([]lessonDTO, 0, len(lessons))
	for _, lesson := range lessons {
		out = append(out, toLessonDTO(lesson))
	}
	return out
}
