package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/lesson-scheduler/internal/application"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

type classService interface {
	CreateClass(ctx context.Context, input application.ClassInput) (application.Class, error)
	GetClass(ctx context.Context, id string) (application.Class, error)
	ListClasses(ctx context.Context) ([]application.Class, error)
}

type recurringLessonService interface {
	CreateRecurringFromClass(ctx context.Context, classID string, dates []scheduler.Date, opts application.RecurringOptions) ([]application.OccurrenceResult, error)
	GenerateFromClass(ctx context.Context, classID, startsOn, endsOn string, opts application.RecurringOptions) ([]application.OccurrenceResult, error)
}

type ClassHandler struct {
	classes   classService
	lessons   recurringLessonService
	validator *requestValidator
	responder responder
	logger    *slog.Logger
}

func NewClassHandler(classes classService, lessons recurringLessonService, logger *slog.Logger) *ClassHandler {
	return &ClassHandler{
		classes:   classes,
		lessons:   lessons,
		validator: defaultValidator(),
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

func (h *ClassHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.classes == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req classRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	class, err := h.classes.CreateClass(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toClassDTO(class))
}

func (h *ClassHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.classes == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	classID, ok := ClassIDFromContext(r.Context())
	if !ok || strings.TrimSpace(classID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidClassID)
		return
	}

	class, err := h.classes.GetClass(r.Context(), classID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toClassDTO(class))
}

func (h *ClassHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.classes == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	classes, err := h.classes.ListClasses(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]classDTO, 0, len(classes))
	for _, class := range classes {
		out = append(out, toClassDTO(class))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listClassesResponse{Classes: out})
}

// CreateLessons books lessons from the class template, either for explicit
// dates or for every template weekday between startsOn and endsOn.
func (h *ClassHandler) CreateLessons(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.lessons == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	classID, ok := ClassIDFromContext(r.Context())
	if !ok || strings.TrimSpace(classID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidClassID)
		return
	}

	var req recurringLessonsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	opts := application.RecurringOptions{FirstBookDay: req.FirstBookDay}
	var (
		results []application.OccurrenceResult
		err     error
	)
	if len(req.Dates) > 0 {
		dates := make([]scheduler.Date, 0, len(req.Dates))
		for _, value := range req.Dates {
			// Already checked by the civildate tag.
			date, _ := scheduler.ParseDate(value)
			dates = append(dates, date)
		}
		results, err = h.lessons.CreateRecurringFromClass(r.Context(), classID, dates, opts)
	} else {
		results, err = h.lessons.GenerateFromClass(r.Context(), classID, req.StartsOn, req.EndsOn, opts)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := recurringLessonsResponse{Results: make([]occurrenceResultDTO, 0, len(results))}
	created := 0
	for _, result := range results {
		dto := occurrenceResultDTO{Date: result.Date.String()}
		if result.Lesson != nil {
			lesson := toLessonDTO(*result.Lesson)
			dto.Lesson = &lesson
			created++
		}
		if result.Err != nil {
			_, payload := errorPayload(result.Err)
			dto.Error = &payload
		}
		response.Results = append(response.Results, dto)
	}

	handlerLogger(r.Context(), h.logger, "class", "create_lessons", "class_id", classID).
		Info("recurring lessons processed", "requested", len(results), "created", created)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

type classRequest struct {
	TeacherID string   `json:"teacherId" validate:"required,notblank"`
	Title     string   `json:"title" validate:"required,notblank,max=200"`
	BookID    *string  `json:"bookId,omitempty"`
	UnitID    *string  `json:"unitId,omitempty"`
	Weekdays  []string `json:"weekdays" validate:"dive,notblank"`
	StartTime string   `json:"startTime" validate:"required,hhmm"`
	EndTime   string   `json:"endTime" validate:"required,hhmm"`
	Room      *string  `json:"room,omitempty" validate:"omitempty,max=100"`
	Capacity  int      `json:"capacity" validate:"min=0"`
}

func (r classRequest) toInput() application.ClassInput {
	return application.ClassInput{
		TeacherID: r.TeacherID,
		Title:     r.Title,
		BookID:    r.BookID,
		UnitID:    r.UnitID,
		Weekdays:  r.Weekdays,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
		Capacity:  r.Capacity,
	}
}

type recurringLessonsRequest struct {
	Dates        []string `json:"dates,omitempty" validate:"required_without=StartsOn,omitempty,max=366,dive,civildate"`
	StartsOn     string   `json:"startsOn,omitempty" validate:"required_without=Dates,omitempty,civildate"`
	EndsOn       string   `json:"endsOn,omitempty" validate:"required_with=StartsOn,omitempty,civildate"`
	FirstBookDay int      `json:"firstBookDay,omitempty" validate:"min=0"`
}

type recurringLessonsResponse struct {
	Results []occurrenceResultDTO `json:"results"`
}

type occurrenceResultDTO struct {
	Date   string         `json:"date"`
	Lesson *lessonDTO     `json:"lesson,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

type classDTO struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacherId"`
	Title     string    `json:"title"`
	BookID    *string   `json:"bookId,omitempty"`
	UnitID    *string   `json:"unitId,omitempty"`
	Weekdays  []string  `json:"weekdays"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Room      *string   `json:"room,omitempty"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listClassesResponse struct {
	Classes []classDTO `json:"classes"`
}

func toClassDTO(class application.Class) classDTO {
	weekdays := make([]string, 0, len(class.Weekdays))
	for _, day := range class.Weekdays {
		weekdays = append(weekdays, strings.ToLower(day.String()))
	}
	return classDTO{
		ID:        class.ID,
		TeacherID: class.TeacherID,
		Title:     class.Title,
		BookID:    class.BookID,
		UnitID:    class.UnitID,
		Weekdays:  weekdays,
		StartTime: class.Start.String(),
		EndTime:   class.End.String(),
		Room:      class.Room,
		Capacity:  class.Capacity,
		CreatedAt: class.CreatedAt,
		UpdatedAt: class.UpdatedAt,
	}
}
