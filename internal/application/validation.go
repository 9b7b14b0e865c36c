package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/lesson-scheduler/internal/scheduler"
)

func parseLessonInput(input LessonInput) (Lesson, *ValidationError) {
	vErr := &ValidationError{}

	lesson := Lesson{
		ClassID: strings.TrimSpace(input.ClassID),
		Title:   strings.TrimSpace(input.Title),
		BookDay: input.BookDay,
		Room:    normalizeOptional(input.Room),
		Notes:   normalizeOptional(input.Notes),
		Status:  LessonStatusScheduled,
	}
	if lesson.ClassID == "" {
		vErr.add("classId", "is required")
	}
	if lesson.Title == "" {
		vErr.add("title", "is required")
	}
	if lesson.BookDay < 0 {
		vErr.add("bookDay", "must not be negative")
	}
	lesson.Date = parseDateField(vErr, "date", input.Date)
	lesson.Start, lesson.End = parseSlotFields(vErr, input.StartTime, input.EndTime)
	if status := strings.TrimSpace(input.Status); status != "" {
		lesson.Status = parseStatusField(vErr, "status", status)
	}

	return lesson, vErr
}

// validateLessonPatch checks the fields present in patch in isolation. Cross
// field rules are enforced by applyLessonPatch once stored values are known.
func validateLessonPatch(patch LessonPatch) *ValidationError {
	vErr := &ValidationError{}
	if patch.ClassID != nil && strings.TrimSpace(*patch.ClassID) == "" {
		vErr.add("classId", "must not be empty")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		vErr.add("title", "must not be empty")
	}
	if patch.BookDay != nil && *patch.BookDay < 0 {
		vErr.add("bookDay", "must not be negative")
	}
	if patch.Date != nil {
		parseDateField(vErr, "date", *patch.Date)
	}
	if patch.StartTime != nil {
		parseTimeField(vErr, "startTime", *patch.StartTime)
	}
	if patch.EndTime != nil {
		parseTimeField(vErr, "endTime", *patch.EndTime)
	}
	if patch.Status != nil {
		parseStatusField(vErr, "status", *patch.Status)
	}
	return vErr
}

func applyLessonPatch(current Lesson, patch LessonPatch) (Lesson, *ValidationError) {
	vErr := validateLessonPatch(patch)
	if vErr.HasErrors() {
		return Lesson{}, vErr
	}

	updated := current
	updated.Room = cloneString(current.Room)
	updated.Notes = cloneString(current.Notes)

	if patch.ClassID != nil {
		updated.ClassID = strings.TrimSpace(*patch.ClassID)
	}
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.BookDay != nil {
		updated.BookDay = *patch.BookDay
	}
	if patch.Date != nil {
		updated.Date = parseDateField(vErr, "date", *patch.Date)
	}
	if patch.StartTime != nil {
		updated.Start = parseTimeField(vErr, "startTime", *patch.StartTime)
	}
	if patch.EndTime != nil {
		updated.End = parseTimeField(vErr, "endTime", *patch.EndTime)
	}
	if patch.Room != nil {
		updated.Room = normalizeOptional(patch.Room)
	}
	if patch.Notes != nil {
		updated.Notes = normalizeOptional(patch.Notes)
	}
	if patch.Status != nil {
		updated.Status = parseStatusField(vErr, "status", *patch.Status)
	}

	if updated.End <= updated.Start {
		vErr.add("endTime", "must be after startTime")
	}
	return updated, vErr
}

func parseLessonFilter(params LessonListParams) (LessonFilter, *ValidationError) {
	vErr := &ValidationError{}
	filter := LessonFilter{
		TeacherID: strings.TrimSpace(params.TeacherID),
		ClassID:   strings.TrimSpace(params.ClassID),
	}
	if value := strings.TrimSpace(params.From); value != "" {
		from := parseDateField(vErr, "from", value)
		filter.From = &from
	}
	if value := strings.TrimSpace(params.To); value != "" {
		to := parseDateField(vErr, "to", value)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !vErr.HasErrors() && filter.To.Before(*filter.From) {
		vErr.add("to", "must not be before from")
	}
	if value := strings.TrimSpace(params.Status); value != "" {
		filter.Status = parseStatusField(vErr, "status", value)
	}
	return filter, vErr
}

func parseClassInput(input ClassInput) (Class, *ValidationError) {
	vErr := &ValidationError{}
	class := Class{
		TeacherID: strings.TrimSpace(input.TeacherID),
		Title:     strings.TrimSpace(input.Title),
		BookID:    normalizeOptional(input.BookID),
		UnitID:    normalizeOptional(input.UnitID),
		Room:      normalizeOptional(input.Room),
		Capacity:  input.Capacity,
	}
	if class.TeacherID == "" {
		vErr.add("teacherId", "is required")
	}
	if class.Title == "" {
		vErr.add("title", "is required")
	}
	if class.Capacity < 0 {
		vErr.add("capacity", "must not be negative")
	}
	class.Start, class.End = parseSlotFields(vErr, input.StartTime, input.EndTime)

	seen := make(map[time.Weekday]struct{}, len(input.Weekdays))
	for _, value := range input.Weekdays {
		day, ok := parseWeekday(value)
		if !ok {
			vErr.add("weekdays", "must contain weekday names such as \"monday\"")
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		class.Weekdays = append(class.Weekdays, day)
	}
	return class, vErr
}

func parseDateField(vErr *ValidationError, field, value string) scheduler.Date {
	if strings.TrimSpace(value) == "" {
		vErr.add(field, "is required")
		return scheduler.Date{}
	}
	date, err := scheduler.ParseDate(value)
	if err != nil {
		vErr.add(field, "must be a date in YYYY-MM-DD format")
		return scheduler.Date{}
	}
	return date
}

func parseTimeField(vErr *ValidationError, field, value string) scheduler.TimeOfDay {
	if strings.TrimSpace(value) == "" {
		vErr.add(field, "is required")
		return 0
	}
	parsed, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		vErr.add(field, "must be a time in HH:MM format")
		return 0
	}
	return parsed
}

// parseSlotFields parses a start and end time and requires end after start.
func parseSlotFields(vErr *ValidationError, startValue, endValue string) (scheduler.TimeOfDay, scheduler.TimeOfDay) {
	before := len(vErr.FieldErrors)
	start := parseTimeField(vErr, "startTime", startValue)
	end := parseTimeField(vErr, "endTime", endValue)
	if len(vErr.FieldErrors) == before && end <= start {
		vErr.add("endTime", "must be after startTime")
	}
	return start, end
}

func parseStatusField(vErr *ValidationError, field, value string) LessonStatus {
	status := LessonStatus(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		vErr.add(field, "must be one of scheduled, in_progress, completed, cancelled")
		return ""
	}
	return status
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseWeekday accepts full or three letter English names, or 0 (Sunday)
// through 6.
func parseWeekday(value string) (time.Weekday, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 6 {
			return 0, false
		}
		return time.Weekday(n), true
	}
	if day, ok := weekdayNames[value]; ok {
		return day, true
	}
	if len(value) == 3 {
		for name, day := range weekdayNames {
			if strings.HasPrefix(name, value) {
				return day, true
			}
		}
	}
	return 0, false
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
