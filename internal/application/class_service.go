package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lesson-scheduler/internal/persistence"
)

// ClassRepository captures the class persistence used to seed lessons.
type ClassRepository interface {
	ClassDirectory
	CreateClass(ctx context.Context, class Class) error
	ListClasses(ctx context.Context) ([]Class, error)
}

// ClassService registers classes and their weekly templates.
type ClassService struct {
	classes     ClassRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewClassService wires dependencies for class operations.
func NewClassService(classes ClassRepository, idGenerator func() string, now func() time.Time) *ClassService {
	return NewClassServiceWithLogger(classes, idGenerator, now, nil)
}

// NewClassServiceWithLogger wires dependencies and a structured logger.
func NewClassServiceWithLogger(classes ClassRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ClassService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ClassService{
		classes:     classes,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateClass validates and stores a class.
func (s *ClassService) CreateClass(ctx context.Context, input ClassInput) (Class, error) {
	if s == nil || s.classes == nil {
		return Class{}, fmt.Errorf("ClassService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "class", "create", "teacher_id", input.TeacherID)

	class, vErr := parseClassInput(input)
	if vErr.HasErrors() {
		logger.Warn("class validation failed", "error_kind", ErrorKind(vErr), "error", vErr)
		return Class{}, vErr
	}

	createdAt := s.now()
	class.ID = s.idGenerator()
	class.CreatedAt = createdAt
	class.UpdatedAt = createdAt

	if err := s.classes.CreateClass(ctx, class); err != nil {
		err = mapClassRepoError("create class", err)
		logFailure(logger, "class creation failed", err)
		return Class{}, err
	}

	logger.Info("class created", "class_id", class.ID)
	return class, nil
}

// GetClass returns a class by id.
func (s *ClassService) GetClass(ctx context.Context, id string) (Class, error) {
	if s == nil || s.classes == nil {
		return Class{}, fmt.Errorf("ClassService is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Class{}, fmt.Errorf("%w: %s", ErrClassNotFound, id)
	}
	class, err := s.classes.GetClass(ctx, id)
	if err != nil {
		if isNotFoundError(err) {
			return Class{}, fmt.Errorf("%w: %s", ErrClassNotFound, id)
		}
		err = mapClassRepoError("get class", err)
		logFailure(serviceLogger(ctx, s.logger, "class", "get", "class_id", id), "class lookup failed", err)
		return Class{}, err
	}
	return class, nil
}

// ListClasses returns every class.
func (s *ClassService) ListClasses(ctx context.Context) ([]Class, error) {
	if s == nil || s.classes == nil {
		return nil, fmt.Errorf("ClassService is nil")
	}
	classes, err := s.classes.ListClasses(ctx)
	if err != nil {
		err = mapClassRepoError("list classes", err)
		logFailure(serviceLogger(ctx, s.logger, "class", "list"), "class listing failed", err)
		return nil, err
	}
	return classes, nil
}

func mapClassRepoError(op string, err error) error {
	switch {
	case errors.Is(err, persistence.ErrDuplicate):
		vErr := &ValidationError{}
		vErr.add("id", "already exists")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("class", "violates storage constraints")
		return vErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &StorageError{Op: op, Err: err}
}
