package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/lesson-scheduler/internal/application"
	"github.com/example/lesson-scheduler/internal/lock"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// LessonServiceDeps captures dependencies for constructing a lesson service.
type LessonServiceDeps struct {
	Lessons        application.LessonRepository
	Classes        application.ClassDirectory
	Locker         lock.Locker
	Publisher      application.EventPublisher
	IDGenerator    func() string
	Now            func() time.Time
	LockWait       time.Duration
	// PublishTimeout bounds event publishing; zero keeps the service default.
	PublishTimeout time.Duration
	Logger         *slog.Logger
}

// NewLessonService builds a lesson service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewLessonService(deps LessonServiceDeps) *application.LessonService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	svc := application.NewLessonServiceWithLogger(
		deps.Lessons,
		deps.Classes,
		deps.Locker,
		deps.Publisher,
		idGen,
		now,
		deps.Logger,
	)
	if deps.LockWait != 0 {
		svc.SetLockWait(deps.LockWait)
	}
	if deps.PublishTimeout != 0 {
		svc.SetPublishTimeout(deps.PublishTimeout)
	}
	return svc
}

// ClassServiceDeps captures dependencies for constructing a class service.
type ClassServiceDeps struct {
	Classes     application.ClassRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewClassService builds a class service using the supplied dependencies.
func (f *ServiceFactory) NewClassService(deps ClassServiceDeps) *application.ClassService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewClassServiceWithLogger(
		deps.Classes,
		idGen,
		now,
		deps.Logger,
	)
}
