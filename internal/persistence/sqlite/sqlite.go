// Package sqlite implements the persistence repositories on SQLite using the
// pure Go modernc.org/sqlite driver. Lesson overlap is additionally guarded by
// triggers installed through the embedded migrations.
package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/lesson-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the SQLite repositories sharing one connection pool.
type Store struct {
	pool    *ConnectionPool
	Lessons *LessonRepository
	Classes *ClassRepository
}

// Open connects to the database at path with DefaultConfig.
func Open(ctx context.Context, path string) (*Store, error) {
	return OpenWithConfig(ctx, DefaultConfig(path))
}

// OpenWithConfig connects to the database described by config.
func OpenWithConfig(ctx context.Context, config Config) (*Store, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:    pool,
		Lessons: NewLessonRepository(pool),
		Classes: NewClassRepository(pool),
	}, nil
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		logger,
	)
	return manager.RunMigrations(ctx)
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
