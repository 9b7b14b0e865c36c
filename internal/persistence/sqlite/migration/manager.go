package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Manager orchestrates the migration process.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger discards output.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in version order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	for i, migration := range pending {
		migrationStarted := time.Now()
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", i+1,
			"total", len(pending),
		)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStarted)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
	}

	m.logger.InfoContext(ctx, "migrations applied", "count", len(pending), "duration", time.Since(started))
	return nil
}

// PendingMigrations returns the migrations that still need to be applied.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.PendingMigrations, nil
}

// Status reports applied and pending migrations. It validates that versions
// form a continuous sequence and that applied files were not edited.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[a.Version] = a
	}

	status := &Status{AppliedMigrations: applied}
	for _, migration := range available {
		record, ok := appliedByVersion[migration.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if record.Checksum != "" && migration.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		status.CurrentVersion = migration.Version
	}
	status.PendingCount = len(status.PendingMigrations)

	return status, nil
}

// validateSequence ensures there are no gaps in migration version numbers and
// that every applied version still has a file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	versions := make(map[int]bool, len(available))
	for i, migration := range available {
		version, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version '%s' is not numeric", ErrInvalidVersion, migration.Version))
		}
		if i > 0 {
			previous, _ := strconv.Atoi(available[i-1].Version)
			if version != previous+1 {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, previous+1)
			}
		}
		versions[version] = true
	}

	for _, a := range applied {
		version, err := strconv.Atoi(a.Version)
		if err != nil || !versions[version] {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
	}

	return nil
}
