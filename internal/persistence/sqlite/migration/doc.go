// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embed.FS) and follow the
// naming convention {version}_{description}.sql, for example
// "001_create_classes.sql". Each file runs in its own transaction and is
// recorded in the schema_migrations table so it is never applied twice.
// CREATE TRIGGER bodies are kept intact when statements are split.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
