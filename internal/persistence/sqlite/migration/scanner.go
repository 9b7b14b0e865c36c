package migration

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// FSScanner reads migrations from a directory of an fs.FS.
type FSScanner struct {
	files fs.FS
	dir   string
}

// NewScanner creates a Scanner over dir inside files.
func NewScanner(files fs.FS, dir string) *FSScanner {
	if dir == "" {
		dir = "."
	}
	return &FSScanner{files: files, dir: dir}
}

// ScanMigrations returns the migrations ordered by numeric version.
func (s *FSScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.files, s.dir)
	if err != nil {
		return nil, NewMigrationError("", s.dir, "read directory", err)
	}

	var migrations []Migration
	versionMap := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		migration, err := s.parseMigrationFile(entry.Name())
		if err != nil {
			return nil, err
		}

		if existing, ok := versionMap[migration.Version]; ok {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, migration.Version, existing, entry.Name()))
		}
		versionMap[migration.Version] = entry.Name()

		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		versionI, _ := strconv.Atoi(migrations[i].Version)
		versionJ, _ := strconv.Atoi(migrations[j].Version)
		return versionI < versionJ
	})

	return migrations, nil
}

// ValidateFileName checks if a migration file follows the naming convention.
func ValidateFileName(filename string) error {
	matches := migrationFilePattern.FindStringSubmatch(filename)
	if len(matches) != 3 {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'",
			ErrInvalidMigrationFile, filename)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: version '%s' in filename '%s' is not a valid number",
			ErrInvalidVersion, matches[1], filename)
	}
	return nil
}

func (s *FSScanner) parseMigrationFile(name string) (Migration, error) {
	filePath := path.Join(s.dir, name)
	if err := ValidateFileName(name); err != nil {
		return Migration{}, NewMigrationError("", filePath, "validate filename", err)
	}

	matches := migrationFilePattern.FindStringSubmatch(name)
	version := matches[1]

	content, err := fs.ReadFile(s.files, filePath)
	if err != nil {
		return Migration{}, NewMigrationError(version, filePath, "read file", err)
	}
	sqlContent := string(content)

	if len(SplitStatements(sqlContent)) == 0 {
		return Migration{}, NewMigrationError(version, filePath, "validate content",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	description := extractDescription(sqlContent)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	return Migration{
		Version:     version,
		Description: description,
		SQL:         sqlContent,
		FilePath:    filePath,
		Checksum:    fmt.Sprintf("%x", sha256.Sum256(content)),
	}, nil
}

// extractDescription reads a leading "-- Description: ..." comment.
func extractDescription(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
	}
	return ""
}

// SplitStatements splits SQL content into individual statements.
//
// Line comments are dropped. Semicolons inside string literals and inside a
// CREATE TRIGGER ... END block do not terminate a statement.
func SplitStatements(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		lines = append(lines, trimmed)
	}
	body := strings.Join(lines, "\n")

	var (
		statements []string
		current    strings.Builder
		inString   bool
	)
	flush := func() {
		stmt := strings.TrimSpace(current.String())
		current.Reset()
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	for _, r := range body {
		if r == '\'' {
			inString = !inString
		}
		if r == ';' && !inString {
			if isOpenTrigger(current.String()) {
				current.WriteRune(r)
				continue
			}
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return statements
}

// isOpenTrigger reports whether stmt is a trigger definition whose END has
// not been reached yet.
func isOpenTrigger(stmt string) bool {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	fields := strings.Fields(upper)
	if len(fields) < 2 || fields[0] != "CREATE" {
		return false
	}
	isTrigger := fields[1] == "TRIGGER" ||
		(len(fields) > 2 && (fields[1] == "TEMP" || fields[1] == "TEMPORARY") && fields[2] == "TRIGGER")
	if !isTrigger {
		return false
	}
	return !strings.HasSuffix(upper, "END")
}
