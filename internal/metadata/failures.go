package metadata

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// FailuresFile is the failure database name inside the cache directory.
const FailuresFile = "failures.db"

// FailureStore records source files whose compilation failed. Modules with
// recorded failures are rebuilt by the next run even when their sources
// did not change.
type FailureStore struct {
	db *sql.DB
}

// OpenFailureStore creates or opens the failure database in cacheDir.
func OpenFailureStore(cacheDir string) (*FailureStore, error) {
	db, err := sql.Open("sqlite3", filepath.Join(cacheDir, FailuresFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open failure store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to failure store: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		schemaSQL,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize failure store: %w", err)
		}
	}
	return &FailureStore{db: db}, nil
}

// Close closes the database connection.
func (s *FailureStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// MarkFileAsFailed records a compilation failure for a source path.
func (s *FailureStore) MarkFileAsFailed(ctx context.Context, module, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO failed_files (module, path) VALUES (?, ?)`,
		module, filepath.ToSlash(path))
	if err != nil {
		return fmt.Errorf("recording failed file %s: %w", path, err)
	}
	return nil
}

// Failed returns the recorded failed paths of a module, sorted.
func (s *FailureStore) Failed(ctx context.Context, module string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM failed_files WHERE module = ? ORDER BY path`, module)
	if err != nil {
		return nil, fmt.Errorf("querying failed files: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning failed file: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Clear forgets every recorded failure of a module.
func (s *FailureStore) Clear(ctx context.Context, module string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM failed_files WHERE module = ?`, module); err != nil {
		return fmt.Errorf("clearing failed files of %s: %w", module, err)
	}
	return nil
}
