// Package sqlite opens the SQLite backend: it applies the generated
// entity-model DDL and supplies the dialect the SQL repositories use.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"satcore/internal/infra/persistence/sqlrepo"

	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const defaultPath = "satcore.db"

// Dialect binds SQLite placeholder and constraint semantics for sqlrepo.
var Dialect = sqlrepo.Dialect{
	Name:        "sqlite",
	Placeholder: sqlrepo.QuestionPlaceholder,
	IsConflict:  isConflict,
}

// Store owns the SQLite handle shared by every repository.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and applies the DDL bundle.
// Foreign keys are declared by the DDL but not enforced; SQLite leaves the
// foreign_keys pragma off by default.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := sqlrepo.Migrate(ctx, db, Dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func isConflict(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3lib.SQLITE_CONSTRAINT:
		return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
	}
	return false
}
