// Package postgres opens the Postgres backend through the pgx database/sql
// driver and applies the generated entity-model DDL on startup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"satcore/internal/infra/persistence/sqlrepo"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with config defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/satcore?sslmode=disable"

	uniqueViolation = "23505"
)

// Dialect binds Postgres placeholder and constraint semantics for sqlrepo.
var Dialect = sqlrepo.Dialect{
	Name:        "postgres",
	Placeholder: sqlrepo.DollarPlaceholder,
	IsConflict:  isConflict,
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store owns the Postgres handle shared by every repository.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN) and applies the generated DDL. The DDL only uses
// CREATE TABLE IF NOT EXISTS, so applying it on every start is safe.
//
// Serial sequences do not advance when rows are inserted with explicit ids, so
// a later automatic insert may collide and surface as domain.ErrConflict.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applyEntityModelDDL(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func applyEntityModelDDL(ctx context.Context, db *sql.DB) error {
	return sqlrepo.Migrate(ctx, db, Dialect)
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
