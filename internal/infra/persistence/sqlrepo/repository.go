// Package sqlrepo implements domain.Repository on top of database/sql. Every
// statement is built from the ordered column metadata an entity exposes, so
// one implementation serves every generated entity and both SQL dialects.
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"satcore/internal/entitymodel/sqlbundle"
	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

// Dialect captures the per-engine differences the statement builder needs.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// IsConflict reports whether err is a primary-key or unique violation.
	IsConflict func(err error) bool
}

// DollarPlaceholder renders Postgres-style $n parameters.
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// QuestionPlaceholder renders SQLite-style ? parameters.
func QuestionPlaceholder(int) string { return "?" }

// Repository persists entities of type T in the table named by its mapping.
type Repository[T any, P domain.Record[T]] struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect Dialect
	mapping domain.Mapping[P]
}

var _ domain.Repository[*entitymodel.InstrumentData] = (*Repository[entitymodel.InstrumentData, *entitymodel.InstrumentData])(nil)

// New builds a repository over db for the table described by mapping.
func New[T any, P domain.Record[T]](db *sql.DB, dialect Dialect, mapping domain.Mapping[P]) *Repository[T, P] {
	return &Repository[T, P]{db: db, dialect: dialect, mapping: mapping}
}

// Get selects the row with id and hydrates it.
func (r *Repository[T, P]) Get(ctx context.Context, id domain.ID) (P, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", r.mapping.Table, domain.IdentityColumn, r.dialect.Placeholder(1))
	rows, err := r.query(ctx, "select", query, int64(id))
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Add inserts entity and returns the identifier reported by RETURNING id. A
// pre-set identifier is written explicitly; collisions map to ErrConflict.
func (r *Repository[T, P]) Add(ctx context.Context, entity P) (domain.ID, error) {
	if entity == nil {
		return 0, fmt.Errorf("%s add: nil entity", r.mapping.Table)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cols := entity.Columns()
	if id, ok := entity.ID(); ok {
		cols = append([]domain.Column{{Name: domain.IdentityColumn, Value: int64(id)}}, cols...)
	}

	var query string
	args := make([]any, 0, len(cols))
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", r.mapping.Table, domain.IdentityColumn)
	} else {
		names := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, col := range cols {
			names[i] = col.Name
			marks[i] = r.dialect.Placeholder(i + 1)
			args = append(args, col.Value)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			r.mapping.Table, strings.Join(names, ", "), strings.Join(marks, ", "), domain.IdentityColumn)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if r.dialect.IsConflict != nil && r.dialect.IsConflict(err) {
			return 0, fmt.Errorf("%s add: %w", r.mapping.Table, domain.ErrConflict)
		}
		return 0, &domain.BackendError{Op: "insert", Table: r.mapping.Table, Err: err}
	}
	entity.SetID(domain.ID(id))
	return domain.ID(id), nil
}

// Delete removes the row with id.
func (r *Repository[T, P]) Delete(ctx context.Context, id domain.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", r.mapping.Table, domain.IdentityColumn, r.dialect.Placeholder(1))
	return r.exec(ctx, "delete", query, int64(id))
}

// Update rewrites every mutable column of the row carrying entity's id.
func (r *Repository[T, P]) Update(ctx context.Context, entity P) (bool, error) {
	if entity == nil {
		return false, fmt.Errorf("%s update: nil entity", r.mapping.Table)
	}
	id, ok := entity.ID()
	if !ok {
		return false, domain.ErrMissingID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cols := entity.Columns()
	if len(cols) == 0 {
		// Nothing to rewrite; report whether the row exists.
		query := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", r.mapping.Table, domain.IdentityColumn, r.dialect.Placeholder(1))
		rows, err := r.query(ctx, "select", query, int64(id))
		return len(rows) > 0, err
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = col.Name + " = " + r.dialect.Placeholder(i+1)
		args = append(args, col.Value)
	}
	args = append(args, int64(id))
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		r.mapping.Table, strings.Join(sets, ", "), domain.IdentityColumn, r.dialect.Placeholder(len(cols)+1))
	return r.exec(ctx, "update", query, args...)
}

// List selects every row of the table. There is no pagination.
func (r *Repository[T, P]) List(ctx context.Context) ([]P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.query(ctx, "select", "SELECT * FROM "+r.mapping.Table)
}

func (r *Repository[T, P]) exec(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, &domain.BackendError{Op: op, Table: r.mapping.Table, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &domain.BackendError{Op: op, Table: r.mapping.Table, Err: err}
	}
	return n > 0, nil
}

func (r *Repository[T, P]) query(ctx context.Context, op, query string, args ...any) ([]P, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.BackendError{Op: op, Table: r.mapping.Table, Err: err}
	}
	defer func() { _ = rows.Close() }()

	scanned, err := scanRows(rows)
	if err != nil {
		return nil, &domain.BackendError{Op: op, Table: r.mapping.Table, Err: err}
	}
	out := make([]P, 0, len(scanned))
	for _, row := range scanned {
		entity, err := r.mapping.Hydrate(row)
		if err != nil {
			return nil, &domain.BackendError{Op: "hydrate", Table: r.mapping.Table, Err: err}
		}
		out = append(out, entity)
	}
	return out, nil
}

func scanRows(rows *sql.Rows) ([]domain.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []domain.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(cols))
		for i, col := range cols {
			row[strings.ToLower(col)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Migrate applies the generated entity-model DDL for dialect to db.
func Migrate(ctx context.Context, db txBeginner, dialect Dialect) error {
	ddl, err := sqlbundle.ForDialect(dialect.Name)
	if err != nil {
		return err
	}
	return ApplyDDL(ctx, db, sqlbundle.SplitStatements(ddl))
}

// ApplyDDL executes the statements in order inside one transaction; a failing
// statement rolls back every earlier one.
func ApplyDDL(ctx context.Context, db txBeginner, statements []string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ddl: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ddl: %w", err)
	}
	return nil
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
