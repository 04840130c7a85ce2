// Package testutil provides an in-memory database/sql driver that speaks the
// statement shapes the SQL repositories emit, for Postgres tests without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Statement is one recorded query or exec with its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// StubConn records statements and keeps table rows in memory. Serial ids are
// allocated per table and, like Postgres sequences, are not advanced by
// inserts that supply an explicit id.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Statements []Statement
	Tables     map[string][]map[string]any
	Columns    map[string][]string
	serials    map[string]int64
	FailExec   bool
	FailQuery  bool
	FailPing   bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{
		Tables:  make(map[string][]map[string]any),
		Columns: make(map[string][]string),
		serials: make(map[string]int64),
	}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext for CREATE, UPDATE and DELETE.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	c.record(query, args)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}

	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		table, cols, err := parseCreate(query)
		if err != nil {
			return nil, err
		}
		c.Columns[table] = cols
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, col, err := parseDelete(query)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("missing args for delete %s", table)
		}
		target := args[0].Value
		var kept []map[string]any
		var removed int64
		for _, row := range c.Tables[table] {
			if row[col] == target {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[table] = kept
		return driver.RowsAffected(removed), nil
	case strings.HasPrefix(upper, "UPDATE"):
		table, sets, where, err := parseUpdate(query)
		if err != nil {
			return nil, err
		}
		if len(args) != len(sets)+1 {
			return nil, fmt.Errorf("column/arg mismatch for update %s", table)
		}
		target := args[len(args)-1].Value
		var changed int64
		for _, row := range c.Tables[table] {
			if row[where] != target {
				continue
			}
			for i, col := range sets {
				row[col] = args[i].Value
			}
			changed++
		}
		return driver.RowsAffected(changed), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext for INSERT ... RETURNING and SELECT.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(query, args)
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}

	upper := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(upper, "INSERT INTO") {
		return c.insertReturning(query, args)
	}

	table, where, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	cols := c.columnsFor(table)
	var values [][]driver.Value
	for _, row := range c.Tables[table] {
		if where != "" && (len(args) == 0 || row[where] != args[0].Value) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values}, nil
}

func (c *StubConn) insertReturning(query string, args []driver.NamedValue) (driver.Rows, error) {
	table, cols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if len(cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	row := make(map[string]any, len(cols)+1)
	for i, col := range cols {
		row[col] = args[i].Value
	}
	if _, explicit := row["id"]; !explicit {
		c.serials[table]++
		row["id"] = c.serials[table]
	}
	for _, existing := range c.Tables[table] {
		if existing["id"] == row["id"] {
			return nil, &pgconn.PgError{
				Severity: "ERROR",
				Code:     "23505",
				Message:  fmt.Sprintf("duplicate key value violates unique constraint %q", table+"_pkey"),
			}
		}
	}
	c.Tables[table] = append(c.Tables[table], row)
	return &stubRows{cols: []string{"id"}, rows: [][]driver.Value{{row["id"]}}}, nil
}

func (c *StubConn) columnsFor(table string) []string {
	if cols, ok := c.Columns[table]; ok {
		return cols
	}
	seen := map[string]struct{}{}
	for _, row := range c.Tables[table] {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		if col != "id" {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return append([]string{"id"}, cols...)
}

func (c *StubConn) record(query string, args []driver.NamedValue) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.Statements = append(c.Statements, Statement{SQL: query, Args: vals})
}

// LastStatement returns the most recently recorded statement.
func (c *StubConn) LastStatement() Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Statements) == 0 {
		return Statement{}
	}
	return c.Statements[len(c.Statements)-1]
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func parseCreate(query string) (string, []string, error) {
	upper := strings.ToUpper(query)
	marker := "EXISTS "
	idx := strings.Index(upper, marker)
	if idx == -1 {
		marker = "TABLE "
		idx = strings.Index(upper, marker)
	}
	open := strings.Index(query, "(")
	closeIdx := strings.LastIndex(query, ")")
	if idx == -1 || open == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse create: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(query[idx+len(marker) : open]))
	var cols []string
	depth, start := 0, open+1
	body := query[:closeIdx]
	for i := open + 1; i <= len(body); i++ {
		if i < len(body) {
			switch body[i] {
			case '(':
				depth++
				continue
			case ')':
				depth--
				continue
			case ',':
				if depth > 0 {
					continue
				}
			default:
				continue
			}
		}
		if fields := strings.Fields(body[start:i]); len(fields) > 0 {
			cols = append(cols, strings.ToLower(fields[0]))
		}
		start = i + 1
	}
	return table, cols, nil
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	if strings.Contains(strings.ToUpper(rest), "DEFAULT VALUES") {
		return strings.ToLower(strings.Fields(rest)[0]), nil, nil
	}
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:open]))
	return table, splitColumns(rest[open+1 : closeIdx]), nil
}

func parseDelete(query string) (string, string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	prefix := "delete from "
	rest := strings.TrimSpace(lower[len(prefix):])
	whereIdx := strings.Index(rest, " where ")
	if whereIdx == -1 {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	table := strings.TrimSpace(rest[:whereIdx])
	col, err := predicateColumn(rest[whereIdx+len(" where "):])
	return table, col, err
}

func parseUpdate(query string) (string, []string, string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	setIdx := strings.Index(lower, " set ")
	whereIdx := strings.LastIndex(lower, " where ")
	if setIdx == -1 || whereIdx == -1 || whereIdx < setIdx {
		return "", nil, "", fmt.Errorf("cannot parse update: %s", query)
	}
	table := strings.TrimSpace(lower[len("update "):setIdx])
	var sets []string
	for _, assignment := range strings.Split(lower[setIdx+len(" set "):whereIdx], ",") {
		col, err := predicateColumn(assignment)
		if err != nil {
			return "", nil, "", err
		}
		sets = append(sets, col)
	}
	where, err := predicateColumn(lower[whereIdx+len(" where "):])
	return table, sets, where, err
}

func parseSelect(query string) (string, string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	fromIdx := strings.Index(lower, " from ")
	if !strings.HasPrefix(lower, "select ") || fromIdx == -1 {
		return "", "", fmt.Errorf("cannot parse select: %s", query)
	}
	rest := strings.TrimSpace(lower[fromIdx+len(" from "):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", "", fmt.Errorf("cannot parse select: %s", query)
	}
	whereIdx := strings.Index(rest, " where ")
	if whereIdx == -1 {
		return fields[0], "", nil
	}
	col, err := predicateColumn(rest[whereIdx+len(" where "):])
	return fields[0], col, err
}

func predicateColumn(expr string) (string, error) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("cannot parse predicate: %s", expr)
	}
	return strings.TrimSpace(parts[0]), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
