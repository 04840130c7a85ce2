package domain

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IdentityColumn is the column name every mapped table uses for its identifier.
const IdentityColumn = "id"

// Column is one (column name, value) pair of a flattened record. Values are
// database/sql compatible: int64, float64, bool, string, time.Time or nil.
type Column struct {
	Name  string
	Value any
}

// Row is a backend row keyed by column name.
type Row map[string]any

// Tabular is implemented by entities that flatten into ordered columns for a
// table. Columns never includes the identity column.
type Tabular interface {
	TableName() string
	Columns() []Column
}

// Record is an Entity that is also Tabular. Like Entity it is only usable as
// a type constraint.
type Record[T any] interface {
	Entity[T]
	Tabular
}

// Mapping binds a table to the function hydrating rows into entities of type E.
type Mapping[E any] struct {
	Table   string
	Hydrate func(Row) (E, error)
}

// RowID reads the identity column of row.
func RowID(row Row) (ID, error) {
	v, err := RowInt64(row, IdentityColumn)
	return ID(v), err
}

// RowInt64 reads a non-null integer column.
func RowInt64(row Row, col string) (int64, error) {
	v, ok, err := RowOptionalInt64(row, col)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("column %s: unexpected null", col)
	}
	return v, nil
}

// RowOptionalInt64 reads a nullable integer column; ok is false for NULL.
func RowOptionalInt64(row Row, col string) (int64, bool, error) {
	raw, present := row[col]
	if !present {
		return 0, false, fmt.Errorf("column %s: missing", col)
	}
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return v, true, nil
	case int32:
		return int64(v), true, nil
	case int:
		return int64(v), true, nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("column %s: %w", col, err)
		}
		return n, true, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("column %s: %w", col, err)
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("column %s: cannot convert %T to integer", col, raw)
	}
}

// RowString reads a non-null text column.
func RowString(row Row, col string) (string, error) {
	raw, present := row[col]
	if !present {
		return "", fmt.Errorf("column %s: missing", col)
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("column %s: unexpected null", col)
	default:
		return "", fmt.Errorf("column %s: cannot convert %T to string", col, raw)
	}
}

// RowOptionalString reads a nullable text column; ok is false for NULL.
func RowOptionalString(row Row, col string) (string, bool, error) {
	raw, present := row[col]
	if !present {
		return "", false, fmt.Errorf("column %s: missing", col)
	}
	if raw == nil {
		return "", false, nil
	}
	s, err := RowString(row, col)
	return s, err == nil, err
}

// NullValue flattens a nullable field into a column value, nil when invalid.
func NullValue[T any](n sql.Null[T]) any {
	if !n.Valid {
		return nil
	}
	return n.V
}

// RowFloat64 reads a non-null floating point column.
func RowFloat64(row Row, col string) (float64, error) {
	raw, present := row[col]
	if !present {
		return 0, fmt.Errorf("column %s: missing", col)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", col, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("column %s: unexpected null", col)
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to float", col, raw)
	}
}

// RowBool reads a non-null boolean column. SQLite stores booleans as integers.
func RowBool(row Row, col string) (bool, error) {
	raw, present := row[col]
	if !present {
		return false, fmt.Errorf("column %s: missing", col)
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case nil:
		return false, fmt.Errorf("column %s: unexpected null", col)
	default:
		return false, fmt.Errorf("column %s: cannot convert %T to bool", col, raw)
	}
}

// RowTime reads a non-null timestamp column and normalises it to UTC.
func RowTime(row Row, col string) (time.Time, error) {
	raw, present := row[col]
	if !present {
		return time.Time{}, fmt.Errorf("column %s: missing", col)
	}
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseRowTime(col, v)
	case []byte:
		return parseRowTime(col, string(v))
	case nil:
		return time.Time{}, fmt.Errorf("column %s: unexpected null", col)
	default:
		return time.Time{}, fmt.Errorf("column %s: cannot convert %T to time", col, raw)
	}
}

// rowTimeLayouts are the text forms accepted for timestamp columns: RFC 3339,
// the modernc.org/sqlite "sqlite" write format and time.Time.String, which
// that driver writes by default.
var rowTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

func parseRowTime(col, s string) (time.Time, error) {
	if i := strings.Index(s, " m="); i > 0 {
		s = s[:i]
	}
	var firstErr error
	for _, layout := range rowTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("column %s: %w", col, firstErr)
}
