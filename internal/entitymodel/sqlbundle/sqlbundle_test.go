package sqlbundle

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements(SQLite())
	if len(stmts) == 0 {
		t.Fatal("expected sqlite DDL to produce statements")
	}
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			t.Fatalf("statement unexpectedly starts with comment: %q", stmt)
		}
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			t.Fatalf("statement missing semicolon terminator: %q", stmt)
		}
	}
}

func TestPostgresBundle(t *testing.T) {
	if !strings.Contains(Postgres(), "CREATE TABLE") {
		t.Fatal("expected postgres DDL to contain CREATE TABLE")
	}
}

func TestBundlesDeclareEveryTable(t *testing.T) {
	for _, table := range []string{"satellite", "instrument", "satellite_instrument", "instrument_data", "ocean_color_mapping"} {
		want := "CREATE TABLE IF NOT EXISTS " + table + " ("
		if !strings.Contains(Postgres(), want) || !strings.Contains(SQLite(), want) {
			t.Fatalf("expected both bundles to create %s", table)
		}
	}
}

func TestSplitStatementsSkipsCommentsAndKeepsTail(t *testing.T) {
	stmts := SplitStatements("-- header\n\nCREATE TABLE a (\n  id INTEGER\n);\nSELECT 1")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[1] != "SELECT 1" {
		t.Fatalf("unexpected tail %q", stmts[1])
	}
}

func TestForDialect(t *testing.T) {
	pg, err := ForDialect("Postgres")
	if err != nil || pg != Postgres() {
		t.Fatalf("ForDialect(postgres): %v", err)
	}
	lite, err := ForDialect("sqlite")
	if err != nil || lite != SQLite() {
		t.Fatalf("ForDialect(sqlite): %v", err)
	}
	if _, err := ForDialect("oracle"); err == nil {
		t.Fatalf("expected error for unknown dialect")
	}
}
