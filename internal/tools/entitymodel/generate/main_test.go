package main

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

func TestGenerateMatchesCommitted(t *testing.T) {
	root := repoRoot(t)

	schemaPath := filepath.Join(root, "docs", "schema", "entity-model.json")
	expectedPath := filepath.Join(root, "pkg", "domain", "entitymodel", "model_gen.go")

	doc, err := loadSchema(schemaPath)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}

	generated, err := generateCode(doc)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	//nolint:gosec // paths are repo-local and deterministic.
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}

	got := declNames(t, generated)
	want := declNames(t, expected)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("generated declarations out of date; run `make entity-model-generate`\ngot:  %v\nwant: %v", got, want)
	}
}

func TestSQLMatchesCommitted(t *testing.T) {
	root := repoRoot(t)
	doc, err := loadSchema(filepath.Join(root, "docs", "schema", "entity-model.json"))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	pg, lite, err := generateSQL(doc)
	if err != nil {
		t.Fatalf("generateSQL: %v", err)
	}
	for name, got := range map[string][]byte{"postgres.sql": pg, "sqlite.sql": lite} {
		//nolint:gosec // paths are repo-local and deterministic.
		want, err := os.ReadFile(filepath.Join(root, "docs", "schema", "sql", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if strings.TrimSpace(string(got)) != strings.TrimSpace(string(want)) {
			t.Fatalf("%s out of date:\n%s", name, got)
		}
	}
}

func TestGenerateCodeHonoursAccessorDirectives(t *testing.T) {
	doc := schemaDoc{Entities: []entitySpec{{
		Name:  "Widget",
		Table: "widget",
		Fields: []fieldSpec{
			{Name: "id", Type: typeID, Identity: true},
			{Name: "label", Type: typeString, Accessors: accessBoth},
			{Name: "weight", Type: typeNumber, Accessors: accessGet},
			{Name: "active", Type: typeBoolean, Accessors: accessSet},
			{Name: "seen_at", Type: typeTimestamp, Accessors: accessNone},
			{Name: "note", Type: typeString, Nullable: true},
		},
	}}}
	if err := validateSchema(doc); err != nil {
		t.Fatalf("validateSchema: %v", err)
	}

	code, err := generateCode(doc)
	if err != nil {
		t.Fatalf("generateCode: %v", err)
	}
	text := string(code)

	present := []string{
		"func (w *Widget) Label() string",
		"func (w *Widget) SetLabel(v string)",
		"func (w *Widget) Weight() float64",
		"func (w *Widget) SetActive(v bool)",
		"func (w *Widget) Note() sql.Null[string]",
		"func (w *Widget) SetNote(v sql.Null[string])",
		`"time"`,
		`"database/sql"`,
		"domain.RowOptionalString(row, \"note\")",
		"{Name: \"seen_at\", Value: w.seenAt}",
	}
	for _, want := range present {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in generated code:\n%s", want, text)
		}
	}
	absent := []string{
		"func (w *Widget) SetWeight(",
		"func (w *Widget) Active()",
		"func (w *Widget) SeenAt()",
		"func (w *Widget) SetSeenAt(",
		"Name: \"id\"",
	}
	for _, unwanted := range absent {
		if strings.Contains(text, unwanted) {
			t.Fatalf("did not expect %q in generated code:\n%s", unwanted, text)
		}
	}
}

func TestValidateSchemaRejectsMalformedEntities(t *testing.T) {
	id := fieldSpec{Name: "id", Type: typeID, Identity: true}
	tests := []struct {
		name string
		doc  schemaDoc
		want string
	}{
		{
			name: "missingIdentity",
			doc:  schemaDoc{Entities: []entitySpec{{Name: "A", Table: "a", Fields: []fieldSpec{{Name: "x", Type: typeString}}}}},
			want: "exactly one identity",
		},
		{
			name: "twoIdentities",
			doc:  schemaDoc{Entities: []entitySpec{{Name: "A", Table: "a", Fields: []fieldSpec{id, {Name: "id2", Type: typeID, Identity: true}}}}},
			want: "exactly one identity",
		},
		{
			name: "unknownType",
			doc:  schemaDoc{Entities: []entitySpec{{Name: "A", Table: "a", Fields: []fieldSpec{id, {Name: "x", Type: "blob"}}}}},
			want: "unknown type",
		},
		{
			name: "unknownDirective",
			doc:  schemaDoc{Entities: []entitySpec{{Name: "A", Table: "a", Fields: []fieldSpec{id, {Name: "x", Type: typeString, Accessors: "skip"}}}}},
			want: "unknown accessor directive",
		},
		{
			name: "danglingReference",
			doc:  schemaDoc{Entities: []entitySpec{{Name: "A", Table: "a", Fields: []fieldSpec{id, {Name: "b_id", Type: typeReference, Target: "B"}}}}},
			want: "unknown entity",
		},
		{
			name: "duplicateEntity",
			doc:  schemaDoc{Entities: []entitySpec{{Name: "A", Table: "a", Fields: []fieldSpec{id}}, {Name: "A", Table: "a2", Fields: []fieldSpec{id}}}},
			want: "declared twice",
		},
		{
			name: "referenceCycle",
			doc: schemaDoc{Entities: []entitySpec{
				{Name: "A", Table: "a", Fields: []fieldSpec{id, {Name: "b_id", Type: typeReference, Target: "B"}}},
				{Name: "B", Table: "b", Fields: []fieldSpec{id, {Name: "a_id", Type: typeReference, Target: "A"}}},
			}},
			want: "reference cycle",
		},
		{
			name: "nullableTimestamp",
			doc:  schemaDoc{Entities: []entitySpec{{Name: "A", Table: "a", Fields: []fieldSpec{id, {Name: "at", Type: typeTimestamp, Nullable: true}}}}},
			want: "not supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSchema(tt.doc)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPrivateName(t *testing.T) {
	cases := map[string]string{
		"Name":          "name",
		"CatalogNumber": "catalogNumber",
		"TLELine1":      "tleLine1",
		"SensorID":      "sensorID",
		"ID":            "id",
		"Type":          "typeValue",
	}
	for in, want := range cases {
		if got := privateName(in); got != want {
			t.Fatalf("privateName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := toCamel("satellite_instrument_id"); got != "SatelliteInstrumentID" {
		t.Fatalf("toCamel = %q", got)
	}
}

func TestLoadSchemaErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadSchema(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadSchema(bad); err == nil || !strings.Contains(err.Error(), "parse schema") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestExitErrUsesExitFunc(t *testing.T) {
	var code int
	exitFunc = func(c int) { code = c }
	defer func() { exitFunc = os.Exit }()

	exitErr(nil)
	if code != 0 {
		t.Fatalf("nil error should not exit")
	}
	exitErr(errors.New("boom"))
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.go")
	if err := writeFile(path, []byte("package x\n")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

// declNames lists the top-level declarations of a Go source file, with
// methods qualified by receiver type.
func declNames(t *testing.T, src []byte) []string {
	t.Helper()
	file, err := parser.ParseFile(token.NewFileSet(), "model_gen.go", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var names []string
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) == 1 {
				if star, ok := d.Recv.List[0].Type.(*ast.StarExpr); ok {
					if ident, ok := star.X.(*ast.Ident); ok {
						name = ident.Name + "." + name
					}
				}
			}
			names = append(names, "func "+name)
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					names = append(names, "type "+s.Name.Name)
				case *ast.ValueSpec:
					for _, n := range s.Names {
						names = append(names, "var "+n.Name)
					}
				}
			}
		}
	}
	sort.Strings(names)
	return names
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for repo root")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "../../../.."))
}
