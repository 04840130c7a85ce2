// Program entitymodelgenerate reads docs/schema/entity-model.json and emits the
// Go row mappings plus the Postgres and SQLite DDL bundles.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var exitFunc = os.Exit

// Field types understood by the generator.
const (
	typeID        = "id"
	typeString    = "string"
	typeInteger   = "integer"
	typeNumber    = "number"
	typeBoolean   = "boolean"
	typeTimestamp = "timestamp"
	typeReference = "reference"
)

// Accessor directives. An empty directive means "both".
const (
	accessBoth = "both"
	accessGet  = "get"
	accessSet  = "set"
	accessNone = "none"
)

type fieldSpec struct {
	Name      string `json:"name"`
	GoName    string `json:"go_name"`
	Type      string `json:"type"`
	Target    string `json:"target"`
	Identity  bool   `json:"identity"`
	Nullable  bool   `json:"nullable"`
	Accessors string `json:"accessors"`
}

type entitySpec struct {
	Name        string      `json:"name"`
	Table       string      `json:"table"`
	Description string      `json:"description"`
	Fields      []fieldSpec `json:"fields"`
}

type metadataSpec struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

type schemaDoc struct {
	Version  string       `json:"version"`
	Metadata metadataSpec `json:"metadata"`
	Entities []entitySpec `json:"entities"`
}

func main() {
	schemaPath := flag.String("schema", "docs/schema/entity-model.json", "path to the entity model schema")
	outPath := flag.String("out", "pkg/domain/entitymodel/model_gen.go", "output file for generated Go code")
	sqlPostgresPath := flag.String("sql-postgres", "", "output file for generated Postgres DDL (optional)")
	sqlSQLitePath := flag.String("sql-sqlite", "", "output file for generated SQLite DDL (optional)")
	flag.Parse()

	doc, err := loadSchema(*schemaPath)
	if err != nil {
		exitErr(err)
	}

	code, err := generateCode(doc)
	if err != nil {
		exitErr(err)
	}
	if err := writeFile(*outPath, code); err != nil {
		exitErr(err)
	}

	if strings.TrimSpace(*sqlPostgresPath) != "" || strings.TrimSpace(*sqlSQLitePath) != "" {
		pgSQL, sqliteSQL, err := generateSQL(doc)
		if err != nil {
			exitErr(err)
		}
		if path := strings.TrimSpace(*sqlPostgresPath); path != "" {
			if err := writeFile(path, pgSQL); err != nil {
				exitErr(err)
			}
			fmt.Printf("generated %s from %s\n", path, *schemaPath)
		}
		if path := strings.TrimSpace(*sqlSQLitePath); path != "" {
			if err := writeFile(path, sqliteSQL); err != nil {
				exitErr(err)
			}
			fmt.Printf("generated %s from %s\n", path, *schemaPath)
		}
	}

	fmt.Printf("generated %s from %s\n", *outPath, *schemaPath)
}

func loadSchema(path string) (schemaDoc, error) {
	//nolint:gosec // generator intentionally reads caller-provided schema path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return schemaDoc{}, fmt.Errorf("read schema: %w", err)
	}

	var doc schemaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return schemaDoc{}, fmt.Errorf("parse schema: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return schemaDoc{}, err
	}
	return doc, nil
}

// validateSchema enforces the structural rules the emitters rely on: exactly
// one identity field per entity, known field types and directives, and
// references that point at declared entities without forming a cycle.
func validateSchema(doc schemaDoc) error {
	names := make(map[string]struct{}, len(doc.Entities))
	tables := make(map[string]struct{}, len(doc.Entities))
	for _, entity := range doc.Entities {
		if entity.Name == "" || entity.Table == "" {
			return fmt.Errorf("entity %q: name and table are required", entity.Name)
		}
		if _, dup := names[entity.Name]; dup {
			return fmt.Errorf("entity %q declared twice", entity.Name)
		}
		if _, dup := tables[entity.Table]; dup {
			return fmt.Errorf("table %q declared twice", entity.Table)
		}
		names[entity.Name] = struct{}{}
		tables[entity.Table] = struct{}{}
	}

	for _, entity := range doc.Entities {
		identities := 0
		columns := make(map[string]struct{}, len(entity.Fields))
		for _, field := range entity.Fields {
			if field.Name == "" {
				return fmt.Errorf("entity %s: field without name", entity.Name)
			}
			if _, dup := columns[field.Name]; dup {
				return fmt.Errorf("entity %s: field %q declared twice", entity.Name, field.Name)
			}
			columns[field.Name] = struct{}{}

			if field.Identity {
				identities++
				if field.Type != typeID {
					return fmt.Errorf("entity %s: identity field %q must have type %q", entity.Name, field.Name, typeID)
				}
				continue
			}
			switch field.Type {
			case typeString, typeInteger:
			case typeNumber, typeBoolean, typeTimestamp:
				if field.Nullable {
					return fmt.Errorf("entity %s: field %q: nullable %s fields are not supported", entity.Name, field.Name, field.Type)
				}
			case typeReference:
				if _, ok := names[field.Target]; !ok {
					return fmt.Errorf("entity %s: field %q references unknown entity %q", entity.Name, field.Name, field.Target)
				}
				if field.Nullable {
					return fmt.Errorf("entity %s: field %q: nullable references are not supported", entity.Name, field.Name)
				}
			case typeID:
				return fmt.Errorf("entity %s: field %q has type id but is not the identity", entity.Name, field.Name)
			default:
				return fmt.Errorf("entity %s: field %q has unknown type %q", entity.Name, field.Name, field.Type)
			}
			switch field.Accessors {
			case "", accessBoth, accessGet, accessSet, accessNone:
			default:
				return fmt.Errorf("entity %s: field %q has unknown accessor directive %q", entity.Name, field.Name, field.Accessors)
			}
		}
		if identities != 1 {
			return fmt.Errorf("entity %s: expected exactly one identity field, got %d", entity.Name, identities)
		}
	}

	if _, err := topoOrder(doc.Entities); err != nil {
		return err
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func exitErr(err error) {
	if err == nil {
		return
	}
	//nolint:forbidigo // generator writes to stderr on failure.
	fmt.Fprintln(os.Stderr, err)
	exitFunc(1)
}
