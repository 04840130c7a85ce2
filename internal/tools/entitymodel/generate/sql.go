package main

import (
	"fmt"
	"strings"
)

type sqlDialect struct {
	name      string
	identity  string
	types     map[string]string
	reference string
}

var postgresDialect = sqlDialect{
	name:     "postgres",
	identity: "SERIAL PRIMARY KEY",
	types: map[string]string{
		typeString:    "VARCHAR",
		typeInteger:   "BIGINT",
		typeNumber:    "DOUBLE PRECISION",
		typeBoolean:   "BOOLEAN",
		typeTimestamp: "TIMESTAMPTZ",
	},
	reference: "INTEGER",
}

var sqliteDialect = sqlDialect{
	name:     "sqlite",
	identity: "INTEGER PRIMARY KEY",
	types: map[string]string{
		typeString:    "TEXT",
		typeInteger:   "INTEGER",
		typeNumber:    "REAL",
		typeBoolean:   "INTEGER",
		typeTimestamp: "TIMESTAMP",
	},
	reference: "INTEGER",
}

func generateSQL(doc schemaDoc) ([]byte, []byte, error) {
	pg, err := buildSQLForDialect(doc, postgresDialect)
	if err != nil {
		return nil, nil, err
	}
	lite, err := buildSQLForDialect(doc, sqliteDialect)
	if err != nil {
		return nil, nil, err
	}
	return []byte(pg), []byte(lite), nil
}

// buildSQLForDialect renders one idempotent CREATE TABLE statement per entity,
// referenced tables first.
func buildSQLForDialect(doc schemaDoc, dialect sqlDialect) (string, error) {
	ordered, err := topoOrder(doc.Entities)
	if err != nil {
		return "", err
	}
	tables := make(map[string]string, len(doc.Entities))
	for _, entity := range doc.Entities {
		tables[entity.Name] = entity.Table
	}

	var b strings.Builder
	b.WriteString("-- Code generated by internal/tools/entitymodel/generate. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "-- Dialect: %s\n", dialect.name)
	for _, entity := range ordered {
		b.WriteString("\n")
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", entity.Table)
		lines := make([]string, 0, len(entity.Fields))
		for _, field := range entity.Fields {
			lines = append(lines, "    "+columnDDL(field, dialect, tables))
		}
		b.WriteString(strings.Join(lines, ",\n"))
		b.WriteString("\n);\n")
	}
	return b.String(), nil
}

func columnDDL(field fieldSpec, dialect sqlDialect, tables map[string]string) string {
	if field.Identity {
		return field.Name + " " + dialect.identity
	}
	notNull := " NOT NULL"
	if field.Nullable {
		notNull = ""
	}
	if field.Type == typeReference {
		return fmt.Sprintf("%s %s%s REFERENCES %s(id)", field.Name, dialect.reference, notNull, tables[field.Target])
	}
	return field.Name + " " + dialect.types[field.Type] + notNull
}

// topoOrder returns entities so that every referenced entity precedes the
// entities referring to it. Ties keep schema order.
func topoOrder(entities []entitySpec) ([]entitySpec, error) {
	index := make(map[string]int, len(entities))
	for i, entity := range entities {
		index[entity.Name] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(entities))
	ordered := make([]entitySpec, 0, len(entities))

	var visit func(i int, path []string) error
	visit = func(i int, path []string) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("reference cycle: %s", strings.Join(append(path, entities[i].Name), " -> "))
		}
		state[i] = visiting
		for _, field := range entities[i].Fields {
			if field.Type != typeReference {
				continue
			}
			target, ok := index[field.Target]
			if !ok {
				return fmt.Errorf("entity %s: field %q references unknown entity %q", entities[i].Name, field.Name, field.Target)
			}
			if err := visit(target, append(path, entities[i].Name)); err != nil {
				return err
			}
		}
		state[i] = done
		ordered = append(ordered, entities[i])
		return nil
	}

	for i := range entities {
		if err := visit(i, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
