package main

import (
	"fmt"
	"go/format"
	"go/token"
	"strings"
	"unicode"
)

const generatedHeader = "// Code generated by internal/tools/entitymodel/generate. DO NOT EDIT.\n"

// goField is the resolved Go projection of one schema field.
type goField struct {
	spec    fieldSpec
	exposed string // exported accessor name
	private string // struct field name
	goType  string
}

func generateCode(doc schemaDoc) ([]byte, error) {
	var body strings.Builder
	usesSQL, usesTime := false, false

	for _, entity := range doc.Entities {
		fields := resolveFields(entity)
		for _, f := range fields {
			if f.spec.Nullable {
				usesSQL = true
			}
			if f.spec.Type == typeTimestamp {
				usesTime = true
			}
		}
		writeEntity(&body, entity, fields)
	}

	var file strings.Builder
	file.WriteString(generatedHeader)
	file.WriteString("\n// Package entitymodel holds the persisted entities generated from docs/schema/entity-model.json.\n")
	file.WriteString("package entitymodel\n\n")
	file.WriteString("import (\n")
	if usesSQL {
		file.WriteString("\t\"database/sql\"\n")
	}
	file.WriteString("\t\"fmt\"\n")
	if usesTime {
		file.WriteString("\t\"time\"\n")
	}
	file.WriteString("\n\t\"satcore/pkg/domain\"\n)\n\n")
	file.WriteString(body.String())

	formatted, err := format.Source([]byte(file.String()))
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return formatted, nil
}

func resolveFields(entity entitySpec) []goField {
	out := make([]goField, 0, len(entity.Fields))
	for _, spec := range entity.Fields {
		if spec.Identity {
			continue
		}
		exposed := spec.GoName
		if exposed == "" {
			exposed = toCamel(spec.Name)
		}
		out = append(out, goField{
			spec:    spec,
			exposed: exposed,
			private: privateName(exposed),
			goType:  goTypeFor(spec),
		})
	}
	return out
}

func goTypeFor(spec fieldSpec) string {
	var base string
	switch spec.Type {
	case typeString:
		base = "string"
	case typeInteger:
		base = "int64"
	case typeNumber:
		base = "float64"
	case typeBoolean:
		base = "bool"
	case typeTimestamp:
		base = "time.Time"
	case typeReference:
		return "domain.Ref[" + spec.Target + "]"
	default:
		base = "any"
	}
	if spec.Nullable {
		return "sql.Null[" + base + "]"
	}
	return base
}

func rowReader(spec fieldSpec) string {
	switch spec.Type {
	case typeString:
		if spec.Nullable {
			return "domain.RowOptionalString"
		}
		return "domain.RowString"
	case typeInteger:
		if spec.Nullable {
			return "domain.RowOptionalInt64"
		}
		return "domain.RowInt64"
	case typeNumber:
		return "domain.RowFloat64"
	case typeBoolean:
		return "domain.RowBool"
	case typeTimestamp:
		return "domain.RowTime"
	default:
		return "domain.RowInt64"
	}
}

//nolint:cyclop // straight-line emitter, one block per generated member.
func writeEntity(body *strings.Builder, entity entitySpec, fields []goField) {
	name := entity.Name
	recv := strings.ToLower(name[:1])

	fmt.Fprintf(body, "// %s is generated from entity-model.json entities.\n", name)
	if entity.Description != "" {
		fmt.Fprintf(body, "//\n// %s.\n", strings.ToUpper(entity.Description[:1])+entity.Description[1:])
	}
	fmt.Fprintf(body, "type %s struct {\n\tid domain.ID\n\thasID bool\n", name)
	for _, f := range fields {
		fmt.Fprintf(body, "\t%s %s\n", f.private, f.goType)
	}
	body.WriteString("}\n\n")

	fmt.Fprintf(body, "var _ domain.Identifiable = (*%s)(nil)\n", name)
	fmt.Fprintf(body, "var _ domain.Tabular = (*%s)(nil)\n\n", name)

	params := make([]string, 0, len(fields))
	assigns := make([]string, 0, len(fields))
	for _, f := range fields {
		params = append(params, f.private+" "+f.goType)
		assigns = append(assigns, f.private+": "+f.private)
	}
	fmt.Fprintf(body, "// New%s builds a %s without an identifier.\n", name, name)
	fmt.Fprintf(body, "func New%s(%s) *%s {\n\treturn &%s{%s}\n}\n\n", name, strings.Join(params, ", "), name, name, strings.Join(assigns, ", "))

	fmt.Fprintf(body, "// TableName returns the backing table name.\n")
	fmt.Fprintf(body, "func (%s *%s) TableName() string { return %q }\n\n", recv, name, entity.Table)

	fmt.Fprintf(body, "// ID returns the identifier and whether it has been assigned.\n")
	fmt.Fprintf(body, "func (%s *%s) ID() (domain.ID, bool) { return %s.id, %s.hasID }\n\n", recv, name, recv, recv)
	fmt.Fprintf(body, "// SetID assigns the identifier.\n")
	fmt.Fprintf(body, "func (%s *%s) SetID(id domain.ID) { %s.id, %s.hasID = id, true }\n\n", recv, name, recv, recv)

	fmt.Fprintf(body, "// Clone returns a copy that shares no state with %s.\n", recv)
	fmt.Fprintf(body, "func (%s *%s) Clone() *%s {\n\tc := *%s\n\treturn &c\n}\n\n", recv, name, name, recv)

	for _, f := range fields {
		directive := f.spec.Accessors
		if directive == "" {
			directive = accessBoth
		}
		if directive == accessBoth || directive == accessGet {
			fmt.Fprintf(body, "func (%s *%s) %s() %s { return %s.%s }\n\n", recv, name, f.exposed, f.goType, recv, f.private)
		}
		if directive == accessBoth || directive == accessSet {
			fmt.Fprintf(body, "func (%s *%s) Set%s(v %s) { %s.%s = v }\n\n", recv, name, f.exposed, f.goType, recv, f.private)
		}
	}

	fmt.Fprintf(body, "// Columns flattens %s into ordered columns, excluding the identity.\n", name)
	fmt.Fprintf(body, "func (%s *%s) Columns() []domain.Column {\n\treturn []domain.Column{\n", recv, name)
	for _, f := range fields {
		fmt.Fprintf(body, "\t\t{Name: %q, Value: %s},\n", f.spec.Name, columnValue(recv, f))
	}
	body.WriteString("\t}\n}\n\n")

	fmt.Fprintf(body, "// Hydrate%s builds a %s from a %s row.\n", name, name, entity.Table)
	fmt.Fprintf(body, "func Hydrate%s(row domain.Row) (*%s, error) {\n", name, name)
	body.WriteString("\tid, err := domain.RowID(row)\n")
	fmt.Fprintf(body, "\tif err != nil {\n\t\treturn nil, fmt.Errorf(\"hydrate %s: %%w\", err)\n\t}\n", entity.Table)
	fmt.Fprintf(body, "\tout := &%s{id: id, hasID: true}\n", name)
	for _, f := range fields {
		switch {
		case f.spec.Type == typeReference:
			fmt.Fprintf(body, "\t%sID, err := domain.RowInt64(row, %q)\n", f.private, f.spec.Name)
			fmt.Fprintf(body, "\tif err != nil {\n\t\treturn nil, fmt.Errorf(\"hydrate %s: %%w\", err)\n\t}\n", entity.Table)
			fmt.Fprintf(body, "\tout.%s = domain.RefTo[%s](domain.ID(%sID))\n", f.private, f.spec.Target, f.private)
		case f.spec.Nullable:
			fmt.Fprintf(body, "\tif out.%s.V, out.%s.Valid, err = %s(row, %q); err != nil {\n", f.private, f.private, rowReader(f.spec), f.spec.Name)
			fmt.Fprintf(body, "\t\treturn nil, fmt.Errorf(\"hydrate %s: %%w\", err)\n\t}\n", entity.Table)
		default:
			fmt.Fprintf(body, "\tif out.%s, err = %s(row, %q); err != nil {\n", f.private, rowReader(f.spec), f.spec.Name)
			fmt.Fprintf(body, "\t\treturn nil, fmt.Errorf(\"hydrate %s: %%w\", err)\n\t}\n", entity.Table)
		}
	}
	body.WriteString("\treturn out, nil\n}\n\n")

	fmt.Fprintf(body, "// %sMapping binds the %s table to Hydrate%s.\n", name, entity.Table, name)
	fmt.Fprintf(body, "var %sMapping = domain.Mapping[*%s]{Table: %q, Hydrate: Hydrate%s}\n\n", name, name, entity.Table, name)
}

func columnValue(recv string, f goField) string {
	switch {
	case f.spec.Type == typeReference:
		return fmt.Sprintf("int64(%s.%s.ID)", recv, f.private)
	case f.spec.Nullable:
		return fmt.Sprintf("domain.NullValue(%s.%s)", recv, f.private)
	default:
		return fmt.Sprintf("%s.%s", recv, f.private)
	}
}

func toCamel(input string) string {
	if input == "" {
		return ""
	}
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for i, p := range parts {
		parts[i] = applyInitialisms(capitalize(p))
	}
	return strings.Join(parts, "")
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	if len(s) == 1 {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func applyInitialisms(part string) string {
	switch strings.ToLower(part) {
	case "id":
		return "ID"
	case "ids":
		return "IDs"
	case "url":
		return "URL"
	case "tle":
		return "TLE"
	default:
		return part
	}
}

// privateName lower-cases the leading run of upper-case letters, keeping the
// last one when it starts the next word (TLELine1 -> tleLine1, ID -> id).
func privateName(exported string) string {
	runes := []rune(exported)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	name := string(runes)
	if token.IsKeyword(name) {
		name += "Value"
	}
	return name
}
