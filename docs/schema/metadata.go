// Package schema exposes embedded Entity Model metadata (version) for runtime use.
package schema

import (
	_ "embed"
	"encoding/json"
	"sync"
)

// Metadata captures the high-level metadata block from the canonical
// entity-model JSON.
type Metadata struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

type schemaDoc struct {
	Version  string   `json:"version"`
	Metadata Metadata `json:"metadata"`
}

// Canonical entity-model JSON content embedded for accessing schema metadata.
//
//go:embed entity-model.json
var entityModelSchema []byte

var (
	once   sync.Once
	doc    schemaDoc
	docErr error
)

func load() (schemaDoc, error) {
	once.Do(func() {
		docErr = json.Unmarshal(entityModelSchema, &doc)
	})
	return doc, docErr
}

// EntityModelVersion returns the schema version declared in
// docs/schema/entity-model.json.
func EntityModelVersion() (string, error) {
	d, err := load()
	return d.Version, err
}

// EntityModelMetadata returns the schema metadata (status, source) declared in
// the canonical entity-model JSON.
func EntityModelMetadata() (Metadata, error) {
	d, err := load()
	return d.Metadata, err
}
