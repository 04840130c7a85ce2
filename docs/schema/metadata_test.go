package schema

import (
	"encoding/json"
	"testing"
)

func TestEntityModelVersion(t *testing.T) {
	got, err := EntityModelVersion()
	if err != nil {
		t.Fatalf("EntityModelVersion: %v", err)
	}
	if got == "" {
		t.Fatal("expected non-empty entity model version")
	}
}

func TestEntityModelMetadata(t *testing.T) {
	got, err := EntityModelMetadata()
	if err != nil {
		t.Fatalf("EntityModelMetadata: %v", err)
	}
	if got.Status == "" || got.Source == "" {
		t.Fatalf("expected status and source, got %+v", got)
	}

	var raw schemaDoc
	if err := json.Unmarshal(entityModelSchema, &raw); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	if got != raw.Metadata {
		t.Fatalf("metadata mismatch: got %+v want %+v", got, raw.Metadata)
	}
}
