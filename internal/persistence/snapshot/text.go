package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/snapshot_v1.schema.json
var schemaV1 string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("snapshot_v1.schema.json", schemaV1)
	})
	return schema, schemaErr
}

// SchemaJSON returns the embedded schema text snapshots are checked against.
func SchemaJSON() string { return schemaV1 }

// Validate checks a text snapshot against the schema.
func Validate(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// MarshalText renders snap as indented JSON.
func MarshalText(snap SnapshotV1) ([]byte, error) {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// UnmarshalText validates raw and decodes it.
func UnmarshalText(raw []byte) (SnapshotV1, error) {
	var snap SnapshotV1
	if err := Validate(raw); err != nil {
		return snap, err
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, err
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

func WriteText(path string, snap SnapshotV1) error {
	b, err := MarshalText(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func ReadText(path string) (SnapshotV1, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	snap, err := UnmarshalText(raw)
	if err != nil {
		return snap, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
