// Package schema wraps JSON-Schema compilation and validation for the
// request gates of the rest mapper.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON Schema. Validation is pure: deterministic and
// side-effect free.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile builds a Schema from its decoded definition.
func Compile(def map[string]interface{}) (*Schema, error) {
	var data, err = json.Marshal(def)
	if err != nil {
		return nil, err
	}

	var compiler = jsonschema.NewCompiler()
	if err = compiler.AddResource("schema.json", bytes.NewReader(data)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile is Compile for statically-known definitions.
func MustCompile(def map[string]interface{}) *Schema {
	var s, err = Compile(def)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks |value| (a decoded JSON value) against the schema.
// A violation yields a *jsonschema.ValidationError whose Error() is the
// human-readable description surfaced to clients.
func (s *Schema) Validate(value interface{}) error {
	return s.compiled.Validate(value)
}
