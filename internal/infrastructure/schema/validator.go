// Package schema validates plugin configuration values against the JSON
// schema a plugin declares in its manifest.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/doeshing/sift/internal/ports"
)

// ValidationError lists every violation found in a config document.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid plugin config:\n  - " + strings.Join(e.Details, "\n  - ")
}

// Validate checks config against schema. An empty schema accepts anything.
func Validate(schema map[string]any, config map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	if config == nil {
		config = map[string]any{}
	}
	valueBytes, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(valueBytes),
	)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &ValidationError{Details: details}
}

// ApplyDefaults returns a copy of config with top-level properties the
// schema gives a default for filled in.
func ApplyDefaults(schema map[string]any, config map[string]any) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = v
	}
	props, _ := schema["properties"].(map[string]any)
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		def, ok := prop["default"]
		if !ok {
			continue
		}
		if _, set := out[name]; !set {
			out[name] = def
		}
	}
	return out
}

// Validator adapts the package functions to ports.SchemaValidator.
type Validator struct{}

func (Validator) Validate(schema map[string]any, config map[string]any) error {
	return Validate(schema, config)
}

func (Validator) ApplyDefaults(schema map[string]any, config map[string]any) map[string]any {
	return ApplyDefaults(schema, config)
}

var _ ports.SchemaValidator = Validator{}
