package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/health-assessment/internal/schemas"
)

//go:embed data/assessments.yaml
var assessmentsYAML []byte

//go:embed data/reference_ranges.yaml
var referenceRangesYAML []byte

//go:embed data/adjustments.yaml
var adjustmentsYAML []byte

// readFile reads an override catalog from disk.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Message: "failed to read file", Cause: err}
	}
	return data, nil
}

// decodeChecked unmarshals YAML twice: once generically for JSON Schema
// validation and once into the typed target.
func decodeChecked(source, schemaName string, data []byte, target any) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &LoadError{Source: source, Message: "failed to parse YAML", Cause: err}
	}
	if schemaName != "" {
		if err := schemas.ValidateDocument(schemaName, raw); err != nil {
			return &LoadError{Source: source, Message: "schema validation failed", Cause: err}
		}
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return &LoadError{Source: source, Message: fmt.Sprintf("failed to decode %T", target), Cause: err}
	}
	return nil
}
