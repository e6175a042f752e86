// Package schemas provides JSON Schema validation functionality for catalogs and scoring artifacts.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	schemafiles "github.com/jonathan/health-assessment/schemas"
)

// Embedded schema names.
const (
	AssessmentDefinition = "assessment_definition.schema.json"
	ReferenceRanges      = "reference_ranges.schema.json"
	Adjustments          = "adjustments.schema.json"
	ScoreRequest         = "score_request.schema.json"
	ScoreResult          = "score_result.schema.json"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateDocument validates an in-memory document (anything encoding/json can
// marshal, including YAML-decoded maps) against one of the embedded schemas.
func ValidateDocument(schemaName string, doc any) error {
	schemaBytes, err := schemafiles.FS.ReadFile(schemaName)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaName,
			Message: "embedded schema not found",
			Cause:   err,
		}
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewGoLoader(doc)

	return validate(schemaName, schemaLoader, documentLoader)
}

// ValidateBytes validates raw JSON bytes against one of the embedded schemas.
func ValidateBytes(schemaName string, data []byte) error {
	schemaBytes, err := schemafiles.FS.ReadFile(schemaName)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaName,
			Message: "embedded schema not found",
			Cause:   err,
		}
	}

	return validate(schemaName, gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewBytesLoader(data))
}

func validate(schemaName string, schemaLoader, documentLoader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaName,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
