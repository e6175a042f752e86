// Package catalog loads the static lookups the scoring pipeline and intake consume:
// assessment definitions, biomarker reference ranges and adjustment tables.
package catalog

import "fmt"

// UnknownAssessmentTypeError indicates no definition is registered for a type.
type UnknownAssessmentTypeError struct {
	Type string
}

func (e *UnknownAssessmentTypeError) Error() string {
	return fmt.Sprintf("unknown assessment type: %q", e.Type)
}

// LoadError represents an error reading, parsing or checking a catalog document.
type LoadError struct {
	Source  string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog load error (%s): %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog load error (%s): %s", e.Source, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
