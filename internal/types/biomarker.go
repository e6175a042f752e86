// Package types provides type definitions for structured data used throughout the health assessment system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// BiomarkerStatus is the classification of a reading against its reference range.
type BiomarkerStatus string

const (
	StatusLow     BiomarkerStatus = "low"
	StatusNormal  BiomarkerStatus = "normal"
	StatusHigh    BiomarkerStatus = "high"
	StatusUnknown BiomarkerStatus = "unknown"
)

// Demographics narrows a reference range lookup.
type Demographics struct {
	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// BiomarkerReading is a single already-extracted lab value.
type BiomarkerReading struct {
	Name         string        `json:"name" validate:"required"`
	Value        float64       `json:"value"`
	Unit         string        `json:"unit,omitempty"`
	Demographics *Demographics `json:"demographics,omitempty"`
}

// ReferenceRange defines the normal interval of a biomarker.
// CriticalLow and CriticalHigh, when set, bound the region outside which a
// reading is treated as critical rather than merely out of range.
// OptimalMin and OptimalMax, when both set, mark the optimal band inside it.
type ReferenceRange struct {
	Min          float64  `json:"min" yaml:"min"`
	Max          float64  `json:"max" yaml:"max"`
	Unit         string   `json:"unit,omitempty" yaml:"unit"`
	CriticalLow  *float64 `json:"critical_low,omitempty" yaml:"critical_low"`
	CriticalHigh *float64 `json:"critical_high,omitempty" yaml:"critical_high"`
	OptimalMin   *float64 `json:"optimal_min,omitempty" yaml:"optimal_min"`
	OptimalMax   *float64 `json:"optimal_max,omitempty" yaml:"optimal_max"`
}

// Optimal reports whether value lies inside the optimal band. Ranges without
// a band have no optimal values.
func (r ReferenceRange) Optimal(value float64) bool {
	if r.OptimalMin == nil || r.OptimalMax == nil {
		return false
	}
	return value >= *r.OptimalMin && value <= *r.OptimalMax
}
