// Package biomarkers classifies lab readings against reference ranges.
package biomarkers

import (
	"math"

	"github.com/jonathan/health-assessment/internal/types"
)

// RangeSource looks up the reference range for a biomarker, optionally
// narrowed by demographics.
type RangeSource interface {
	Range(name string, demographics *types.Demographics) (types.ReferenceRange, bool)
}

// Classification is the detailed outcome for one reading.
type Classification struct {
	Status types.BiomarkerStatus `json:"status"`
	// Critical is set when the value lies beyond the range's critical bounds.
	Critical bool `json:"critical"`
	// Optimal is set for normal values inside the range's optimal band.
	Optimal bool                  `json:"optimal"`
	Range   *types.ReferenceRange `json:"range,omitempty"`
}

// Classifier is safe for concurrent use as long as its RangeSource is.
type Classifier struct {
	ranges RangeSource
}

// NewClassifier creates a classifier over the given range source.
func NewClassifier(ranges RangeSource) *Classifier {
	return &Classifier{ranges: ranges}
}

// Classify returns low, normal, high, or unknown. It never fails: a missing
// range, a nil source or a NaN value all yield unknown.
func (c *Classifier) Classify(name string, value float64, demographics *types.Demographics) types.BiomarkerStatus {
	return c.classify(name, value, demographics).Status
}

// Classification classifies a reading and reports whether it is critical or optimal.
func (c *Classifier) Classification(reading types.BiomarkerReading) Classification {
	return c.classify(reading.Name, reading.Value, reading.Demographics)
}

func (c *Classifier) classify(name string, value float64, demographics *types.Demographics) Classification {
	if c == nil || c.ranges == nil || math.IsNaN(value) {
		return Classification{Status: types.StatusUnknown}
	}

	r, ok := c.ranges.Range(name, demographics)
	if !ok {
		return Classification{Status: types.StatusUnknown}
	}

	out := Classification{Status: types.StatusNormal, Range: &r}
	switch {
	case value < r.Min:
		out.Status = types.StatusLow
		out.Critical = r.CriticalLow != nil && value < *r.CriticalLow
	case value > r.Max:
		out.Status = types.StatusHigh
		out.Critical = r.CriticalHigh != nil && value > *r.CriticalHigh
	default:
		out.Optimal = r.Optimal(value)
	}
	return out
}
