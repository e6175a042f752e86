package catalog

import (
	"fmt"
	"strings"

	"github.com/jonathan/health-assessment/internal/schemas"
	"github.com/jonathan/health-assessment/internal/types"
)

type rangeVariant struct {
	Gender       string   `yaml:"gender"`
	AgeMin       *int     `yaml:"age_min"`
	AgeMax       *int     `yaml:"age_max"`
	Min          float64  `yaml:"min"`
	Max          float64  `yaml:"max"`
	CriticalLow  *float64 `yaml:"critical_low"`
	CriticalHigh *float64 `yaml:"critical_high"`
	OptimalMin   *float64 `yaml:"optimal_min"`
	OptimalMax   *float64 `yaml:"optimal_max"`
}

type rangeEntry struct {
	Name         string         `yaml:"name"`
	Unit         string         `yaml:"unit"`
	Min          float64        `yaml:"min"`
	Max          float64        `yaml:"max"`
	CriticalLow  *float64       `yaml:"critical_low"`
	CriticalHigh *float64       `yaml:"critical_high"`
	OptimalMin   *float64       `yaml:"optimal_min"`
	OptimalMax   *float64       `yaml:"optimal_max"`
	Variants     []rangeVariant `yaml:"variants"`
}

type rangesFile struct {
	Biomarkers []rangeEntry `yaml:"biomarkers"`
}

// Ranges is an immutable reference range table keyed by normalized biomarker name.
type Ranges struct {
	entries map[string]rangeEntry
}

// DefaultRanges returns the reference ranges bundled with the binary.
func DefaultRanges() (*Ranges, error) {
	return LoadRanges("embedded:reference_ranges.yaml", referenceRangesYAML)
}

// LoadRangesFile loads reference ranges from a YAML file.
func LoadRangesFile(path string) (*Ranges, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return LoadRanges(path, data)
}

// LoadRanges parses and checks a reference range document.
func LoadRanges(source string, data []byte) (*Ranges, error) {
	var file rangesFile
	if err := decodeChecked(source, schemas.ReferenceRanges, data, &file); err != nil {
		return nil, err
	}

	entries := make(map[string]rangeEntry, len(file.Biomarkers))
	for _, entry := range file.Biomarkers {
		name := NormalizeName(entry.Name)
		if _, dup := entries[name]; dup {
			return nil, &LoadError{Source: source, Message: fmt.Sprintf("duplicate biomarker %q", name)}
		}
		if err := checkBounds(entry.Min, entry.Max, entry.OptimalMin, entry.OptimalMax); err != "" {
			return nil, &LoadError{Source: source, Message: fmt.Sprintf("biomarker %q: %s", name, err)}
		}
		for _, v := range entry.Variants {
			if err := checkBounds(v.Min, v.Max, v.OptimalMin, v.OptimalMax); err != "" {
				return nil, &LoadError{Source: source, Message: fmt.Sprintf("biomarker %q: variant %s", name, err)}
			}
		}
		entries[name] = entry
	}
	return &Ranges{entries: entries}, nil
}

// Range returns the reference range for a biomarker. A demographic variant
// matching the supplied demographics wins over the generic range; the first
// matching variant in declaration order is used.
func (r *Ranges) Range(name string, demographics *types.Demographics) (types.ReferenceRange, bool) {
	entry, ok := r.entries[NormalizeName(name)]
	if !ok {
		return types.ReferenceRange{}, false
	}

	if demographics != nil {
		for _, v := range entry.Variants {
			if v.matches(demographics) {
				return types.ReferenceRange{
					Min:          v.Min,
					Max:          v.Max,
					Unit:         entry.Unit,
					CriticalLow:  v.CriticalLow,
					CriticalHigh: v.CriticalHigh,
					OptimalMin:   v.OptimalMin,
					OptimalMax:   v.OptimalMax,
				}, true
			}
		}
	}

	return types.ReferenceRange{
		Min:          entry.Min,
		Max:          entry.Max,
		Unit:         entry.Unit,
		CriticalLow:  entry.CriticalLow,
		CriticalHigh: entry.CriticalHigh,
		OptimalMin:   entry.OptimalMin,
		OptimalMax:   entry.OptimalMax,
	}, true
}

// checkBounds returns a description of the first inconsistency, or "".
// An optimal band must be declared with both ends and sit inside [min, max].
func checkBounds(lo, hi float64, optMin, optMax *float64) string {
	if lo > hi {
		return "min greater than max"
	}
	if (optMin == nil) != (optMax == nil) {
		return "optimal band needs both optimal_min and optimal_max"
	}
	if optMin != nil && (*optMin > *optMax || *optMin < lo || *optMax > hi) {
		return "optimal band outside [min, max]"
	}
	return ""
}

// matches reports whether every constraint the variant declares is satisfied.
// A variant with an age bound never matches an unknown (zero) age.
func (v rangeVariant) matches(d *types.Demographics) bool {
	if v.Gender != "" && !strings.EqualFold(v.Gender, strings.TrimSpace(d.Gender)) {
		return false
	}
	if v.AgeMin != nil || v.AgeMax != nil {
		if d.Age <= 0 {
			return false
		}
		if v.AgeMin != nil && d.Age < *v.AgeMin {
			return false
		}
		if v.AgeMax != nil && d.Age > *v.AgeMax {
			return false
		}
	}
	return true
}

// NormalizeName lowercases a biomarker or symptom name and folds spaces and
// hyphens to underscores so "Vitamin D" and "vitamin-d" resolve to "vitamin_d".
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	return n
}
