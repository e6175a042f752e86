package catalog

import (
	"github.com/jonathan/health-assessment/internal/schemas"
	"github.com/jonathan/health-assessment/internal/types"
)

// Delta keys beyond the classifier statuses.
const (
	// StatusCritical is the key for readings beyond a range's critical bounds.
	StatusCritical = "critical"
	// StatusOptimal is the key for normal readings inside a range's optimal band.
	StatusOptimal = "optimal"
)

type adjustmentEntry struct {
	Pillar types.Pillar `yaml:"pillar"`
	Amount float64      `yaml:"amount"`
}

type symptomTable struct {
	DefaultPillar  types.Pillar               `yaml:"default_pillar"`
	DefaultPenalty float64                    `yaml:"default_penalty"`
	Entries        map[string]adjustmentEntry `yaml:"entries"`
	// ByAssessment overrides entries for symptoms reported under one assessment type.
	ByAssessment map[string]map[string]adjustmentEntry `yaml:"by_assessment"`
}

type biomarkerTable struct {
	DefaultPillar types.Pillar            `yaml:"default_pillar"`
	StatusDeltas  map[string]float64      `yaml:"status_deltas"`
	Pillars       map[string]types.Pillar `yaml:"pillars"`
}

type goalTable struct {
	DefaultPillar types.Pillar               `yaml:"default_pillar"`
	DefaultBoost  float64                    `yaml:"default_boost"`
	Entries       map[string]adjustmentEntry `yaml:"entries"`
}

type adjustmentsFile struct {
	Symptoms   symptomTable   `yaml:"symptoms"`
	Biomarkers biomarkerTable `yaml:"biomarkers"`
	Goals      goalTable      `yaml:"goals"`
}

// Adjustments holds the symptom, biomarker and goal lookup tables used by the
// qualitative, objective and intentionality stages. Lookups never fail: any
// name missing from a table resolves to that table's defaults.
type Adjustments struct {
	symptoms   symptomTable
	biomarkers biomarkerTable
	goals      goalTable
}

// DefaultAdjustments returns the adjustment tables bundled with the binary.
func DefaultAdjustments() (*Adjustments, error) {
	return LoadAdjustments("embedded:adjustments.yaml", adjustmentsYAML)
}

// LoadAdjustmentsFile loads adjustment tables from a YAML file.
func LoadAdjustmentsFile(path string) (*Adjustments, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return LoadAdjustments(path, data)
}

// LoadAdjustments parses and checks an adjustment table document.
func LoadAdjustments(source string, data []byte) (*Adjustments, error) {
	var file adjustmentsFile
	if err := decodeChecked(source, schemas.Adjustments, data, &file); err != nil {
		return nil, err
	}
	file.Symptoms.Entries = normalizeKeys(file.Symptoms.Entries)
	scoped := make(map[string]map[string]adjustmentEntry, len(file.Symptoms.ByAssessment))
	for assessmentType, entries := range file.Symptoms.ByAssessment {
		scoped[NormalizeName(assessmentType)] = normalizeKeys(entries)
	}
	file.Symptoms.ByAssessment = scoped
	file.Goals.Entries = normalizeKeys(file.Goals.Entries)
	pillars := make(map[string]types.Pillar, len(file.Biomarkers.Pillars))
	for name, p := range file.Biomarkers.Pillars {
		pillars[NormalizeName(name)] = p
	}
	file.Biomarkers.Pillars = pillars
	if file.Biomarkers.StatusDeltas == nil {
		file.Biomarkers.StatusDeltas = map[string]float64{}
	}

	return &Adjustments{
		symptoms:   file.Symptoms,
		biomarkers: file.Biomarkers,
		goals:      file.Goals,
	}, nil
}

// SymptomPenalty returns the pillar a symptom counts against and its penalty.
// An entry scoped to the assessment type the symptom was reported under wins
// over the generic entry.
func (a *Adjustments) SymptomPenalty(assessmentType, name string) (types.Pillar, float64) {
	key := NormalizeName(name)
	if e, ok := a.symptoms.ByAssessment[NormalizeName(assessmentType)][key]; ok {
		return e.Pillar, e.Amount
	}
	if e, ok := a.symptoms.Entries[key]; ok {
		return e.Pillar, e.Amount
	}
	return a.symptoms.DefaultPillar, a.symptoms.DefaultPenalty
}

// BiomarkerPillar returns the pillar a biomarker adjusts.
func (a *Adjustments) BiomarkerPillar(name string) types.Pillar {
	if p, ok := a.biomarkers.Pillars[NormalizeName(name)]; ok {
		return p
	}
	return a.biomarkers.DefaultPillar
}

// StatusDelta returns the delta for a classification key (a biomarker status,
// StatusCritical or StatusOptimal). Unlisted keys contribute nothing.
func (a *Adjustments) StatusDelta(status string) float64 {
	return a.biomarkers.StatusDeltas[status]
}

// GoalBoost returns the pillar a goal lifts and its boost.
func (a *Adjustments) GoalBoost(goal string) (types.Pillar, float64) {
	if e, ok := a.goals.Entries[NormalizeName(goal)]; ok {
		return e.Pillar, e.Amount
	}
	return a.goals.DefaultPillar, a.goals.DefaultBoost
}

func normalizeKeys(entries map[string]adjustmentEntry) map[string]adjustmentEntry {
	out := make(map[string]adjustmentEntry, len(entries))
	for name, e := range entries {
		out[NormalizeName(name)] = e
	}
	return out
}
