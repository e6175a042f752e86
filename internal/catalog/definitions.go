package catalog

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/health-assessment/internal/schemas"
	"github.com/jonathan/health-assessment/internal/types"
)

// Definitions is an immutable registry of assessment definitions keyed by type.
type Definitions struct {
	byType map[string]*types.AssessmentDefinition
}

type definitionsFile struct {
	Assessments []types.AssessmentDefinition `yaml:"assessments"`
}

// DefaultDefinitions returns the assessments bundled with the binary.
func DefaultDefinitions() (*Definitions, error) {
	return LoadDefinitions("embedded:assessments.yaml", assessmentsYAML)
}

// LoadDefinitionsFile loads assessment definitions from a YAML file.
func LoadDefinitionsFile(path string) (*Definitions, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return LoadDefinitions(path, data)
}

// LoadDefinitions parses a YAML document with a top-level "assessments" list.
// Every entry is checked against the assessment definition schema before it is
// decoded.
func LoadDefinitions(source string, data []byte) (*Definitions, error) {
	var raw struct {
		Assessments []any `yaml:"assessments"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Source: source, Message: "failed to parse YAML", Cause: err}
	}
	if len(raw.Assessments) == 0 {
		return nil, &LoadError{Source: source, Message: "no assessments defined"}
	}
	for i, entry := range raw.Assessments {
		if err := schemas.ValidateDocument(schemas.AssessmentDefinition, entry); err != nil {
			return nil, &LoadError{Source: source, Message: fmt.Sprintf("assessment #%d", i), Cause: err}
		}
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &LoadError{Source: source, Message: "failed to decode assessments", Cause: err}
	}

	defs, err := NewDefinitions(file.Assessments...)
	if err != nil {
		return nil, &LoadError{Source: source, Message: "invalid assessment", Cause: err}
	}
	return defs, nil
}

// NewDefinitions builds a registry from already-constructed definitions.
func NewDefinitions(defs ...types.AssessmentDefinition) (*Definitions, error) {
	byType := make(map[string]*types.AssessmentDefinition, len(defs))
	for i := range defs {
		def := defs[i]
		if err := checkDefinition(&def); err != nil {
			return nil, err
		}
		if _, dup := byType[def.Type]; dup {
			return nil, fmt.Errorf("duplicate assessment type %q", def.Type)
		}
		byType[def.Type] = &def
	}
	return &Definitions{byType: byType}, nil
}

// Definition returns the definition for an assessment type.
func (d *Definitions) Definition(assessmentType string) (*types.AssessmentDefinition, error) {
	def, ok := d.byType[assessmentType]
	if !ok {
		return nil, &UnknownAssessmentTypeError{Type: assessmentType}
	}
	return def, nil
}

// Types lists the registered assessment types in sorted order.
func (d *Definitions) Types() []string {
	out := make([]string, 0, len(d.byType))
	for t := range d.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// checkDefinition enforces the structural rules JSON Schema cannot express.
func checkDefinition(def *types.AssessmentDefinition) error {
	if def.Type == "" {
		return fmt.Errorf("assessment type is empty")
	}
	if len(def.Questions) == 0 {
		return fmt.Errorf("assessment %q has no questions", def.Type)
	}
	if len(def.Stages) == 0 {
		return fmt.Errorf("assessment %q has no stages", def.Type)
	}
	if def.MinStages < 1 || def.MinStages > len(def.Stages) {
		return fmt.Errorf("assessment %q: min_stages %d outside [1, %d]", def.Type, def.MinStages, len(def.Stages))
	}

	keys := make(map[string]bool, len(def.Questions))
	for _, q := range def.Questions {
		if q.Key == "" {
			return fmt.Errorf("assessment %q has a question without a key", def.Type)
		}
		if keys[q.Key] {
			return fmt.Errorf("assessment %q: duplicate question key %q", def.Type, q.Key)
		}
		keys[q.Key] = true

		if !q.Pillar.Valid() {
			return fmt.Errorf("question %q: unknown pillar %q", q.Key, q.Pillar)
		}
		if q.MaxScore < 0 {
			return fmt.Errorf("question %q: negative max score", q.Key)
		}
		switch q.Kind {
		case types.KindSingleChoice, types.KindMultiChoice:
			if len(q.Options) == 0 {
				return fmt.Errorf("question %q: choice question without options", q.Key)
			}
		case types.KindRange:
			r := q.Range
			if r == nil {
				return fmt.Errorf("question %q: range question without range", q.Key)
			}
			if r.Min >= r.Max || r.OptimalMin > r.OptimalMax || r.OptimalMin < r.Min || r.OptimalMax > r.Max {
				return fmt.Errorf("question %q: range bounds must satisfy min <= optimal_min <= optimal_max <= max and min < max", q.Key)
			}
		default:
			return fmt.Errorf("question %q: unknown kind %q", q.Key, q.Kind)
		}
	}

	staged := make(map[string]string, len(keys))
	for _, stage := range def.Stages {
		if stage.Name == "" {
			return fmt.Errorf("assessment %q has a stage without a name", def.Type)
		}
		if len(stage.Questions) == 0 {
			return fmt.Errorf("stage %q has no questions", stage.Name)
		}
		for _, key := range stage.Questions {
			if !keys[key] {
				return fmt.Errorf("stage %q references unknown question %q", stage.Name, key)
			}
			if other, dup := staged[key]; dup {
				return fmt.Errorf("question %q collected by both %q and %q", key, other, stage.Name)
			}
			staged[key] = stage.Name
		}
	}
	return nil
}
