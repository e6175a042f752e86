// Package types provides type definitions for structured data used throughout the health assessment system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// MaxScore is the upper bound of every pillar score and of the overall score.
const MaxScore = 10.0

// Pillar is one of the fixed health dimensions scores are grouped into.
type Pillar string

const (
	PillarMind       Pillar = "mind"
	PillarBody       Pillar = "body"
	PillarLifestyle  Pillar = "lifestyle"
	PillarAesthetics Pillar = "aesthetics"
)

// Pillars returns the fixed pillar set in scoring order.
func Pillars() []Pillar {
	return []Pillar{PillarMind, PillarBody, PillarLifestyle, PillarAesthetics}
}

// Valid reports whether p belongs to the fixed pillar set.
func (p Pillar) Valid() bool {
	switch p {
	case PillarMind, PillarBody, PillarLifestyle, PillarAesthetics:
		return true
	default:
		return false
	}
}

// QuestionKind tags the scoring variant of a question.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single-choice"
	KindMultiChoice  QuestionKind = "multi-choice"
	KindRange        QuestionKind = "range"
)

// RangeSpec holds the domain and optimal sub-interval of a range question.
type RangeSpec struct {
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
	OptimalMin float64 `json:"optimal_min" yaml:"optimal_min"`
	OptimalMax float64 `json:"optimal_max" yaml:"optimal_max"`
}

// Question is a single scorable item of an assessment.
type Question struct {
	Key      string             `json:"key" yaml:"key"`
	Text     string             `json:"text,omitempty" yaml:"text"`
	Pillar   Pillar             `json:"pillar" yaml:"pillar"`
	Kind     QuestionKind       `json:"kind" yaml:"kind"`
	MaxScore float64            `json:"max_score" yaml:"max_score"`
	Options  map[string]float64 `json:"options,omitempty" yaml:"options"`
	Range    *RangeSpec         `json:"range,omitempty" yaml:"range"`
	// Optional questions may be left out even when their stage is required.
	Optional bool `json:"optional,omitempty" yaml:"optional"`
}

// Stage is a named group of questions collected in one submission round.
type Stage struct {
	Name      string   `json:"name" yaml:"name"`
	Title     string   `json:"title,omitempty" yaml:"title"`
	Questions []string `json:"questions" yaml:"questions"`
	Required  bool     `json:"required" yaml:"required"`
}

// AssessmentDefinition is the static description of one assessment type.
type AssessmentDefinition struct {
	Type      string     `json:"type" yaml:"type"`
	Title     string     `json:"title,omitempty" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
	Stages    []Stage    `json:"stages" yaml:"stages"`
	MinStages int        `json:"min_stages" yaml:"min_stages"`
}

// TotalStages returns the number of collection stages.
func (d *AssessmentDefinition) TotalStages() int {
	return len(d.Stages)
}

// Question looks up a question by key.
func (d *AssessmentDefinition) Question(key string) (*Question, bool) {
	for i := range d.Questions {
		if d.Questions[i].Key == key {
			return &d.Questions[i], true
		}
	}
	return nil, false
}
