// Package scoring turns assessment answers and supporting evidence into
// bounded pillar scores through four ordered adjustment stages.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/jonathan/health-assessment/internal/biomarkers"
	"github.com/jonathan/health-assessment/internal/types"
)

// Classifier classifies a single biomarker reading.
type Classifier interface {
	Classification(reading types.BiomarkerReading) biomarkers.Classification
}

// Tables holds the lookup tables for the three adjustment stages.
type Tables interface {
	SymptomPenalty(assessmentType, name string) (types.Pillar, float64)
	BiomarkerPillar(name string) types.Pillar
	StatusDelta(status string) float64
	GoalBoost(goal string) (types.Pillar, float64)
}

// Definitions resolves an assessment definition by type.
type Definitions interface {
	Definition(assessmentType string) (*types.AssessmentDefinition, error)
}

// Pipeline is immutable after construction and safe for concurrent use.
type Pipeline struct {
	classifier Classifier
	tables     Tables
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for ScoreResult.ScoredAt. It never affects
// score values.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a scoring pipeline.
func NewPipeline(classifier Classifier, tables Tables, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		tables:     tables,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ScoreAssessment resolves the definition for input.AssessmentType and scores it.
func (p *Pipeline) ScoreAssessment(defs Definitions, input types.ScoreInput) (types.ScoreResult, error) {
	def, err := defs.Definition(input.AssessmentType)
	if err != nil {
		return types.ScoreResult{}, fmt.Errorf("failed to resolve assessment definition: %w", err)
	}
	return p.Score(def, input), nil
}

// Score runs base, qualitative, objective and intentionality stages in order.
// Every stage output carries all pillars clamped to [0, MaxScore]. Unscorable
// answers and unmapped evidence contribute zero or table defaults.
func (p *Pipeline) Score(def *types.AssessmentDefinition, input types.ScoreInput) types.ScoreResult {
	assessmentType := input.AssessmentType
	if assessmentType == "" {
		assessmentType = def.Type
	}

	base := BaseScores(def, input.Answers)
	qualitative := p.qualitative(base, assessmentType, input.Symptoms)
	objective := p.objective(qualitative, input.Biomarkers)
	intentionality := p.intentionality(objective, input.Goals)

	return types.ScoreResult{
		AssessmentType: assessmentType,
		OverallScore:   Overall(intentionality),
		PillarScores:   intentionality.Clone(),
		Base:           base,
		Qualitative:    qualitative,
		Objective:      objective,
		Intentionality: intentionality,
		ScoredAt:       p.now().UTC(),
	}
}

// Overall averages the pillars strictly above zero, rounded to one decimal.
// It is 0 when no pillar is positive.
func Overall(scores types.PillarScores) float64 {
	sum := 0.0
	count := 0
	for _, pillar := range types.Pillars() {
		if v := scores[pillar]; v > 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return clamp(round1(sum / float64(count)))
}

func emptyScores() types.PillarScores {
	out := make(types.PillarScores, len(types.Pillars()))
	for _, pillar := range types.Pillars() {
		out[pillar] = 0
	}
	return out
}

// finish clamps and rounds every pillar and drops anything outside the fixed set.
func finish(scores types.PillarScores, round func(float64) float64) types.PillarScores {
	out := make(types.PillarScores, len(types.Pillars()))
	for _, pillar := range types.Pillars() {
		out[pillar] = clamp(round(scores[pillar]))
	}
	return out
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > types.MaxScore {
		return types.MaxScore
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
