// Package types provides type definitions for structured data used throughout the health assessment system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Symptom is a self-reported symptom and the assessment it was reported under.
type Symptom struct {
	Name       string `json:"name" validate:"required"`
	Assessment string `json:"assessment,omitempty"`
}

// ScoreInput is everything the scoring pipeline consumes for one call.
type ScoreInput struct {
	AssessmentType string             `json:"assessment_type"`
	Answers        map[string]any     `json:"answers"`
	Symptoms       []Symptom          `json:"symptoms,omitempty"`
	Biomarkers     []BiomarkerReading `json:"biomarkers,omitempty"`
	Goals          []string           `json:"goals,omitempty"`
}

// ScoreRequest is the CLI and file form of a scoring call.
type ScoreRequest struct {
	AssessmentType string             `json:"assessment_type" validate:"required"`
	Answers        map[string]any     `json:"answers" validate:"required"`
	Symptoms       []Symptom          `json:"symptoms,omitempty" validate:"dive"`
	Biomarkers     []BiomarkerReading `json:"biomarkers,omitempty" validate:"dive"`
	Goals          []string           `json:"goals,omitempty" validate:"dive,required"`
}

// Validate validates the ScoreRequest using the validator.
func (r *ScoreRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Input converts the request into pipeline input.
func (r *ScoreRequest) Input() ScoreInput {
	return ScoreInput{
		AssessmentType: r.AssessmentType,
		Answers:        r.Answers,
		Symptoms:       r.Symptoms,
		Biomarkers:     r.Biomarkers,
		Goals:          r.Goals,
	}
}

// PillarScores maps each pillar to a bounded score.
type PillarScores map[Pillar]float64

// Clone returns an independent copy.
func (p PillarScores) Clone() PillarScores {
	out := make(PillarScores, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ScoreResult is the output of the scoring pipeline. The four stage maps are
// kept so a score can be explained after the fact.
type ScoreResult struct {
	AssessmentType string       `json:"assessment_type"`
	OverallScore   float64      `json:"overall_score"`
	PillarScores   PillarScores `json:"pillar_scores"`
	Base           PillarScores `json:"base"`
	Qualitative    PillarScores `json:"qualitative"`
	Objective      PillarScores `json:"objective"`
	Intentionality PillarScores `json:"intentionality"`
	ScoredAt       time.Time    `json:"scored_at"`
}
